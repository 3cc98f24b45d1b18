// Package services implements the HTTP client for the transcript-to-tutorial backend.
//
// # Client
//
// [APIService] implements [Client] with one method per backend capability. Credentials are never
// passed explicitly: the backend issues an access_token cookie from the OAuth callback and the
// [http.Client] given to [NewAPIService] carries it through its cookie jar (see [NewHTTPClient]).
//
// # Error Handling
//
// Non-2xx responses become an [*APIError] whose message is taken from the response envelope:
//   - the "error" field
//   - a string "detail" field, or an object "detail" with an "error" field
//   - "HTTP <status>" when neither is present
//   - "Network error" when the body is not JSON
//
// [APIError] unwraps to a sentinel from the shared package:
//   - [shared.ErrNotAuthenticated] : 401
//   - [shared.ErrTutorialNotFound] : 404
//   - [shared.ErrAPIRequest] : any other status
//
// Transport failures are wrapped with [shared.ErrAPIRequest]. There are no retries and no timeouts;
// callers bound requests with their context.
package services
