// Package server provides HTTP routing, middleware, and the login callback handler used by the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method patterns on an [http.ServeMux].
//
// # Login Callback
//
// The backend's GitHub app redirects the browser to the frontend login route with a
// one-time `?code=`. [CallbackHandler] stands in for that route on localhost: it captures
// the first code (or provider error), answers the browser with a short page and delivers
// the result through a channel. Later requests are rejected.
//
// [CallbackServer] runs the handler behind [RequestLogger] and [Recoverer] on a
// temporary listener and shuts down once a result arrived or the wait timed out.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
