package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/tutorx/internal/shared"
)

// TokenInfo is what the client can read from the backend's session JWT without its signing key.
type TokenInfo struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry before now.
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !t.ExpiresAt.After(now)
}

// InspectToken decodes the claims of token without verifying its signature.
//
// The backend is the only party that can verify the token; the client uses the claims for display only.
func InspectToken(token string) (TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: malformed session token: %v", shared.ErrInvalidInput, err)
	}

	var info TokenInfo
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// TokenExpiry returns the exp claim of token, or the zero time when it has none.
func TokenExpiry(token string) (time.Time, error) {
	info, err := InspectToken(token)
	if err != nil {
		return time.Time{}, err
	}
	return info.ExpiresAt, nil
}
