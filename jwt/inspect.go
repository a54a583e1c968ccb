package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by Inspect when the token carries no exp claim.
var ErrNoExpiry = errors.New("token has no exp claim")

// Inspection is what the client learns from an access token without
// verifying it.
type Inspection struct {
	Subject   string
	UserID    int64
	TokenType TokenType
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired reports whether the token is past its expiry at now.
func (i Inspection) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// ExpiresWithin reports whether the token expires within d of now,
// including tokens that already expired.
func (i Inspection) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !now.Add(d).Before(i.ExpiresAt)
}

// Remaining returns the time left before expiry, or zero.
func (i Inspection) Remaining(now time.Time) time.Duration {
	if left := i.ExpiresAt.Sub(now); left > 0 {
		return left
	}
	return 0
}

// Inspect decodes tokenStr without checking its signature. It fails only on
// malformed input or a missing exp claim.
func Inspect(tokenStr string) (Inspection, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return Inspection{}, err
	}
	if claims.ExpiresAt == nil {
		return Inspection{}, ErrNoExpiry
	}

	out := Inspection{
		Subject:   claims.Subject,
		UserID:    claims.UserID,
		TokenType: claims.TokenType,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// ExpiresWithin is a convenience for Inspect followed by
// Inspection.ExpiresWithin.
func ExpiresWithin(tokenStr string, now time.Time, d time.Duration) (bool, error) {
	info, err := Inspect(tokenStr)
	if err != nil {
		return false, err
	}
	return info.ExpiresWithin(now, d), nil
}
