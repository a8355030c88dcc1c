package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fivetwenty-io/recapi/internal/constants"
)

// TokenExpiry returns the exp claim of a JWT. The signature is not verified;
// the server remains the authority on whether the token is accepted.
func TokenExpiry(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, constants.ErrEmptyToken
	}

	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return time.Time{}, fmt.Errorf("%w: %w", constants.ErrInvalidJWTFormat, err)
		}

		return time.Time{}, fmt.Errorf("failed to parse JWT: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read expiration claim: %w", err)
	}

	if exp == nil {
		return time.Time{}, constants.ErrNoExpirationClaim
	}

	return exp.Time, nil
}

// IsExpired reports whether token expires within leeway of now. Opaque
// tokens without an exp claim are never considered expired.
func IsExpired(token string, now time.Time, leeway time.Duration) bool {
	expiry, err := TokenExpiry(token)
	if err != nil {
		return false
	}

	return !now.Add(leeway).Before(expiry)
}
