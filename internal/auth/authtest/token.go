// Package authtest signs access tokens shaped like the ones the account
// service issues, for tests of code that only validates them.
package authtest

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTTL = 15 * time.Minute

// Claims are the fields placed in a signed token. A zero IssuedAt means now
// and a zero TTL means fifteen minutes.
type Claims struct {
	UserID   int64
	Email    string
	Role     string
	IssuedAt time.Time
	TTL      time.Duration
}

// Sign returns an HS256 token for c signed with secret.
func Sign(t testing.TB, secret string, c Claims) string {
	t.Helper()

	issuedAt := c.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	ttl := c.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": c.UserID,
		"email":   c.Email,
		"role":    c.Role,
		"sub":     strconv.FormatInt(c.UserID, 10),
		"iat":     jwt.NewNumericDate(issuedAt),
		"exp":     jwt.NewNumericDate(issuedAt.Add(ttl)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
