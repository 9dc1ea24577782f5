package registry

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = time.Minute

type callClaims struct {
	Method string `json:"method"`
	jwt.RegisteredClaims
}

// signer authorizes outbound calls with a short-lived HS256 token derived
// from the signing identity.
type signer struct {
	key     []byte
	subject string
	now     func() time.Time
}

func (s signer) sign(method, nonce string) (string, error) {
	issued := s.now()
	claims := callClaims{
		Method: method,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.subject,
			ID:        nonce,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}
