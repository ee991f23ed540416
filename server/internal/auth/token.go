package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie the web app stores its session token in.
const CookieName = "session-token"

// WildcardBoard in Claims.Boards grants access to every board.
const WildcardBoard = "*"

// ErrNoToken is returned when a request carries no token at all.
var ErrNoToken = errors.New("auth: no token presented")

// Claims are the JWT claims the gateway understands.
type Claims struct {
	Boards []string `json:"boards,omitempty"`
	jwt.RegisteredClaims
}

// Allows reports whether the claims grant access to boardID.
func (c *Claims) Allows(boardID string) bool {
	for _, b := range c.Boards {
		if b == WildcardBoard || b == boardID {
			return true
		}
	}
	return false
}

// Verifier validates HMAC-signed board access tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates tokenString. Tokens without a subject are
// rejected.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("auth: token missing sub claim")
	}
	return claims, nil
}

// Sign issues a token for claims. boardctl and tests use it; the web app
// issues its own tokens with the same secret.
func (v *Verifier) Sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// TokenFromRequest extracts a token from the session cookie, a Bearer
// Authorization header, or the token query parameter, in that order.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
