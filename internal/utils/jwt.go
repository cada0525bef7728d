package utils // package utils provides token helpers shared by the API and its tooling

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleCustomer is the role allowed to drive a reservation.
const RoleCustomer = "CUSTOMER"

// AccessToken is a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The JWT
// carries the subject (sub), role, expiration (exp) and issued-at (iat)
// claims.  Accounts are issued by the identity service; this helper
// exists for that service's contract tests and for local development.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
