package authapi

import (
	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var tokenSigAlgs = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.HS256, jose.HS384, jose.HS512,
	jose.EdDSA,
}

type tokenClaims struct {
	jwt.Claims

	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// unverifiedClaims reads the claims of an access token without verifying its
// signature. The remote API verifies its tokens, the claims only fill in
// what the response body left out. ok is false for tokens that are not JWTs.
func unverifiedClaims(token string) (_ tokenClaims, ok bool) {
	parsed, err := jwt.ParseSigned(token, tokenSigAlgs)
	if err != nil {
		return tokenClaims{}, false
	}

	var claims tokenClaims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return tokenClaims{}, false
	}

	return claims, true
}

// fillFromClaims completes r with the expiry, subject, name and email claims
// of its access token.
func (r *authResponse) fillFromClaims() {
	claims, ok := unverifiedClaims(r.Token)
	if !ok {
		return
	}

	if r.ExpiresIn.IsZero() && claims.Expiry != nil {
		r.ExpiresIn = claims.Expiry.Time()
	}
	if r.ID == "" {
		r.ID = claims.Subject
	}
	if r.Email == "" {
		r.Email = claims.Email
	}
	if r.Name == "" {
		r.Name = claims.Name
	}
}
