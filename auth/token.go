package auth

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
)

const ClaimAddress = "address"

var ErrTokenClaims = errors.New("token has no address claim")

// Tokens issues and verifies RS256 access tokens carrying the wallet address.
type Tokens struct {
	ja  *jwtauth.JWTAuth
	ttl time.Duration
}

func NewTokens(key *rsa.PrivateKey, ttl time.Duration) *Tokens {
	return &Tokens{
		ja:  jwtauth.New(jwa.RS256.String(), key, &key.PublicKey),
		ttl: ttl,
	}
}

func (t *Tokens) JWTAuth() *jwtauth.JWTAuth {
	return t.ja
}

func (t *Tokens) Issue(address string) (string, error) {
	claims := map[string]any{ClaimAddress: address}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, t.ttl)

	_, token, err := t.ja.Encode(claims)
	return token, err
}

// Verify validates signature and expiry and returns the address claim.
func (t *Tokens) Verify(token string) (string, error) {
	tok, err := jwtauth.VerifyToken(t.ja, token)
	if err != nil {
		return "", err
	}
	v, ok := tok.Get(ClaimAddress)
	if !ok {
		return "", ErrTokenClaims
	}
	addr, ok := v.(string)
	if !ok || addr == "" {
		return "", ErrTokenClaims
	}
	return addr, nil
}
