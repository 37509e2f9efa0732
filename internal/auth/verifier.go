package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Verifier parses and validates bearer tokens issued by the identity
// provider. Only verification lives here; token issuance belongs to the auth
// frontend.
type Verifier struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Now       func() time.Time
}

// ParseAccessToken verifies the token's signature and claims and returns the
// subject user id.
func (v Verifier) ParseAccessToken(raw string) (string, error) {
	if len(v.Secret) == 0 {
		return "", errors.New("auth: secret not configured")
	}
	now := time.Now().UTC()
	if v.Now != nil {
		now = v.Now()
	}

	tok, err := jwt.ParseString(raw, jwt.WithKey(jwa.HS256, v.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: parse token: %w", err)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	if err := jwt.Validate(tok, options...); err != nil {
		return "", fmt.Errorf("auth: validate token: %w", err)
	}

	sub := tok.Subject()
	if sub == "" {
		return "", errors.New("auth: token missing subject")
	}
	return sub, nil
}
