package credentials

import (
	"encoding/json"

	jose "github.com/go-jose/go-jose/v3"
)

// jwtExpiry opportunistically parses token as a JWT and returns its
// exp claim as a unix-seconds expiry, following jwt/jwtcache.go's
// checkExpiry technique. It returns nil (never-expiring) for anything
// that isn't a parseable JWT with an exp claim: a bearer token from a
// static or auth-provider/exec-provider source is often opaque, and an
// opaque token's expiry is whatever the caller's kubeconfig says it is
// — this is purely a fallback for when neither the exec-provider
// status nor an explicit auth-provider expiry path supplied one.
func jwtExpiry(token string) *int64 {
	parsed, err := jose.ParseSigned(token)
	if err != nil {
		return nil
	}

	var claims struct {
		Expiry int64 `json:"exp"`
	}
	if err := json.Unmarshal(parsed.UnsafePayloadWithoutVerification(), &claims); err != nil {
		return nil
	}
	if claims.Expiry == 0 {
		return nil
	}
	return &claims.Expiry
}
