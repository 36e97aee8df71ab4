package ruleloader

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ManifestClaims is the JWT payload a rule-file publisher signs: an
// attestation that a specific content hash is the authentic current
// catalog. Grounded on core/pkg/identity/token.go's IdentityClaims,
// which embeds jwt.RegisteredClaims the same way.
type ManifestClaims struct {
	jwt.RegisteredClaims
	ContentHash string `json:"content_hash"`
}

// ManifestVerifier checks a rule file's content hash against a
// signed manifest using a fixed verification key. Unlike
// identity.TokenManager, which also signs tokens, a rule-file
// consumer only ever verifies — it never mints manifests itself — so
// there is no corresponding "Sign" method here.
type ManifestVerifier struct {
	keyFunc jwt.Keyfunc
	token   string // compact JWS fetched alongside the rule file
}

// NewManifestVerifier builds a verifier against a single public key
// and the manifest token that travels with this load (the common case
// for a rule catalog with one publisher).
func NewManifestVerifier(publicKey any, manifestToken string) *ManifestVerifier {
	return &ManifestVerifier{
		keyFunc: func(*jwt.Token) (any, error) { return publicKey, nil },
		token:   manifestToken,
	}
}

// Verify checks that the verifier's manifest token attests to
// contentHash and that the token is not expired.
func (v *ManifestVerifier) Verify(contentHash string) error {
	if v.token == "" {
		return fmt.Errorf("ruleloader: no manifest token provided")
	}
	token, err := jwt.ParseWithClaims(v.token, &ManifestClaims{}, v.keyFunc)
	if err != nil {
		return fmt.Errorf("ruleloader: manifest signature invalid: %w", err)
	}
	claims, ok := token.Claims.(*ManifestClaims)
	if !ok || !token.Valid {
		return jwt.ErrTokenSignatureInvalid
	}
	if claims.ContentHash != contentHash {
		return fmt.Errorf("ruleloader: manifest attests hash %q, rule file hash is %q", claims.ContentHash, contentHash)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now().UTC()) {
		return fmt.Errorf("ruleloader: manifest expired at %s", claims.ExpiresAt)
	}
	return nil
}
