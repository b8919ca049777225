package testhelpers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// GenerateTestJWT creates a test JWT for use when verification is disabled.
// The token has a valid structure but no signature (alg: none) and carries
// the subject and role claims the engine authorizes on.
func GenerateTestJWT(sub string, roles ...string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	payload, _ := json.Marshal(map[string]any{
		"sub":   sub,
		"roles": roles,
	})
	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)

	return fmt.Sprintf("%s.%s.", header, encodedPayload)
}

// GenerateTestJWTWithBearer returns the token with a "Bearer " prefix for
// the Authorization header.
func GenerateTestJWTWithBearer(sub string, roles ...string) string {
	return "Bearer " + GenerateTestJWT(sub, roles...)
}
