package domain

import "fmt"

// Credentials carries a caller's Kraken Futures API key pair for the duration
// of a single request. The secret is the base64-encoded value issued by the
// exchange. Credentials are never persisted server-side; they only flow from
// the transport layer down to the signed client.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Valid reports whether both halves of the key pair are present.
func (c Credentials) Valid() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// CacheKeyPrefix returns a short, non-reversible prefix of the API key used
// to partition cache entries per account without storing the full key.
func (c Credentials) CacheKeyPrefix() string {
	if len(c.APIKey) <= 8 {
		return c.APIKey
	}
	return c.APIKey[:8]
}

// String returns a redacted representation suitable for logging.
func (c Credentials) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("Credentials{key=%s, secret=%s}", redact(c.APIKey), redact(c.APISecret))
}
