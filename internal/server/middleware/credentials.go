package middleware

import (
	"context"
	"net/http"

	"github.com/alexvgr/krakendash/internal/domain"
)

const (
	headerAPIKey    = "X-Api-Key"
	headerAPISecret = "X-Api-Secret"

	cookieAPIKey    = "kraken_api_key"
	cookieAPISecret = "kraken_api_secret"
)

const credentialsKey contextKey = "credentials"

// CredentialsFrom returns the API credentials attached to the request
// context, if the client supplied any.
func CredentialsFrom(ctx context.Context) (domain.Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey).(domain.Credentials)
	return creds, ok && creds.Valid()
}

// Credentials returns middleware that extracts the client's exchange API
// credentials from request headers, falling back to cookies, and attaches
// them to the request context. Requests without credentials pass through
// untouched; handlers that need them reject those themselves.
func Credentials() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds := extractCredentials(r)
			if creds.Valid() {
				ctx := context.WithValue(r.Context(), credentialsKey, creds)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractCredentials(r *http.Request) domain.Credentials {
	creds := domain.Credentials{
		APIKey:    r.Header.Get(headerAPIKey),
		APISecret: r.Header.Get(headerAPISecret),
	}
	if creds.Valid() {
		return creds
	}

	if c, err := r.Cookie(cookieAPIKey); err == nil {
		creds.APIKey = c.Value
	}
	if c, err := r.Cookie(cookieAPISecret); err == nil {
		creds.APISecret = c.Value
	}
	return creds
}
