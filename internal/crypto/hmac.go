// Package crypto implements the Kraken Futures request signing scheme.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// derivativesPrefix is stripped from the request path before signing. The
// exchange routes some endpoints under /derivatives but signs them against
// the bare path.
const derivativesPrefix = "/derivatives"

// Authent computes the Kraken Futures request signature:
//
//	base64(HMAC-SHA512(base64decode(secret), SHA256(postData + nonce + path)))
//
// where path has the /derivatives prefix removed. secret is the base64
// encoded API secret as issued by the exchange; if it does not decode, the
// raw bytes are used so the caller gets an obviously wrong signature rather
// than a panic.
func Authent(secret, postData, nonce, path string) string {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		key = []byte(secret)
	}

	message := sha256.Sum256([]byte(postData + nonce + strings.TrimPrefix(path, derivativesPrefix)))

	mac := hmac.New(sha512.New, key)
	mac.Write(message[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers returns the authentication headers for a signed request using the
// current time as nonce.
//
// Returned header keys:
//   - APIKey
//   - Authent
//   - Nonce
func Headers(apiKey, secret, postData, path string) map[string]string {
	return HeadersAt(apiKey, secret, postData, path, time.Now().UnixMilli())
}

// HeadersAt is like Headers but lets the caller supply the epoch-millisecond
// nonce (useful for deterministic testing).
func HeadersAt(apiKey, secret, postData, path string, nonceMS int64) map[string]string {
	nonce := strconv.FormatInt(nonceMS, 10)
	return map[string]string{
		"APIKey":  apiKey,
		"Authent": Authent(secret, postData, nonce, path),
		"Nonce":   nonce,
	}
}
