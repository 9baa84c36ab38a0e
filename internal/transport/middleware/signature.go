package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
)

const signatureHeader = "X-Gateway-Signature"

const maxSignedBodyBytes = 1 << 20

// VerifySignature authenticates webhook deliveries with an HMAC-SHA256 over
// the raw body. Invalid or missing signatures are rejected here and never
// reach the intake pipeline. The body is restored for downstream handlers.
func VerifySignature(secret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(signatureHeader)
			if provided == "" {
				logger.Warn("webhook rejected: missing signature", "path", r.URL.Path)
				http.Error(w, "missing signature", http.StatusUnauthorized)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBodyBytes))
			if err != nil {
				http.Error(w, "unreadable body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			mac := hmac.New(sha256.New, []byte(secret))
			mac.Write(body)
			expected := hex.EncodeToString(mac.Sum(nil))

			if !hmac.Equal([]byte(expected), []byte(provided)) {
				logger.Warn("webhook rejected: invalid signature", "path", r.URL.Path)
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
