package middleware_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/avelines/creator-ledger/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var _ = Describe("VerifySignature", func() {
	const secret = "test-signing-secret"

	var (
		handler  http.Handler
		seenBody string
	)

	sign := func(body string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(body))
		return hex.EncodeToString(mac.Sum(nil))
	}

	BeforeEach(func() {
		seenBody = ""
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := io.ReadAll(r.Body)
			Expect(err).NotTo(HaveOccurred())
			seenBody = string(raw)
			w.WriteHeader(http.StatusOK)
		})
		handler = middleware.VerifySignature(secret, logger)(next)
	})

	It("should pass an authentic delivery through with its body intact", func() {
		body := `{"id":"evt-1","type":"payment.confirmed"}`
		req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(body))
		req.Header.Set("X-Gateway-Signature", sign(body))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(seenBody).To(Equal(body))
	})

	It("should reject a missing signature", func() {
		req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(`{}`))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(seenBody).To(BeEmpty())
	})

	It("should reject a signature over a different body", func() {
		req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(`{"tampered":true}`))
		req.Header.Set("X-Gateway-Signature", sign(`{"original":true}`))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(seenBody).To(BeEmpty())
	})

	It("should reject garbage in the signature header", func() {
		body := `{}`
		req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(body))
		req.Header.Set("X-Gateway-Signature", "not-a-hex-mac")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})
