package transfer_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	internal "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/transfer"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestTransfer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Transfer Suite")
}

var _ = Describe("Client", func() {
	var (
		server *httptest.Server
		ctx    context.Context
		logger *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	newClient := func() *transfer.Client {
		return transfer.NewClient(internal.TransferConfig{
			BaseURL: server.URL,
			APIKey:  "test-key",
		}, logger)
	}

	It("should send an authenticated idempotent transfer request", func() {
		var gotPath, gotAuth, gotIdemKey string
		var gotBody transfer.Request

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			gotIdemKey = r.Header.Get("Idempotency-Key")
			Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{"transfer_id": "tr-42", "status": "completed"},
			})
		}))

		result, err := newClient().Transfer(ctx, &transfer.Request{
			Destination:    "bank-acct-1",
			Amount:         2910,
			Currency:       "USD",
			IdempotencyKey: "payout-1",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.TransferID).To(Equal("tr-42"))
		Expect(result.Status).To(Equal("completed"))

		Expect(gotPath).To(Equal("/transfers"))
		Expect(gotAuth).To(Equal("Bearer test-key"))
		Expect(gotIdemKey).To(Equal("payout-1"))
		Expect(gotBody.Amount).To(Equal(int64(2910)))
		Expect(gotBody.Destination).To(Equal("bank-acct-1"))
	})

	It("should surface a non-2xx response as a gateway error", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))

		_, err := newClient().Transfer(ctx, &transfer.Request{
			Destination:    "bank-acct-1",
			Amount:         100,
			Currency:       "USD",
			IdempotencyKey: "payout-2",
		})
		Expect(err).To(HaveOccurred())

		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeGatewayTransfer))
	})

	It("should reject a response without a transfer id", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data": {"status": "completed"}}`))
		}))

		_, err := newClient().Transfer(ctx, &transfer.Request{
			Destination:    "bank-acct-1",
			Amount:         100,
			Currency:       "USD",
			IdempotencyKey: "payout-3",
		})
		Expect(err).To(HaveOccurred())
	})

	It("should fail when the gateway is unreachable", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		_, err := newClient().Transfer(ctx, &transfer.Request{
			Destination:    "bank-acct-1",
			Amount:         100,
			Currency:       "USD",
			IdempotencyKey: "payout-4",
		})
		Expect(err).To(HaveOccurred())
	})
})
