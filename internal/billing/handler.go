package billing

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateSubscription(ctx context.Context, payerID, creatorID string, amount int64, metadata json.RawMessage) (*Transaction, error)
	CreatePurchase(ctx context.Context, payerID, creatorID string, amount int64, metadata json.RawMessage) (*Transaction, error)
	CreateTip(ctx context.Context, payerID, creatorID string, amount int64, metadata json.RawMessage) (*Transaction, error)
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
}

type Handler struct {
	transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

// CreateSubscription handles POST /api/v1/billing/subscriptions
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	h.createCharge(w, r, h.Service.CreateSubscription)
}

// CreatePurchase handles POST /api/v1/billing/purchases
func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	h.createCharge(w, r, h.Service.CreatePurchase)
}

// CreateTip handles POST /api/v1/billing/tips
func (h *Handler) CreateTip(w http.ResponseWriter, r *http.Request) {
	h.createCharge(w, r, h.Service.CreateTip)
}

// GetTransaction handles GET /api/v1/billing/transactions/{transactionID}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		h.HandleError(w, errors.NewValidationError("transaction ID is required", errors.ErrCodeValidationFailed))
		return
	}

	txn, err := h.Service.GetTransaction(r.Context(), transactionID)
	if err != nil {
		h.Logger.Error("GetTransaction: service error", "error", err, "transaction_id", transactionID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toTransactionResponse(txn))
}

type createFunc func(ctx context.Context, payerID, creatorID string, amount int64, metadata json.RawMessage) (*Transaction, error)

func (h *Handler) createCharge(w http.ResponseWriter, r *http.Request, create createFunc) {
	var req CreateChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("createCharge: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	txn, err := create(r.Context(), req.PayerID, req.CreatorID, req.Amount, req.Metadata)
	if err != nil {
		h.Logger.Error("createCharge: service error", "error", err, "payer_id", req.PayerID, "creator_id", req.CreatorID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, toTransactionResponse(txn))
}
