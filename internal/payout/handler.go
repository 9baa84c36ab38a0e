package payout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	RequestPayout(ctx context.Context, creatorID string, amount int64, mode Mode, destination string) (*Payout, error)
	CancelPayout(ctx context.Context, payoutID, reason string) (*Payout, error)
	GetPayout(ctx context.Context, payoutID string) (*Payout, error)
	GetPayoutHistory(ctx context.Context, creatorID string, limit, offset int) ([]*Payout, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Payout, error)
	TotalPaidOut(ctx context.Context, creatorID string) (int64, error)
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

// RequestPayout handles POST /api/v1/payouts
func (h *Handler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	var req RequestPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("RequestPayout: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.RequestPayout(r.Context(), req.CreatorID, req.Amount, Mode(req.Mode), req.Destination)
	if err != nil {
		h.Logger.Error("RequestPayout: service error", "error", err, "creator_id", req.CreatorID, "amount", req.Amount)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, toPayoutResponse(p))
}

// GetPayout handles GET /api/v1/payouts/{payoutID}
func (h *Handler) GetPayout(w http.ResponseWriter, r *http.Request) {
	payoutID := chi.URLParam(r, "payoutID")
	if payoutID == "" {
		h.HandleError(w, errors.NewValidationError("payout ID is required", errors.ErrCodeValidationFailed))
		return
	}

	p, err := h.Service.GetPayout(r.Context(), payoutID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toPayoutResponse(p))
}

// CancelPayout handles POST /api/v1/payouts/{payoutID}/cancel
func (h *Handler) CancelPayout(w http.ResponseWriter, r *http.Request) {
	payoutID := chi.URLParam(r, "payoutID")
	if payoutID == "" {
		h.HandleError(w, errors.NewValidationError("payout ID is required", errors.ErrCodeValidationFailed))
		return
	}

	var req CancelPayoutRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	p, err := h.Service.CancelPayout(r.Context(), payoutID, req.Reason)
	if err != nil {
		h.Logger.Error("CancelPayout: service error", "error", err, "payout_id", payoutID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toPayoutResponse(p))
}

// GetPayoutHistory handles GET /api/v1/creators/{creatorID}/payouts
func (h *Handler) GetPayoutHistory(w http.ResponseWriter, r *http.Request) {
	creatorID := chi.URLParam(r, "creatorID")
	if creatorID == "" {
		h.HandleError(w, errors.NewValidationError("creator ID is required", errors.ErrCodeValidationFailed))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	payouts, err := h.Service.GetPayoutHistory(r.Context(), creatorID, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	totalPaid, err := h.Service.TotalPaidOut(r.Context(), creatorID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"creator_id":     creatorID,
		"total_paid_out": totalPaid,
		"payouts":        toPayoutResponses(payouts),
	})
}

// ListPayouts handles GET /api/v1/payouts?status=PENDING
func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = StatusPending
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	payouts, err := h.Service.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"payouts": toPayoutResponses(payouts),
	})
}
