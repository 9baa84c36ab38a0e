package wallet

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/ledger"
	"github.com/avelines/creator-ledger/internal/transport"
)

type ServiceAPI interface {
	GetWallet(ctx context.Context, subjectID string) (*Wallet, error)
	GetStatement(ctx context.Context, subjectID string, limit, offset int) ([]*ledger.Entry, error)
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

// GetWallet handles GET /api/v1/wallets/{subjectID}. The subject is stamped
// into the request context by the route's SubjectContext middleware.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	subjectID := errors.SubjectIDFromContext(r.Context())
	if subjectID == "" {
		h.HandleError(w, errors.NewValidationError("subject ID is required", errors.ErrCodeValidationFailed))
		return
	}

	wallet, err := h.Service.GetWallet(r.Context(), subjectID)
	if err != nil {
		h.Logger.Error("GetWallet: service error", "error", err, "subject_id", subjectID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, wallet)
}

// GetStatement handles GET /api/v1/wallets/{subjectID}/entries
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	subjectID := errors.SubjectIDFromContext(r.Context())
	if subjectID == "" {
		h.HandleError(w, errors.NewValidationError("subject ID is required", errors.ErrCodeValidationFailed))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.Service.GetStatement(r.Context(), subjectID, limit, offset)
	if err != nil {
		h.Logger.Error("GetStatement: service error", "error", err, "subject_id", subjectID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"subject_id": subjectID,
		"entries":    entries,
	})
}
