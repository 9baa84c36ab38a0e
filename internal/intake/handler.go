package intake

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	errors "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/transport"
)

const maxEventBytes = 1 << 20

type ServiceAPI interface {
	HandleExternalEvent(ctx context.Context, raw []byte) (*Outcome, error)
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

// HandleWebhook handles POST /api/v1/webhooks/payment. The signature
// middleware runs before this handler; anything that reaches it is authentic.
// Duplicates still answer 200 so the gateway stops redelivering.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		h.Logger.Error("HandleWebhook: failed to read body", "error", err)
		h.HandleError(w, errors.NewValidationError("unreadable request body", errors.ErrCodeValidationFailed))
		return
	}

	outcome, err := h.Service.HandleExternalEvent(r.Context(), raw)
	if err != nil {
		h.Logger.Error("HandleWebhook: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"received":  true,
		"duplicate": outcome.Duplicate,
		"status":    outcome.Status,
	})
}
