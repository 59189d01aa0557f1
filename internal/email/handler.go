package email

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

type Handler struct {
	sender Sender
	logger *slog.Logger
}

func NewHandler(sender Sender, logger *slog.Logger) *Handler {
	return &Handler{
		sender: sender,
		logger: logger,
	}
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := msg.Validate(); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) && len(verr.Fields) > 0 {
			h.writeError(w, http.StatusBadRequest, "invalid "+verr.Fields[0].Field)
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid message")
		return
	}

	if err := h.sender.Send(r.Context(), msg); err != nil {
		h.logger.Error("failed to send email", "error", err, "to", msg.To, "subject", msg.Subject)
		h.writeError(w, http.StatusBadGateway, "delivery failed")
		return
	}

	h.logger.Info("email sent", "to", msg.To, "subject", msg.Subject, "attachments", len(msg.Attachments))
	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
