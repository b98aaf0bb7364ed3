package handler

import (
	"errors"
	"net/http"

	"github.com/parisxmas/OxiDB/OxiForms/internal/service"
)

const WebhookSecretHeader = "X-Airtable-Webhook-Secret"

type WebhookHandler struct {
	svc *service.WebhookService
}

func NewWebhookHandler(svc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

func (h *WebhookHandler) Airtable(w http.ResponseWriter, r *http.Request) {
	var ev service.WebhookEvent
	if err := readJSON(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	secret := r.Header.Get(WebhookSecretHeader)
	if secret == "" {
		secret = ev.WebhookSecret
	}
	if err := h.svc.Authorize(secret); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}

	found, err := h.svc.Handle(r.Context(), ev)
	switch {
	case errors.Is(err, service.ErrInvalidWebhook):
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
	case err != nil:
		writeServiceError(w, r, err, "Webhook processing failed")
	case !found:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Record not found in database"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook processed successfully"})
	}
}
