package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-api-social/internal/application/payment"
)

// Larger deliveries get 413 instead of a failed signature check.
const maxWebhookBytes = 1 << 20

// PaymentHandler handles the premium upgrade checkout and its callbacks.
type PaymentHandler struct {
	svc payment.Service
}

func NewPaymentHandler(svc payment.Service) *PaymentHandler { return &PaymentHandler{svc: svc} }

func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.CreateCheckout(r.Context(), uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	if err != nil || len(payload) == 0 || sig == "" {
		writeError(w, http.StatusBadRequest, "Missing payload or signature")
		return
	}
	if err := h.svc.HandleWebhook(r.Context(), payload, sig); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *PaymentHandler) VerifySession(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.VerifySession(r.Context(), uid, r.URL.Query().Get("session_id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Membership upgraded successfully",
	})
}
