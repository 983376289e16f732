package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/honeynil/BizPromptService/internal/infrastructure/observability"
	"github.com/honeynil/BizPromptService/internal/models"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var in models.CheckoutInput
	if err := h.decode(w, r, &in); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if userID, ok := currentUserID(r); ok {
		in.UserID = userID
	}

	result, err := h.payment.CreateCheckout(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]
	view, err := h.payment.GetStatus(r.Context(), sessionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// StripeWebhook answers 400 for bad signatures and 500 when processing should
// be retried by the provider. Everything else is acknowledged.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("failed to read webhook body"))
		return
	}

	err = h.payment.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	case errors.Is(err, pkgerrors.ErrSignatureInvalid):
		h.writeError(w, http.StatusBadRequest, pkgerrors.ErrSignatureInvalid)
	default:
		observability.Logger(r.Context()).Error("webhook processing failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, errors.New("webhook processing failed"))
	}
}
