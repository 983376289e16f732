package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.admin.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Users(r.Context(), listLimit(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) AdminSurveyResponses(w http.ResponseWriter, r *http.Request) {
	responses, err := h.admin.SurveyResponses(r.Context(), listLimit(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, responses)
}

func (h *Handler) AdminTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.payment.ListTransactions(r.Context(), listLimit(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) AdminRefund(w http.ResponseWriter, r *http.Request) {
	tx, err := h.payment.Refund(r.Context(), mux.Vars(r)["session_id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) AdminSubscriber(w http.ResponseWriter, r *http.Request) {
	sub, err := h.admin.Subscriber(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sub)
}
