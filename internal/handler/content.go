package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/honeynil/BizPromptService/internal/models"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

func (h *Handler) LeadMagnetSignup(w http.ResponseWriter, r *http.Request) {
	var req models.LeadSignupRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.lead.Signup(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var premium *bool
	if raw := q.Get("is_premium"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, pkgerrors.ErrInvalidInput)
			return
		}
		premium = &v
	}
	h.writeJSON(w, http.StatusOK, h.prompt.List(models.PromptCategory(q.Get("category")), premium))
}

func (h *Handler) PromptCategories(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.prompt.Categories())
}

func (h *Handler) PremiumPrompts(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, pkgerrors.ErrUnauthorized)
		return
	}
	prompts, err := h.prompt.Premium(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, prompts)
}

func (h *Handler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.survey.Active())
}

func (h *Handler) SubmitSurveyResponse(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["survey_id"]

	var answers map[string]any
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		h.writeError(w, http.StatusBadRequest, pkgerrors.ErrInvalidInput)
		return
	}

	if _, err := h.survey.Submit(r.Context(), surveyID, r.URL.Query().Get("user_email"), answers); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Survey response submitted"})
}
