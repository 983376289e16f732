package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/honeynil/BizPromptService/internal/infrastructure/auth"
	"github.com/honeynil/BizPromptService/internal/infrastructure/observability"
	service "github.com/honeynil/BizPromptService/internal/services"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

const (
	maxBodyBytes        = 1 << 20
	defaultListLimit    = 1000
	maxWebhookBodyBytes = 1 << 18
)

type Services struct {
	Auth    service.AuthService
	Payment service.PaymentService
	Lead    service.LeadService
	Prompt  service.PromptService
	Survey  service.SurveyService
	Admin   service.AdminService
}

type Handler struct {
	auth     service.AuthService
	payment  service.PaymentService
	lead     service.LeadService
	prompt   service.PromptService
	survey   service.SurveyService
	admin    service.AdminService
	validate *validator.Validate
}

func NewHandler(s Services) *Handler {
	return &Handler{
		auth:     s.Auth,
		payment:  s.Payment,
		lead:     s.Lead,
		prompt:   s.Prompt,
		survey:   s.Survey,
		admin:    s.Admin,
		validate: validator.New(),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)

	r.HandleFunc("/lead-magnet/signup", h.LeadMagnetSignup).Methods(http.MethodPost)

	r.HandleFunc("/prompts", h.ListPrompts).Methods(http.MethodGet)
	r.HandleFunc("/prompts/categories", h.PromptCategories).Methods(http.MethodGet)

	r.HandleFunc("/surveys", h.ListSurveys).Methods(http.MethodGet)
	r.HandleFunc("/surveys/{survey_id}/responses", h.SubmitSurveyResponse).Methods(http.MethodPost)

	r.HandleFunc("/payments/status/{session_id}", h.PaymentStatus).Methods(http.MethodGet)
	r.HandleFunc("/payments/webhook", h.StripeWebhook).Methods(http.MethodPost)
	r.HandleFunc("/webhook/stripe", h.StripeWebhook).Methods(http.MethodPost)
}

// RegisterOptionalAuthRoutes expects auth.Middleware.Optional in front.
func (h *Handler) RegisterOptionalAuthRoutes(r *mux.Router) {
	r.HandleFunc("/payments/create-checkout", h.CreateCheckout).Methods(http.MethodPost)
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	r.HandleFunc("/prompts/premium", h.PremiumPrompts).Methods(http.MethodGet)
}

func (h *Handler) RegisterAdminRoutes(r *mux.Router) {
	r.HandleFunc("/dashboard", h.AdminDashboard).Methods(http.MethodGet)
	r.HandleFunc("/users", h.AdminUsers).Methods(http.MethodGet)
	r.HandleFunc("/survey-responses", h.AdminSurveyResponses).Methods(http.MethodGet)
	r.HandleFunc("/transactions", h.AdminTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{session_id}/refund", h.AdminRefund).Methods(http.MethodPost)
	r.HandleFunc("/subscribers/{email}", h.AdminSubscriber).Methods(http.MethodGet)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", pkgerrors.ErrInvalidInput)
		}
		return fmt.Errorf("%w: malformed JSON: %v", pkgerrors.ErrInvalidInput, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed on %s", pkgerrors.ErrInvalidInput, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", pkgerrors.ErrInvalidInput, err)
	}
	return nil
}

// fail maps service errors onto HTTP statuses. Internal details are logged,
// not returned.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observability.Logger(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		switch {
		case errors.Is(err, pkgerrors.ErrConfiguration):
			err = pkgerrors.ErrConfiguration
		case errors.Is(err, pkgerrors.ErrProviderUnavailable):
			err = pkgerrors.ErrProviderUnavailable
		case errors.Is(err, pkgerrors.ErrESPNotConfigured):
			err = pkgerrors.ErrESPNotConfigured
		default:
			err = pkgerrors.ErrInternal
		}
	}
	h.writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidInput),
		errors.Is(err, pkgerrors.ErrInvalidProduct),
		errors.Is(err, pkgerrors.ErrEmailExists),
		errors.Is(err, pkgerrors.ErrSignatureInvalid):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrInvalidCredentials),
		errors.Is(err, pkgerrors.ErrAccountInactive),
		errors.Is(err, pkgerrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, pkgerrors.ErrForbidden),
		errors.Is(err, pkgerrors.ErrPremiumRequired):
		return http.StatusForbidden
	case errors.Is(err, pkgerrors.ErrTransactionNotFound),
		errors.Is(err, pkgerrors.ErrSurveyNotFound),
		errors.Is(err, pkgerrors.ErrSubscriberNotFound),
		errors.Is(err, pkgerrors.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrInvalidTransition),
		errors.Is(err, pkgerrors.ErrStatusConflict):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrProviderUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, pkgerrors.ErrESPNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func currentUserID(r *http.Request) (string, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.UserID, true
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > defaultListLimit {
		return defaultListLimit
	}
	return n
}
