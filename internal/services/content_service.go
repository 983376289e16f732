package service

import (
	"context"
	"fmt"
	"strings"

	stderrors "errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/honeynil/BizPromptService/internal/catalog"
	"github.com/honeynil/BizPromptService/internal/models"
	"github.com/honeynil/BizPromptService/internal/repository"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

type PromptService interface {
	List(category models.PromptCategory, premium *bool) []models.Prompt
	Categories() []models.CategoryCount
	Premium(ctx context.Context, userID string) ([]models.Prompt, error)
}

type promptService struct {
	catalog  *catalog.Catalog
	userRepo repository.UserRepository
}

func NewPromptService(c *catalog.Catalog, userRepo repository.UserRepository) *promptService {
	return &promptService{catalog: c, userRepo: userRepo}
}

func (s *promptService) List(category models.PromptCategory, premium *bool) []models.Prompt {
	return s.catalog.Prompts(category, premium)
}

func (s *promptService) Categories() []models.CategoryCount {
	return s.catalog.Categories()
}

// Premium returns the premium prompts to paid or trial subscribers.
func (s *promptService) Premium(ctx context.Context, userID string) ([]models.Prompt, error) {
	ctx, span := otel.Tracer("prompt-service").Start(ctx, "Premium")
	defer span.End()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrUserNotFound) {
			return nil, pkgerrors.ErrUnauthorized
		}
		span.RecordError(err)
		return nil, fmt.Errorf("%w: failed to load user", pkgerrors.ErrInternal)
	}
	if !user.HasPremiumAccess() {
		return nil, pkgerrors.ErrPremiumRequired
	}
	premium := true
	return s.catalog.Prompts("", &premium), nil
}

type SurveyService interface {
	Active() []models.Survey
	Submit(ctx context.Context, surveyID, email string, responses map[string]any) (*models.SurveyResponse, error)
}

type surveyService struct {
	catalog      *catalog.Catalog
	responseRepo repository.SurveyResponseRepository
	validate     *validator.Validate
}

func NewSurveyService(c *catalog.Catalog, responseRepo repository.SurveyResponseRepository) *surveyService {
	return &surveyService{catalog: c, responseRepo: responseRepo, validate: validator.New()}
}

func (s *surveyService) Active() []models.Survey {
	return s.catalog.ActiveSurveys()
}

func (s *surveyService) Submit(ctx context.Context, surveyID, email string, responses map[string]any) (*models.SurveyResponse, error) {
	ctx, span := otel.Tracer("survey-service").Start(ctx, "Submit")
	defer span.End()

	if _, ok := s.catalog.Survey(surveyID); !ok {
		return nil, pkgerrors.ErrSurveyNotFound
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: user_email must be a valid email", pkgerrors.ErrInvalidInput)
	}
	if responses == nil {
		responses = map[string]any{}
	}

	resp := &models.SurveyResponse{
		ID:        uuid.NewString(),
		SurveyID:  surveyID,
		UserEmail: email,
		Responses: responses,
	}
	if err := s.responseRepo.Create(ctx, resp); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: failed to store survey response", pkgerrors.ErrInternal)
	}
	return resp, nil
}
