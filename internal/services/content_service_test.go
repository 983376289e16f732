package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/honeynil/BizPromptService/internal/catalog"
	"github.com/honeynil/BizPromptService/internal/models"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		[]models.Prompt{
			{ID: "free-1", Title: "Free", Category: models.CategoryEmail},
			{ID: "premium-1", Title: "Premium", Category: models.CategoryResearch, IsPremium: true},
			{ID: "premium-2", Title: "Premium 2", Category: models.CategoryResearch, IsPremium: true},
		},
		[]models.Survey{
			{ID: "business-productivity-assessment", Title: "Assessment", IsActive: true},
			{ID: "retired", Title: "Old", IsActive: false},
		},
	)
	require.NoError(t, err)
	return c
}

func TestPromptService(t *testing.T) {
	ctx := context.Background()

	t.Run("list and categories", func(t *testing.T) {
		svc := NewPromptService(testCatalog(t), &mockUserRepository{})

		assert.Len(t, svc.List("", nil), 3)
		assert.Len(t, svc.List(models.CategoryResearch, nil), 2)
		free := false
		assert.Len(t, svc.List("", &free), 1)
		assert.Equal(t, models.CategoryCount{Category: models.CategoryResearch, Count: 2}, svc.Categories()[0])
	})

	t.Run("premium for paid user", func(t *testing.T) {
		userRepo := &mockUserRepository{}
		svc := NewPromptService(testCatalog(t), userRepo)
		userRepo.On("GetByID", mock.Anything, "user-1").Return(&models.User{ID: "user-1", SubscriptionStatus: models.SubscriptionPaid}, nil)

		prompts, err := svc.Premium(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, prompts, 2)
	})

	t.Run("premium for trial user", func(t *testing.T) {
		userRepo := &mockUserRepository{}
		svc := NewPromptService(testCatalog(t), userRepo)
		userRepo.On("GetByID", mock.Anything, "user-1").Return(&models.User{ID: "user-1", SubscriptionStatus: models.SubscriptionTrial}, nil)

		_, err := svc.Premium(ctx, "user-1")
		assert.NoError(t, err)
	})

	t.Run("premium denied for free user", func(t *testing.T) {
		userRepo := &mockUserRepository{}
		svc := NewPromptService(testCatalog(t), userRepo)
		userRepo.On("GetByID", mock.Anything, "user-1").Return(&models.User{ID: "user-1", SubscriptionStatus: models.SubscriptionFree}, nil)

		_, err := svc.Premium(ctx, "user-1")
		assert.ErrorIs(t, err, pkgerrors.ErrPremiumRequired)
	})

	t.Run("deleted user", func(t *testing.T) {
		userRepo := &mockUserRepository{}
		svc := NewPromptService(testCatalog(t), userRepo)
		userRepo.On("GetByID", mock.Anything, "gone").Return(nil, pkgerrors.ErrUserNotFound)

		_, err := svc.Premium(ctx, "gone")
		assert.ErrorIs(t, err, pkgerrors.ErrUnauthorized)
	})
}

func TestSurveyService(t *testing.T) {
	ctx := context.Background()

	t.Run("active surveys only", func(t *testing.T) {
		svc := NewSurveyService(testCatalog(t), &mockSurveyResponseRepository{})
		surveys := svc.Active()
		require.Len(t, surveys, 1)
		assert.Equal(t, "business-productivity-assessment", surveys[0].ID)
	})

	t.Run("submit stores response", func(t *testing.T) {
		repo := &mockSurveyResponseRepository{}
		svc := NewSurveyService(testCatalog(t), repo)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.SurveyResponse) bool {
			return r.SurveyID == "business-productivity-assessment" && r.UserEmail == "jane@example.com" && r.Responses["q4"] == float64(8)
		})).Return(nil)

		resp, err := svc.Submit(ctx, "business-productivity-assessment", "Jane@Example.com", map[string]any{"q4": float64(8)})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.ID)
		repo.AssertExpectations(t)
	})

	t.Run("unknown survey", func(t *testing.T) {
		svc := NewSurveyService(testCatalog(t), &mockSurveyResponseRepository{})
		_, err := svc.Submit(ctx, "nope", "jane@example.com", nil)
		assert.ErrorIs(t, err, pkgerrors.ErrSurveyNotFound)
	})

	t.Run("invalid email", func(t *testing.T) {
		svc := NewSurveyService(testCatalog(t), &mockSurveyResponseRepository{})
		_, err := svc.Submit(ctx, "business-productivity-assessment", "not-an-email", nil)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &mockSurveyResponseRepository{}
		svc := NewSurveyService(testCatalog(t), repo)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

		_, err := svc.Submit(ctx, "business-productivity-assessment", "jane@example.com", nil)
		assert.ErrorIs(t, err, pkgerrors.ErrInternal)
	})
}
