package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/honeynil/BizPromptService/internal/marketing"
	"github.com/honeynil/BizPromptService/internal/models"
	"github.com/honeynil/BizPromptService/internal/repository"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

const leadMagnetURL = "/lead-magnet/download/ai-prompts-guide.pdf"

type LeadService interface {
	Signup(ctx context.Context, req models.LeadSignupRequest) (*models.LeadSignupResult, error)
}

type leadService struct {
	userRepo       repository.UserRepository
	leadRepo       repository.LeadRepository
	queue          marketing.Queue
	enqueueTimeout time.Duration
}

func NewLeadService(userRepo repository.UserRepository, leadRepo repository.LeadRepository, queue marketing.Queue) *leadService {
	return &leadService{
		userRepo:       userRepo,
		leadRepo:       leadRepo,
		queue:          queue,
		enqueueTimeout: defaultEnqueueTimeout,
	}
}

// Signup records a lead magnet download, creating a lead account for unknown
// emails, and queues the lead email flow.
func (s *leadService) Signup(ctx context.Context, req models.LeadSignupRequest) (*models.LeadSignupResult, error) {
	ctx, span := otel.Tracer("lead-service").Start(ctx, "Signup")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.ErrInvalidInput
	}
	magnetType := req.LeadMagnetType
	if magnetType == "" {
		magnetType = models.DefaultLeadMagnetType
	}
	source := req.Source
	if source == "" {
		source = models.DefaultLeadSource
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case stderrors.Is(err, pkgerrors.ErrUserNotFound):
		lead := &models.User{
			Email:              email,
			FirstName:          req.FirstName,
			Role:               models.RoleCustomer,
			SubscriptionStatus: models.SubscriptionLead,
			IsActive:           true,
		}
		if err := s.userRepo.Create(ctx, lead); err != nil && !stderrors.Is(err, pkgerrors.ErrEmailExists) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lead user creation failed")
			return nil, fmt.Errorf("%w: failed to create lead user", pkgerrors.ErrInternal)
		}
	case err != nil:
		span.RecordError(err)
		return nil, fmt.Errorf("%w: failed to check user existence", pkgerrors.ErrInternal)
	}

	signup := &models.LeadMagnetSignup{
		ID:             uuid.NewString(),
		Email:          email,
		FirstName:      req.FirstName,
		LeadMagnetType: magnetType,
		Source:         source,
	}
	if err := s.leadRepo.Create(ctx, signup); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lead signup persist failed")
		return nil, fmt.Errorf("%w: failed to record signup", pkgerrors.ErrInternal)
	}

	if s.queue != nil {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.enqueueTimeout)
		err := s.queue.Enqueue(qctx, marketing.Task{
			Kind:       marketing.KindLeadMagnetSignup,
			Email:      email,
			FirstName:  req.FirstName,
			MagnetType: magnetType,
			EnqueuedAt: time.Now().UTC(),
		})
		cancel()
		if err != nil {
			slog.Error("failed to enqueue lead task", "email", email, "error", err)
		}
	}

	slog.Info("lead magnet signup", "email", email, "lead_magnet_type", magnetType, "source", source)
	return &models.LeadSignupResult{
		Success:       true,
		Message:       "Successfully signed up for lead magnet",
		LeadMagnetURL: leadMagnetURL,
	}, nil
}
