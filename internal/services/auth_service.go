package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stderrors "errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"

	"github.com/honeynil/BizPromptService/internal/infrastructure/auth"
	"github.com/honeynil/BizPromptService/internal/infrastructure/redis"
	"github.com/honeynil/BizPromptService/internal/models"
	"github.com/honeynil/BizPromptService/internal/repository"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthToken, error)
	Login(ctx context.Context, email, password string) (*models.AuthToken, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type authService struct {
	userRepo    repository.UserRepository
	redisClient redis.RedisClient
	tokens      *auth.TokenService
	now         func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, redisClient redis.RedisClient, tokens *auth.TokenService) *authService {
	return &authService{
		userRepo:    userRepo,
		redisClient: redisClient,
		tokens:      tokens,
		now:         time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthToken, error) {
	ctx, span := otel.Tracer("auth-service").Start(ctx, "Register")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		span.SetStatus(codes.Error, "empty email or password")
		return nil, pkgerrors.ErrInvalidInput
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if existing != nil {
		span.SetStatus(codes.Error, "email already registered")
		slog.Warn("email already registered", "email", email, "existing_id", existing.ID)
		return nil, pkgerrors.ErrEmailExists
	}
	if err != nil && !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user check failed")
		slog.Error("failed to check user existence", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to check user existence", pkgerrors.ErrInternal)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		slog.Error("failed to hash password", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	user := &models.User{
		Email:              email,
		PasswordHash:       string(hash),
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Role:               models.RoleCustomer,
		SubscriptionStatus: models.SubscriptionFree,
		IsActive:           true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if stderrors.Is(err, pkgerrors.ErrEmailExists) {
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "user creation failed")
		slog.Error("failed to create user in DB", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to create user", pkgerrors.ErrInternal)
	}
	span.SetAttributes(attribute.String("user_id", user.ID))

	slog.Info("user registered successfully", "user_id", user.ID, "email", email)
	return s.issueToken(ctx, user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.AuthToken, error) {
	ctx, span := otel.Tracer("auth-service").Start(ctx, "Login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
			span.RecordError(err)
			slog.Error("failed to login", "email", email, "error", err)
			return nil, fmt.Errorf("%w: failed to load user", pkgerrors.ErrInternal)
		}
		slog.Warn("login for unknown email", "email", email)
		return nil, pkgerrors.ErrInvalidCredentials
	}

	// Lead-only accounts have no password and cannot log in.
	if user.PasswordHash == "" {
		return nil, pkgerrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("invalid password", "email", email)
		return nil, pkgerrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, pkgerrors.ErrAccountInactive
	}

	now := s.now().UTC()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		slog.Error("failed to update last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &now
	}

	slog.Info("user logged in", "email", email, "user_id", user.ID)
	return s.issueToken(ctx, user)
}

func (s *authService) Me(ctx context.Context, userID string) (*models.User, error) {
	ctx, span := otel.Tracer("auth-service").Start(ctx, "Me")
	defer span.End()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrUserNotFound) {
			return nil, pkgerrors.ErrUnauthorized
		}
		span.RecordError(err)
		return nil, fmt.Errorf("%w: failed to load user", pkgerrors.ErrInternal)
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account when no admin exists yet.
func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		slog.Info("admin bootstrap skipped: no credentials configured")
		return nil
	}

	exists, err := s.userRepo.HasAdmin(ctx)
	if err != nil {
		return fmt.Errorf("failed to check admin: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := &models.User{
		Email:              email,
		PasswordHash:       string(hash),
		FirstName:          "Admin",
		LastName:           "User",
		Role:               models.RoleAdmin,
		SubscriptionStatus: models.SubscriptionFree,
		IsActive:           true,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	slog.Info("admin user created", "email", admin.Email, "user_id", admin.ID)
	return nil
}

func (s *authService) issueToken(ctx context.Context, user *models.User) (*models.AuthToken, error) {
	token, expiresAt, err := s.tokens.GenerateJWT(user.ID, string(user.Role))
	if err != nil {
		slog.Error("failed to generate JWT", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: failed to generate token", pkgerrors.ErrInternal)
	}

	if err := s.redisClient.Set(ctx, auth.TokenKey(user.ID), token, s.tokens.TTL()); err != nil {
		slog.Error("failed to cache JWT", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: failed to store token", pkgerrors.ErrInternal)
	}

	return &models.AuthToken{
		AccessToken: token,
		TokenType:   models.TokenTypeBearer,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}
