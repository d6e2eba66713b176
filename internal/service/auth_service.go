package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/societyops/society-service/internal/auth"
	"github.com/societyops/society-service/internal/config"
	"github.com/societyops/society-service/internal/domain"
	"github.com/societyops/society-service/internal/repository"
	apperrors "github.com/societyops/society-service/pkg/util"
)

// AuthService handles registration, login and password changes.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
	logger *zap.Logger
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Tokens   *auth.TokenManager
	Config   config.AuthConfig
	Logger   *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: deps.UserRepo, tokens: deps.Tokens, cfg: deps.Config, logger: logger}
}

// RegisterInput describes a self-service registration.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Role       domain.UserRole
	Phone      string
	FlatNumber string
	Building   string
	Skills     []string
	HourlyRate float64
}

// AuthResult carries the signed token and the account it belongs to.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Register creates a resident or technician account. Admin accounts are
// provisioned out of band, never through this endpoint.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("valid email is required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleResident
	}
	if role != domain.RoleResident && role != domain.RoleTechnician {
		return nil, apperrors.NewValidationError("role must be resident or technician", map[string]any{"role": input.Role})
	}
	if role == domain.RoleTechnician {
		if len(input.Skills) == 0 {
			return nil, apperrors.NewValidationError("technician requires at least one skill", nil)
		}
		if input.HourlyRate <= 0 {
			return nil, apperrors.NewValidationError("technician requires a positive hourly rate", nil)
		}
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Phone:        strings.TrimSpace(input.Phone),
		Active:       true,
	}
	if flat := strings.TrimSpace(input.FlatNumber); flat != "" {
		user.FlatNumber = &flat
	}
	if building := strings.TrimSpace(input.Building); building != "" {
		user.Building = &building
	}
	if role == domain.RoleTechnician {
		user.Skills = normalizeSkills(input.Skills)
		user.HourlyRate = input.HourlyRate
		user.Availability = domain.AvailabilityAvailable
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("account registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return s.issue(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.Active {
		return nil, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// ChangePassword rotates the actor's own password.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.User, current, next string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if len(next) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if err := auth.ComparePassword(actor.PasswordHash, current); err != nil {
		return apperrors.NewUnauthorized("current password is incorrect")
	}
	hash, err := auth.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, actor.ID, hash); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("password changed", zap.String("user_id", actor.ID))
	return nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, skill := range skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		out = append(out, skill)
	}
	return out
}
