package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/ratelimit"
	"github.com/spec-kit/auth-service/internal/repository"
)

// RegisterInput carries a self-registration request.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        string
	Permissions []string
}

// AuthService coordinates registration, login and token renewal.
type AuthService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	limiter    ratelimit.Limiter
	tokenMgr   *auth.TokenManager
	refresh    *RefreshTokenManager
	bcryptCost int
	logger     *zap.Logger
	metrics    *observability.Metrics
	events     events.Dispatcher
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	RoleRepo         repository.RoleRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Limiter          ratelimit.Limiter
	Logger           *zap.Logger
	Metrics          *observability.Metrics
	Events           events.Dispatcher
	TokenOptions     []auth.TokenOption
	RefreshOptions   []RefreshTokenOption
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) (*AuthService, error) {
	tokenMgr, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), deps.TokenOptions...)
	if err != nil {
		return nil, err
	}
	if deps.Limiter == nil {
		return nil, errors.New("login rate limiter is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	refreshOpts := append([]RefreshTokenOption{WithRotation(cfg.Auth.RefreshRotation)}, deps.RefreshOptions...)

	return &AuthService{
		users:      deps.UserRepo,
		roles:      deps.RoleRepo,
		limiter:    deps.Limiter,
		tokenMgr:   tokenMgr,
		refresh:    NewRefreshTokenManager(deps.RefreshTokenRepo, deps.UserRepo, tokenMgr, cfg.Auth.RefreshTokenTTL(), refreshOpts...),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
		metrics:    deps.Metrics,
		events:     deps.Events,
	}, nil
}

// Register creates a principal, creating its role and any requested
// permissions on the fly. Requested permissions are added to the role, so
// they apply to every principal holding it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	roleName := domain.NormalizeName(in.Role)
	if roleName == "" {
		roleName = domain.RoleUser
	}
	role, err := s.resolveRole(ctx, roleName)
	if err != nil {
		return nil, err
	}

	requested := make([]string, 0, len(in.Permissions))
	for _, p := range in.Permissions {
		if p = domain.NormalizeName(p); p != "" {
			requested = append(requested, p)
		}
	}
	if len(requested) > 0 {
		if err := s.roles.AddPermissions(ctx, role.ID, requested); err != nil {
			return nil, fmt.Errorf("attach permissions: %w", err)
		}
		if role, err = s.roles.GetByName(ctx, roleName); err != nil {
			return nil, fmt.Errorf("reload role: %w", err)
		}
	}

	user, err := s.createUser(ctx, in.Name, email, in.Password, *role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("email", email), zap.String("role", role.Name))
	s.publish(ctx, events.EventUserRegistered, email, events.UserRegisteredPayload{UserID: user.ID, Role: role.Name})
	return user, nil
}

// RegisterAdmin creates a principal bound to the pre-seeded ADMIN role.
func (s *AuthService) RegisterAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	role, err := s.roles.GetByName(ctx, domain.RoleAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, domain.RoleAdmin)
		}
		return nil, err
	}
	user, err := s.createUser(ctx, name, email, password, *role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin registered", zap.String("email", email))
	s.publish(ctx, events.EventUserRegistered, email, events.UserRegisteredPayload{UserID: user.ID, Role: role.Name, Admin: true})
	return user, nil
}

// Login checks the rate limiter before touching credentials, then issues an
// access token and a new refresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	email = strings.TrimSpace(email)
	s.logger.Info("login attempt", zap.String("email", email))

	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if !allowed {
		s.logger.Warn("login rate limited", zap.String("email", email))
		s.metrics.RecordLogin(observability.LoginRateLimited)
		s.publish(ctx, events.EventLoginRateLimited, email, nil)
		return nil, ErrTooManyAttempts
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.loginFailed(ctx, email, "unknown_email")
		}
		return nil, err
	}
	if !auth.PasswordMatches(user.PasswordHash, password) {
		return nil, s.loginFailed(ctx, email, "bad_password")
	}

	pair, err := s.refresh.IssueFor(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(observability.LoginSucceeded)
	s.publish(ctx, events.EventLoginSucceeded, email, nil)
	return pair, nil
}

// Refresh redeems a refresh token; failure kinds pass through unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	pair, err := s.refresh.Redeem(ctx, refreshToken)
	var rtErr *RefreshTokenError
	switch {
	case err == nil:
		s.metrics.RecordRefresh("success")
	case errors.As(err, &rtErr):
		s.metrics.RecordRefresh(strings.ToLower(string(rtErr.Kind)))
	}
	return pair, err
}

// Logout revokes the given refresh token. Access tokens stay valid until
// they expire.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refresh.Revoke(ctx, refreshToken); err != nil {
		return err
	}
	s.publish(ctx, events.EventRefreshTokenRevoked, "", nil)
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateIdentity
	}
	return nil
}

func (s *AuthService) resolveRole(ctx context.Context, name string) (*domain.Role, error) {
	role, err := s.roles.GetByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	role = &domain.Role{Name: name}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

func (s *AuthService) createUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email, reason string) error {
	s.metrics.RecordLogin(observability.LoginFailed)
	s.publish(ctx, events.EventLoginFailed, email, events.LoginFailedPayload{Reason: reason})
	return ErrInvalidCredentials
}

// publish is best effort; audit handlers never fail an auth operation.
func (s *AuthService) publish(ctx context.Context, t events.EventType, subject string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events.Event{Type: t, Subject: subject, Payload: payload}); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(t)), zap.Error(err))
	}
}
