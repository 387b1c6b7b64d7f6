package service

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/spec-kit/access-token-service/internal/auth"
	"github.com/spec-kit/access-token-service/internal/auth/token"
	"github.com/spec-kit/access-token-service/internal/config"
	"github.com/spec-kit/access-token-service/internal/domain"
	"github.com/spec-kit/access-token-service/internal/events"
	"github.com/spec-kit/access-token-service/internal/ratelimit"
	"github.com/spec-kit/access-token-service/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownSubject     = errors.New("token subject does not resolve to a user")
)

// dummyPassword is hashed once so unknown emails cost the same bcrypt work as wrong passwords.
const dummyPassword = "not-a-real-password"

// AuthService coordinates registration, login and identity resolution.
type AuthService struct {
	users            repository.UserRepository
	tokens           *token.Provider
	limiter          *ratelimit.LoginLimiter
	dispatcher       events.Dispatcher
	logger           *zap.Logger
	bcryptCost       int
	defaultAbilities []string
	dummyHash        string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Tokens     *token.Provider
	Limiter    *ratelimit.LoginLimiter
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}

	dummyHash, err := auth.HashPassword(dummyPassword, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		users:            deps.UserRepo,
		tokens:           deps.Tokens,
		limiter:          deps.Limiter,
		dispatcher:       dispatcher,
		logger:           logger,
		bcryptCost:       cfg.BcryptCost,
		defaultAbilities: slices.Clone(cfg.DefaultAbilities),
		dummyHash:        dummyHash,
	}, nil
}

// Register creates a new user with the default abilities.
func (s *AuthService) Register(ctx context.Context, fullName, email, password, clientIP string) (*domain.User, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
		Abilities:    slices.Clone(s.defaultAbilities),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{Type: events.EventUserRegistered, SubjectID: user.ID, ClientIP: clientIP})
	return user, nil
}

// Login authenticates by email and password and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*domain.User, *token.Token, error) {
	if err := s.limiter.Allow(ctx, email, clientIP); err != nil {
		s.loginFailed(ctx, 0, clientIP, "rate_limited")
		return nil, nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		_ = auth.ComparePassword(s.dummyHash, password)
		s.loginFailed(ctx, 0, clientIP, "unknown_email")
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.loginFailed(ctx, user.ID, clientIP, "wrong_password")
		return nil, nil, ErrInvalidCredentials
	}
	if !user.Active() {
		s.loginFailed(ctx, user.ID, clientIP, "inactive")
		return nil, nil, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(token.IntID(user.ID), user.Abilities)
	if err != nil {
		s.logger.Error("issue access token", zap.Error(err))
		return nil, nil, err
	}

	s.limiter.Reset(ctx, email)
	s.publish(ctx, events.Event{
		Type:      events.EventLoginSucceeded,
		SubjectID: user.ID,
		ClientIP:  clientIP,
		Payload: events.LoginSucceededPayload{
			TokenID:   tok.ID(),
			ExpiresAt: tok.ExpiresAt(),
			Abilities: len(tok.Abilities()),
		},
	})
	return user, tok, nil
}

// CurrentUser loads the user a verified token was issued for.
func (s *AuthService) CurrentUser(ctx context.Context, tok *token.Token) (*domain.User, error) {
	id, ok := tok.Identifier().Int64()
	if !ok {
		return nil, ErrUnknownSubject
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUnknownSubject
	}
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, ErrUnknownSubject
	}
	return user, nil
}

// TokenRejected records a refused bearer token for auditing.
func (s *AuthService) TokenRejected(ctx context.Context, method, path, clientIP string) {
	s.publish(ctx, events.Event{
		Type:     events.EventTokenRejected,
		ClientIP: clientIP,
		Payload:  events.TokenRejectedPayload{Method: method, Path: path},
	})
}

func (s *AuthService) loginFailed(ctx context.Context, userID int64, clientIP, reason string) {
	s.publish(ctx, events.Event{
		Type:      events.EventLoginFailed,
		SubjectID: userID,
		ClientIP:  clientIP,
		Payload:   events.LoginFailedPayload{Reason: reason},
	})
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish audit event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
