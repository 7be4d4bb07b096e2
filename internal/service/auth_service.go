package service

import (
	"context"

	"compliance-assistant-be/internal/dto"
	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/internal/repository/memory"
	"compliance-assistant-be/pkg/identity"
)

type IAuthService interface {
	SignIn(ctx context.Context, req *dto.SignInRequest) (*identity.Session, error)
	SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.SignUpResponse, error)
	SignOut(ctx context.Context, userID, accessToken string) error
	Me(ctx context.Context, accessToken string) (*identity.User, error)
	ResendVerification(ctx context.Context, req *dto.ResendVerificationRequest) error
}

type authService struct {
	provider        identity.Provider
	sessions        *memory.SessionRepository
	defaultRedirect string
	logger          logger.ILogger
}

// NewAuthService forwards account operations to the identity provider.
// defaultRedirect is where verification links land when the client gives none.
func NewAuthService(provider identity.Provider, sessions *memory.SessionRepository, defaultRedirect string, log logger.ILogger) IAuthService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &authService{
		provider:        provider,
		sessions:        sessions,
		defaultRedirect: defaultRedirect,
		logger:          log,
	}
}

func (s *authService) SignIn(ctx context.Context, req *dto.SignInRequest) (*identity.Session, error) {
	session, err := s.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		s.logger.Warn("AuthService", "Sign in failed", map[string]interface{}{"email": req.Email, "error": err.Error()})
		return nil, err
	}
	return session, nil
}

func (s *authService) SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.SignUpResponse, error) {
	redirect := req.RedirectTo
	if redirect == "" {
		redirect = s.defaultRedirect
	}
	user, err := s.provider.SignUp(ctx, req.Email, req.Password, redirect)
	if err != nil {
		s.logger.Warn("AuthService", "Sign up failed", map[string]interface{}{"email": req.Email, "error": err.Error()})
		return nil, err
	}
	return &dto.SignUpResponse{User: *user, VerificationRequired: !user.EmailVerified}, nil
}

// SignOut ends the provider session and drops the user's in-memory workspace.
func (s *authService) SignOut(ctx context.Context, userID, accessToken string) error {
	if s.sessions != nil && userID != "" {
		s.sessions.Delete(userID)
	}
	return s.provider.SignOut(ctx, accessToken)
}

func (s *authService) Me(ctx context.Context, accessToken string) (*identity.User, error) {
	return s.provider.GetUser(ctx, accessToken)
}

func (s *authService) ResendVerification(ctx context.Context, req *dto.ResendVerificationRequest) error {
	redirect := req.RedirectTo
	if redirect == "" {
		redirect = s.defaultRedirect
	}
	return s.provider.ResendVerification(ctx, req.Email, redirect)
}
