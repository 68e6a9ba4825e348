package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/api/dto"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	limited := huma.Middlewares{s.rateLimited(s.authRateLimiter)}

	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/register",
		Summary:       "Register",
		Description:   "Creates an account and returns its first token pair. Emails are unique regardless of case.",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   limited,
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns access and refresh tokens. Any earlier refresh token stops working.",
		Tags:        []string{"Authentication"},
		Middlewares: limited,
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges the current refresh token for a new pair. The presented token is consumed.",
		Tags:        []string{"Authentication"},
		Middlewares: limited,
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/logout",
		Summary:       "Logout",
		Description:   "Revokes the given refresh token if it is still the active one. Always succeeds.",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current user",
		Description: "Returns the authenticated user",
		Tags:        []string{"Authentication"},
		Security:    bearerSecurity,
	}, s.handleMe)

	huma.Register(s.api, huma.Operation{
		OperationID:   "changePassword",
		Method:        http.MethodPut,
		Path:          "/api/v1/auth/password",
		Summary:       "Change password",
		Description:   "Replaces the password and ends the current session's refresh token",
		Tags:          []string{"Authentication"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, s.handleChangePassword)
}

func (s *Server) handleRegister(ctx context.Context, input *dto.RegisterInput) (*dto.AuthOutput, error) {
	resp, err := s.services.Auth.Register(ctx, service.RegisterRequest{
		Email:    input.Body.Email,
		Name:     input.Body.Name,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}

	return &dto.AuthOutput{Body: dto.NewAuthResponse(resp)}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *dto.LoginInput) (*dto.AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}

	return &dto.AuthOutput{Body: dto.NewAuthResponse(resp)}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *dto.RefreshInput) (*dto.TokensOutput, error) {
	pair, err := s.services.Auth.Refresh(ctx, input.Token())
	if err != nil {
		return nil, err
	}

	return &dto.TokensOutput{Body: dto.NewTokens(pair)}, nil
}

func (s *Server) handleLogout(ctx context.Context, input *dto.RefreshInput) (*struct{}, error) {
	if err := s.services.Auth.Logout(ctx, input.Token()); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleMe(ctx context.Context, _ *struct{}) (*dto.UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.UserOutput{Body: dto.NewUser(*user)}, nil
}

func (s *Server) handleChangePassword(ctx context.Context, input *dto.ChangePasswordInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Auth.ChangePassword(ctx, userID, service.ChangePasswordRequest{
		CurrentPassword: input.Body.CurrentPassword,
		NewPassword:     input.Body.NewPassword,
	}); err != nil {
		return nil, err
	}
	return nil, nil
}
