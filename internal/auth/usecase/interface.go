package usecase

import (
	authdomain "unibox-backend/internal/auth/domain"
)

// TokenResponse carries the issued token pair
type TokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         *authdomain.User `json:"user"`
}

// AuthUsecase handles login sessions. Token acquisition for platforms
// (OAuth consent flows) lives outside this service.
type AuthUsecase interface {
	Login(email, password string) (*TokenResponse, error)
	Register(email, password, name string) (*TokenResponse, error)
	ValidateToken(token string) (*authdomain.User, error)
	Logout(refreshToken string) error
	SetSyncCallback(cb func(userID string))
}
