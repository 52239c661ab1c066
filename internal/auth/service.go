package auth

import (
	"context"
	"errors"

	"github.com/budtender/budtender-backend/internal/repository"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")
	// ErrNoPassword is returned for accounts without a local password
	ErrNoPassword = errors.New("account has no local password")
)

// TokenPair is one issued access/refresh pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service handles local credential authentication. Most accounts are
// mirror rows for externally-authenticated users and carry no password;
// only locally provisioned accounts (admins) can log in here.
type Service struct {
	users repository.UserRepository
	jwt   *JWTService
}

// NewService creates a new auth service
func NewService(users repository.UserRepository, jwtSecret string) *Service {
	return &Service{
		users: users,
		jwt:   NewJWTService(jwtSecret, "budtender"),
	}
}

// JWT exposes the token service for middleware
func (s *Service) JWT() *JWTService {
	return s.jwt
}

// Login authenticates by email and password and issues a token pair
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if user.PasswordHash == nil {
		return nil, ErrNoPassword
	}
	if !CheckPassword(password, *user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	access, refresh, err := s.jwt.GenerateTokenPair(user.UserID, user.UserEmail, user.Role)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(AccessTokenTTL.Seconds()),
	}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The user's
// current role is re-read so revoked admins lose access on rotation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	access, refresh, err := s.jwt.GenerateTokenPair(user.UserID, user.UserEmail, user.Role)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(AccessTokenTTL.Seconds()),
	}, nil
}
