package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories"
)

var (
	// ErrInvalidCredentials is returned when email or password do not match
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when signing up with a registered email
	ErrEmailTaken = errors.New("email is already registered")
)

// TokenIssuer creates and refreshes access tokens
type TokenIssuer interface {
	GenerateToken(userID, email, role string) (string, time.Time, error)
	RefreshToken(token string) (string, string, time.Time, error)
}

// AuthService implements AccountService with bcrypt password hashes
type AuthService struct {
	users    repositories.UserRepository
	tokens   TokenIssuer
	validate *validator.Validate
	cost     int
	logger   *logrus.Logger
}

// NewAuthService creates an account service
func NewAuthService(users repositories.UserRepository, tokens TokenIssuer, logger *logrus.Logger) (*AuthService, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository cannot be nil")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token issuer cannot be nil")
	}
	if logger == nil {
		logger = logrus.New()
	}

	// requests carry gin binding tags, reuse them outside of gin
	validate := validator.New()
	validate.SetTagName("binding")

	return &AuthService{
		users:    users,
		tokens:   tokens,
		validate: validate,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
	}, nil
}

// SetHashCost overrides the bcrypt cost
func (s *AuthService) SetHashCost(cost int) {
	s.cost = cost
}

// SignUp registers a user and returns a token for it
func (s *AuthService) SignUp(ctx context.Context, req *models.SignUpRequest) (*models.AuthResult, error) {
	if req == nil {
		return nil, models.NewInvalidInputError("body", nil, "is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	user := models.NewUser(req.FirstName, req.LastName, req.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if repositories.IsDuplicate(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
	}).Info("User signed up")

	return s.issue(user)
}

// SignIn checks credentials and returns a token
func (s *AuthService) SignIn(ctx context.Context, req *models.SignInRequest) (*models.AuthResult, error) {
	if req == nil {
		return nil, models.NewInvalidInputError("body", nil, "is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id": user.ID,
		}).Warn("Sign in with wrong password")
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Refresh exchanges a valid token for a new one
func (s *AuthService) Refresh(ctx context.Context, token string) (*models.AuthResult, error) {
	fresh, userID, expiresAt, err := s.tokens.RefreshToken(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return &models.AuthResult{Token: fresh, ExpiresAt: expiresAt, User: user}, nil
}

// GetUser returns the account of userID
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*models.AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &models.AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
