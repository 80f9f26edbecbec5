package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"

	"weatherfav/internal/auth"
	"weatherfav/internal/domain"
	"weatherfav/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = auth.ErrInvalidCredentials
	// ErrUserAlreadyExists is returned when the email or username is already registered.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrValidation wraps every input validation failure.
	ErrValidation = errors.New("validation failed")
)

// SignupInput is the data needed to register an account.
type SignupInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

// LoginResult is what a successful login hands back to the transport.
type LoginResult struct {
	User       *domain.User
	Token      string
	SessionKey string
}

// UserService describes user lifecycle operations.
type UserService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, sessionKey string) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type userService struct {
	users    repository.UserRepository
	hasher   auth.PasswordHasher
	verifier *auth.CredentialVerifier
	tokens   *auth.TokenManager
	sessions *auth.SessionStore
	logger   logrus.FieldLogger
}

func NewUserService(
	users repository.UserRepository,
	hasher auth.PasswordHasher,
	tokens *auth.TokenManager,
	sessions *auth.SessionStore,
	logger logrus.FieldLogger,
) (UserService, error) {
	verifier, err := auth.NewCredentialVerifier(users, hasher)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		users:    users,
		hasher:   hasher,
		verifier: verifier,
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
	}, nil
}

func (s *userService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)

	if err := validateSignup(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) || errors.Is(err, auth.ErrPasswordRequired) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return sanitizeUser(user), nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	key, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("user logged in")
	return &LoginResult{
		User:       sanitizeUser(user),
		Token:      token,
		SessionKey: key,
	}, nil
}

// Logout ends the session behind sessionKey. Bearer tokens cannot be
// revoked and remain valid until they expire.
func (s *userService) Logout(ctx context.Context, sessionKey string) error {
	if sessionKey == "" {
		return nil
	}
	return s.sessions.Destroy(ctx, sessionKey)
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func validateSignup(in SignupInput) error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case in.Username == "":
		return fmt.Errorf("%w: username is required", ErrValidation)
	case len(in.Username) > 64:
		return fmt.Errorf("%w: username must be at most 64 characters", ErrValidation)
	case in.Email == "":
		return fmt.Errorf("%w: email is required", ErrValidation)
	case in.Password == "":
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email || len(in.Email) > 254 {
		return fmt.Errorf("%w: email is invalid", ErrValidation)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Name:      user.Name,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
