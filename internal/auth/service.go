package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

var (
	ErrUserNotFound     = apperr.New(apperr.ErrNotFound, "User not found")
	ErrUserExists       = apperr.New(apperr.ErrConflict, "User already exists")
	ErrSignupClosed     = apperr.New(apperr.ErrForbidden, "Signup is closed, ask an administrator for an account")
	ErrInvalidRole      = apperr.New(apperr.ErrValidation, "Invalid role")
	ErrNameRequired     = apperr.New(apperr.ErrValidation, "Name is required")
	ErrEmailRequired    = apperr.New(apperr.ErrValidation, "Email is required")
	ErrEmailInvalid     = apperr.New(apperr.ErrValidation, "Invalid email format")
	ErrPasswordRequired = apperr.New(apperr.ErrValidation, "Password is required")
	ErrAccountLocked    = apperr.New(apperr.ErrLocked, "Account is locked, please try again later")
)

// UserStore defines the user data access the service needs.
type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	CreateFirst(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uint) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	List(ctx context.Context) ([]entities.User, error)
	Count(ctx context.Context) (int64, error)
	RecordFailedLogin(ctx context.Context, id uint, maxAttempts int, lockFor time.Duration, now time.Time) (*entities.User, error)
	RecordSuccessfulLogin(ctx context.Context, id uint, now time.Time) error
	BumpTokenVersion(ctx context.Context, id uint) error
}

// Auditor records authentication events. Implementations must not block.
type Auditor interface {
	LogAuth(ctx context.Context, userID uint, action string, success bool)
}

// Session is the result of a successful login.
type Session struct {
	User         *entities.User
	AccessToken  string
	RefreshToken string
}

// Service handles authentication and user management.
type Service struct {
	users  UserStore
	tokens *TokenIssuer
	config config.Auth
	audit  Auditor
	now    func() time.Time
}

// NewService creates a new authentication service. auditor may be nil.
func NewService(users UserStore, tokens *TokenIssuer, cfg config.Auth, auditor Auditor) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		config: cfg,
		audit:  auditor,
		now:    time.Now,
	}
}

// Tokens returns the issuer used to sign tokens.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// CreateUser creates a new account with password authentication.
func (s *Service) CreateUser(ctx context.Context, name, email, password string, role entities.UserRole) (*entities.User, error) {
	user, err := s.newUser(name, email, password, role)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Bootstrap creates the first account as an administrator. It fails with
// ErrSignupClosed once any account exists.
func (s *Service) Bootstrap(ctx context.Context, name, email, password string) (*entities.User, error) {
	user, err := s.newUser(name, email, password, entities.UserRoleAdmin)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateFirst(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, ErrSignupClosed
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Service) newUser(name, email, password string, role entities.UserRole) (*entities.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, ErrNameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	// RFC 5321 limit is 254
	if len(email) > 254 {
		return nil, ErrEmailInvalid
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, ErrEmailInvalid
	}

	switch role {
	case entities.UserRoleAdmin, entities.UserRoleLibrarian:
	default:
		return nil, ErrInvalidRole
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	return &entities.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}, nil
}

// Authenticate validates credentials and returns the user.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entities.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if _, recErr := s.users.RecordFailedLogin(ctx, user.ID, s.maxAttempts(), s.lockoutDuration(), now); recErr != nil {
			return nil, recErr
		}
		return nil, err
	}

	if err := s.users.RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	return user, nil
}

// Login authenticates and issues an access and a refresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		s.logAudit(ctx, 0, "login_failed", false)
		return nil, err
	}

	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	s.logAudit(ctx, user.ID, "login", true)
	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token.
// Returns ErrTokenExpired or ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	user, err := s.userFromRefresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	return s.tokens.IssueAccess(user)
}

// Logout revokes every refresh token of the user the token belongs to.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	user, err := s.userFromRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	return s.RevokeAll(ctx, user.ID)
}

// RevokeAll invalidates every refresh token issued to the user.
func (s *Service) RevokeAll(ctx context.Context, userID uint) error {
	if err := s.users.BumpTokenVersion(ctx, userID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	s.logAudit(ctx, userID, "logout", true)
	return nil
}

func (s *Service) userFromRefresh(ctx context.Context, refreshToken string) (*entities.User, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.TokenVersion != claims.Version {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *Service) ListUsers(ctx context.Context) ([]entities.User, error) {
	return s.users.List(ctx)
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) maxAttempts() int {
	if s.config.MaxLoginAttempts > 0 {
		return s.config.MaxLoginAttempts
	}
	return 5
}

func (s *Service) lockoutDuration() time.Duration {
	if s.config.LockoutDuration > 0 {
		return s.config.LockoutDuration
	}
	return 30 * time.Minute
}

func (s *Service) logAudit(ctx context.Context, userID uint, action string, success bool) {
	if s.audit != nil {
		s.audit.LogAuth(ctx, userID, action, success)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
