package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"postwall/app/models"
	"postwall/app/repositories"
	"postwall/app/security"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minPasswordLen = 6
	// bcrypt ignores input past 72 bytes and x/crypto rejects it.
	maxPasswordLen = 72
)

const badLogin = "invalid email or password"

// AuthOptions configures token issuance.
type AuthOptions struct {
	Secret   string
	TokenTTL time.Duration
	Logger   *zap.Logger
}

// AuthService is the identity provider: it registers accounts, issues
// tokens and resolves tokens back to identities.
type AuthService struct {
	users  repositories.UserRepository
	secret string
	ttl    time.Duration
	log    *zap.Logger
}

func NewAuthService(users repositories.UserRepository, opts AuthOptions) *AuthService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &AuthService{
		users:  users,
		secret: opts.Secret,
		ttl:    opts.TokenTTL,
		log:    opts.Logger,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, username, email, password string, now time.Time) (*models.User, error) {
	if n := len(password); n < minPasswordLen || n > maxPasswordLen {
		return nil, models.Validation("password must be between 6 and 72 bytes")
	}

	hash, err := security.HashPassword(password)
	if errors.Is(err, security.ErrPasswordTooLong) {
		return nil, models.Validation("password must be between 6 and 72 bytes")
	}
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(username),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, models.Validation("username must be at least 3 characters and email must be valid")
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, s.userStoreError("register", err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login checks the credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string, now time.Time) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return "", nil, models.InvalidCredential(badLogin)
	}
	if err != nil {
		return "", nil, s.userStoreError("login", err)
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		return "", nil, models.InvalidCredential(badLogin)
	}

	token, err := security.MakeAccess(s.secret, user.ID, user.Username, s.ttl, now)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Authenticate resolves a bearer token to the caller's identity.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	claims, err := security.ParseAccess(s.secret, token)
	if err != nil {
		return models.Identity{}, models.InvalidCredential("invalid token")
	}
	return models.Identity{UserID: claims.UID, Name: claims.Name}, nil
}

// ListUsers returns every account. Password hashes never serialize.
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, s.userStoreError("list users", err)
	}
	return users, nil
}

func (s *AuthService) userStoreError(op string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrDuplicate):
		return models.NewError(models.KindConflict, "email already exists")
	case errors.Is(err, repositories.ErrNotFound):
		return models.NotFound("user not found")
	case errors.Is(err, repositories.ErrStoreUnavailable):
		s.log.Error("user store unavailable", zap.String("op", op), zap.Error(err))
		return models.StoreUnavailable(err)
	default:
		s.log.Error("user store failure", zap.String("op", op), zap.Error(err))
		return err
	}
}
