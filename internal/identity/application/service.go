package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/storefront/internal/access"
	"github.com/dmehra2102/storefront/internal/identity/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/validation"
)

var errBadCredentials = apperr.Unauthenticated("Invalid email or password")

type Service struct {
	log      *slog.Logger
	users    UserRepository
	tokens   TokenIssuer
	validate *validation.Validator

	cost  int
	now   func() time.Time
	newID func() string
}

func NewService(log *slog.Logger, users UserRepository, tokens TokenIssuer) *Service {
	return &Service{
		log:      log,
		users:    users,
		tokens:   tokens,
		validate: validation.New(),
		cost:     bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type AuthResult struct {
	Token string
	User  domain.User
}

// Register always creates a plain user; operators are provisioned through
// BootstrapAdmin.
func (s *Service) Register(ctx context.Context, in Credentials) (AuthResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return AuthResult{}, err
	}

	u, err := s.create(ctx, in, access.RoleUser)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.Info("user registered", "user_id", u.ID)
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, in Credentials) (AuthResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if in.Email == "" || in.Password == "" {
		return AuthResult{}, apperr.Validation("email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	var nf *apperr.NotFoundError
	switch {
	case errors.As(err, &nf):
		return AuthResult{}, errBadCredentials
	case err != nil:
		return AuthResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return AuthResult{}, errBadCredentials
	}
	if !u.Active {
		return AuthResult{}, apperr.Unauthenticated("account is disabled")
	}
	return s.issue(u)
}

func (s *Service) Me(ctx context.Context, p access.Principal) (domain.User, error) {
	return s.users.GetByID(ctx, p.ID)
}

// Authenticate resolves a bearer token to the principal it belongs to. The
// user is re-read so deleted or disabled accounts stop working immediately.
func (s *Service) Authenticate(ctx context.Context, token string) (access.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return access.Principal{}, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	var nf *apperr.NotFoundError
	switch {
	case errors.As(err, &nf):
		return access.Principal{}, apperr.Unauthenticated("user no longer exists")
	case err != nil:
		return access.Principal{}, err
	}
	if !u.Active {
		return access.Principal{}, apperr.Unauthenticated("account is disabled")
	}
	return u.Principal(), nil
}

// BootstrapAdmin makes sure the configured operator account exists. It does
// nothing when email is empty or the account is already there.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}
	in := Credentials{Email: domain.NormalizeEmail(email), Password: password}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	_, err := s.create(ctx, in, access.RoleAdmin)
	var conflict *apperr.ConflictError
	switch {
	case errors.As(err, &conflict):
		return nil
	case err != nil:
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.log.Info("operator account created", "email", in.Email)
	return nil
}

func (s *Service) create(ctx context.Context, in Credentials, role access.Role) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := domain.User{
		ID:           s.newID(),
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *Service) issue(u domain.User) (AuthResult, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{Token: token, User: u}, nil
}
