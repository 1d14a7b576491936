package application

import (
	"context"
	"time"

	"github.com/dmehra2102/storefront/internal/access"
	"github.com/dmehra2102/storefront/internal/identity/domain"
)

type UserRepository interface {
	// Create fails with a ConflictError when the email is taken.
	Create(ctx context.Context, u domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
}

type Claims struct {
	UserID    string
	Role      access.Role
	Email     string
	ExpiresAt time.Time
}

type TokenIssuer interface {
	Issue(u domain.User) (string, error)
	Parse(token string) (Claims, error)
}
