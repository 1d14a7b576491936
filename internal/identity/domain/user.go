package domain

import (
	"strings"
	"time"

	"github.com/dmehra2102/storefront/internal/access"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         access.Role
	Active       bool
	CreatedAt    time.Time
}

func (u User) Principal() access.Principal {
	return access.Principal{ID: u.ID, Role: u.Role, Email: u.Email}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
