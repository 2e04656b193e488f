package domain

import (
	"context"
	"time"
)

// AdminUser is a back-office operator account
type AdminUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// AdminRepository is the user store used by the admin login flow
type AdminRepository interface {
	GetByEmail(ctx context.Context, email string) (*AdminUser, error)
	Create(ctx context.Context, admin *AdminUser) error
}
