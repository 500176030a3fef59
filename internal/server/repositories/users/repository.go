// Package users provides the SQL-backed account record store.
package users

import (
	"context"

	"github.com/dmitrijs2005/weatherdash/internal/server/models"
)

// Repository persists account records keyed by a unique, normalized email.
type Repository interface {
	// Create validates user, assigns ID and CreatedAt and inserts it.
	// Returns common.ErrValidation for a malformed record and
	// common.ErrAccountExists when the email is already taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByEmail returns common.ErrorNotFound when no record matches.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID returns common.ErrorNotFound when no record matches.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
