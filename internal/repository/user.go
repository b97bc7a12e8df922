package repository

import (
	"context"

	"briefcase/internal/model"
)

// UserRepository defines data access for user records.
type UserRepository interface {
	// Create inserts a new user row.
	Create(ctx context.Context, user *model.User) (*model.User, error)

	// FindByID returns a user by ID.
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail returns a user by email.
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsername returns a user by username.
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// List returns all users, newest first.
	List(ctx context.Context) ([]model.User, error)
}
