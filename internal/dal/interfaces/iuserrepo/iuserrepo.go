package iuserrepo

import (
	"context"

	"github.com/denteo/labflow/internal/service/models/user"
	"github.com/google/uuid"
)

// IUserRepository is an interface for the staff account repository.
type IUserRepository interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
}
