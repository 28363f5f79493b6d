package authsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/denteo/labflow/internal/dal/interfaces/iuserrepo"
	"github.com/denteo/labflow/internal/dal/postgres"
	userRepository "github.com/denteo/labflow/internal/dal/repositories/user/postgres"
	"github.com/denteo/labflow/internal/service/models/user"
	"github.com/denteo/labflow/pkg/http/middleware/auth"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo iuserrepo.IUserRepository
}

type option func(*AuthService)

//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(client *postgres.Client) option {
	return func(s *AuthService) {
		s.userRepo = userRepository.NewPostgresUserRepository(client.Pool())
	}
}

func MustNewAuthService(opts ...option) *AuthService {
	service := &AuthService{}
	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Login checks the credentials and issues a signed token. An unknown email
// and a wrong password both come back as user.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return "", nil, user.ErrInvalidCredentials
		}

		return "", nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, user.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(&u)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return token, &u, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]user.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []user.User{}
	}

	return users, nil
}
