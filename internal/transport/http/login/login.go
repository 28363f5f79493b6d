package login

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/denteo/labflow/internal/service/models/user"
	"github.com/go-playground/validator/v10"
)

type service interface {
	Login(ctx context.Context, email, password string) (string, *user.User, error)
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate validates the login request.
func (r *loginRequest) Validate() error {
	return validator.New().Struct(r)
}

type loginResponse struct {
	AccessToken string    `json:"accessToken"`
	User        user.User `json:"user"`
}

// Login checks the credentials and returns a token for the dashboard.
func Login(w http.ResponseWriter, r *http.Request, service service) {
	loginReq := loginRequest{}
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for login", "error", err)

		return
	}

	if err := loginReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for login", "error", err)

		return
	}

	token, u, err := service.Login(r.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			http.Error(w, err.Error(), http.StatusUnauthorized)

			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error logging in", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(loginResponse{AccessToken: token, User: *u}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
