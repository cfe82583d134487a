package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/citizenapp/citizenapp/internal/auth"
	"github.com/citizenapp/citizenapp/internal/middleware"
	"github.com/citizenapp/citizenapp/internal/model"
	"github.com/citizenapp/citizenapp/internal/repository"
	"github.com/citizenapp/citizenapp/internal/service"
)

// AuthHandler handles registration, login, logout and the current-user endpoint.
type AuthHandler struct {
	logger  *slog.Logger
	account *service.AccountService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(logger *slog.Logger, account *service.AccountService) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		account: account,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if msg := validateRegisterRequest(req); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", msg)
		return
	}

	user, err := h.account.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		PhoneNo:  req.PhoneNo,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			writeError(w, http.StatusBadRequest, "EMAIL_TAKEN", "Email already registered")
		case errors.Is(err, repository.ErrPhoneExists):
			writeError(w, http.StatusBadRequest, "PHONE_TAKEN", "Phone number already registered")
		default:
			h.logger.Error("failed to register user",
				slog.String("error", err.Error()),
				slog.String("request_id", middleware.GetRequestID(ctx)),
			)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register user")
		}
		return
	}

	h.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("request_id", middleware.GetRequestID(ctx)),
	)

	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	token, err := h.account.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// One message for unknown email and wrong password alike.
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect email or password")
			return
		}
		h.logger.Error("failed to log in user",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(ctx)),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// Logout handles POST /api/auth/logout
// Bearer tokens are stateless; logout is the client discarding its token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.account.Logout()
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully logged out",
	})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

// validateRegisterRequest returns a message describing the first invalid
// field, or "" when the request is acceptable.
func validateRegisterRequest(req model.RegisterRequest) string {
	if strings.TrimSpace(req.Name) == "" {
		return "name must not be empty"
	}
	if !strings.Contains(req.Email, "@") || strings.HasPrefix(req.Email, "@") || strings.HasSuffix(req.Email, "@") {
		return "email is not valid"
	}
	if strings.TrimSpace(req.PhoneNo) == "" {
		return "phone_no must not be empty"
	}
	if req.Password == "" {
		return "password must not be empty"
	}
	return ""
}
