package handler

import (
	"log/slog"
	"net/http"

	"github.com/citizenapp/citizenapp/internal/middleware"
	"github.com/citizenapp/citizenapp/internal/model"
	"github.com/citizenapp/citizenapp/internal/service"
)

// UserHandler handles user listing endpoints.
type UserHandler struct {
	logger  *slog.Logger
	account *service.AccountService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(logger *slog.Logger, account *service.AccountService) *UserHandler {
	return &UserHandler{
		logger:  logger,
		account: account,
	}
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.account.ListUsers(ctx)
	if err != nil {
		h.logger.Error("failed to list users",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(ctx)),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list users")
		return
	}

	if users == nil {
		users = []*model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
