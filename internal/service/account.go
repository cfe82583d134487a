// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/citizenapp/citizenapp/internal/auth"
	"github.com/citizenapp/citizenapp/internal/metrics"
	"github.com/citizenapp/citizenapp/internal/model"
	"github.com/citizenapp/citizenapp/internal/repository"
)

// ErrInvalidCredentials is the single error for every failed login.
// An unknown email and a wrong password are indistinguishable to the
// caller, so the API cannot be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the narrow persistence seam the account service depends on.
// *repository.Repository satisfies it; tests use an in-memory fake.
// Implementations must report duplicates with repository.ErrEmailExists /
// ErrPhoneExists and missing rows with repository.ErrUserNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByPhone(ctx context.Context, phoneNo string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// AccountService orchestrates registration, login and logout.
// It is stateless between calls; the store is the only shared state.
type AccountService struct {
	store   UserStore
	codec   *auth.Codec
	metrics metrics.Recorder
}

// NewAccountService creates a new AccountService.
func NewAccountService(store UserStore, codec *auth.Codec, recorder metrics.Recorder) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		store:   store,
		codec:   codec,
		metrics: recorder,
	}
}

// RegisterInput defines input for registering a user.
type RegisterInput struct {
	Name     string
	Email    string
	PhoneNo  string
	Password string
}

// Register creates a new account. Duplicate email or phone fail with
// repository.ErrEmailExists / ErrPhoneExists. The pre-insert lookups exist
// to answer without burning an argon2 hash; the store's unique constraints
// remain the authority, so a concurrent duplicate still fails on insert
// with the same error kinds.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if _, err := s.store.GetUserByEmail(ctx, input.Email); err == nil {
		return nil, repository.ErrEmailExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	if _, err := s.store.GetUserByPhone(ctx, input.PhoneNo); err == nil {
		return nil, repository.ErrPhoneExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("check phone: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         input.Name,
		Email:        input.Email,
		PhoneNo:      input.PhoneNo,
		PasswordHash: hash,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.metrics.IncUserRegistered()
	return user, nil
}

// Login verifies credentials and issues an access token with the
// configured lifetime and the user's email as subject. Unknown email and
// wrong password both return ErrInvalidCredentials; store failures pass
// through so they surface as 5xx, never as a credentials error.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLoginFailure()
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	match, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !match {
		// A malformed stored digest counts as a mismatch.
		s.metrics.IncLoginFailure()
		return "", ErrInvalidCredentials
	}

	token, err := s.codec.Issue(user.Email)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncLoginSuccess()
	return token, nil
}

// Logout acknowledges a logout. Tokens are stateless bearer tokens with no
// server-side revocation list; discarding the token is the client's job.
func (s *AccountService) Logout() {}

// ListUsers returns all registered users.
func (s *AccountService) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
