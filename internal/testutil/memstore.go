package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/citizenapp/citizenapp/internal/model"
	"github.com/citizenapp/citizenapp/internal/repository"
)

// MemStore is an in-memory user store satisfying service.UserStore. It
// mirrors the repository's error contract, including the unique constraints
// on email and phone, so tests exercise the same failure paths as Postgres.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	users  []*model.User

	// FailWith, when set, is returned by every call to simulate a store outage.
	FailWith error
}

// NewMemStore returns an empty in-memory user store.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

// CreateUser inserts a user, generating id and created_at like the database
// does. Duplicates fail with the repository sentinel errors even when the
// caller skipped its own lookup, matching the storage-level constraints.
func (s *MemStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return s.FailWith
	}

	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
		if u.PhoneNo == user.PhoneNo {
			return repository.ErrPhoneExists
		}
	}

	user.ID = s.nextID
	user.CreatedAt = time.Now().UTC()
	s.nextID++

	stored := *user
	s.users = append(s.users, &stored)
	return nil
}

// GetUserByEmail looks up a user by email.
func (s *MemStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return nil, s.FailWith
	}

	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// GetUserByPhone looks up a user by phone number.
func (s *MemStore) GetUserByPhone(ctx context.Context, phoneNo string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return nil, s.FailWith
	}

	for _, u := range s.users {
		if u.PhoneNo == phoneNo {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// ListUsers returns all users in insertion order.
func (s *MemStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return nil, s.FailWith
	}

	users := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		copied := *u
		users = append(users, &copied)
	}
	return users, nil
}

// DeleteUserByEmail removes a user, for exercising the "token outlives the
// account" rejection path.
func (s *MemStore) DeleteUserByEmail(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.users {
		if u.Email == email {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return
		}
	}
}
