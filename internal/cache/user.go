package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/citizenapp/citizenapp/internal/model"
)

const (
	// userCachePrefix is the Redis key prefix for authenticated-user lookups.
	userCachePrefix = "auth:user:"
	// userCacheTTL bounds how long a stale record can keep authenticating.
	// Users are immutable after registration, so the only staleness this
	// window admits is a deleted account.
	userCacheTTL = 60 * time.Second
)

// cachedUser is the user record as stored in Redis. The password hash is
// deliberately not cached; the auth path never needs it.
type cachedUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PhoneNo   string    `json:"phone_no"`
	CreatedAt time.Time `json:"created_at"`
}

// GetUser retrieves a cached user record by email.
// Returns nil on a cache miss; a miss is not an error.
func (c *Cache) GetUser(ctx context.Context, email string) (*model.User, error) {
	key := userCachePrefix + email

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached cachedUser
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.User{
		ID:        cached.ID,
		Name:      cached.Name,
		Email:     cached.Email,
		PhoneNo:   cached.PhoneNo,
		CreatedAt: cached.CreatedAt,
	}, nil
}

// SetUser caches a user record for the auth path.
func (c *Cache) SetUser(ctx context.Context, user *model.User) error {
	key := userCachePrefix + user.Email

	cached := cachedUser{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		PhoneNo:   user.PhoneNo,
		CreatedAt: user.CreatedAt,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, userCacheTTL).Err()
}

// DeleteUser evicts a cached user record. The auth path calls it when the
// store no longer knows the subject, so a rejected subject does not linger
// in the cache.
func (c *Cache) DeleteUser(ctx context.Context, email string) error {
	return c.client.Del(ctx, userCachePrefix+email).Err()
}
