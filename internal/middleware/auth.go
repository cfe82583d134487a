package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/citizenapp/citizenapp/internal/auth"
	"github.com/citizenapp/citizenapp/internal/cache"
	"github.com/citizenapp/citizenapp/internal/metrics"
	"github.com/citizenapp/citizenapp/internal/model"
	"github.com/citizenapp/citizenapp/internal/repository"
)

// UserLookup is the single store read the auth gate performs.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Codec   *auth.Codec
	Store   UserLookup
	Cache   *cache.Cache // optional; nil disables the read-through cache
	Metrics metrics.Recorder
}

// Auth returns a middleware that authenticates bearer-token requests.
// It verifies the token, resolves the subject to a user record and injects
// the record into the request context. Every failure mode - missing or
// malformed header, bad signature, expired token, missing subject, user no
// longer in the store - produces the identical generic 401; the real
// reason goes to the log only.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(reason string) {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				recorder.IncAuthRejected()
				writeAuthError(w)
			}

			token := extractBearerToken(r)
			if token == "" {
				reject("missing_token")
				return
			}

			claims, err := cfg.Codec.Verify(token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					reject("token_expired")
				case errors.Is(err, auth.ErrTokenSignature):
					reject("invalid_signature")
				default:
					reject("malformed_token")
				}
				return
			}

			email := claims.Subject()
			if email == "" {
				reject("missing_subject")
				return
			}

			user, cacheHit, err := cfg.lookupUser(r.Context(), email)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					// Token outlived the account. Evict any cached copy so
					// the stale record cannot keep authenticating.
					if cfg.Cache != nil {
						_ = cfg.Cache.DeleteUser(r.Context(), email)
					}
					reject("unknown_user")
					return
				}
				// A store outage is not the client's fault; answering 401
				// would tell callers to discard a perfectly good token.
				cfg.Logger.Error("store error during auth",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeStoreError(w)
				return
			}

			if cacheHit {
				recorder.IncAuthCacheHit()
			} else {
				recorder.IncAuthCacheMiss()
			}

			cfg.Logger.Info("authentication successful",
				slog.Int64("user_id", user.ID),
				slog.String("ip", r.RemoteAddr),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.Bool("cache_hit", cacheHit),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// lookupUser resolves a token subject to a user record, consulting the
// read-through cache first when one is configured. The cached record never
// carries the password hash; the auth path does not need it.
func (cfg AuthConfig) lookupUser(ctx context.Context, email string) (*model.User, bool, error) {
	if cfg.Cache != nil {
		if cached, _ := cfg.Cache.GetUser(ctx, email); cached != nil {
			return cached, true, nil
		}
	}

	user, err := cfg.Store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}

	if cfg.Cache != nil {
		_ = cfg.Cache.SetUser(ctx, user)
	}

	return user, false, nil
}

// extractBearerToken pulls the token out of the Authorization header.
// Returns "" for a missing header or any scheme other than Bearer.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	return strings.TrimPrefix(header, prefix)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same body for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Could not validate credentials"}}`))
}

// writeStoreError writes a 500 Internal Server Error response for store
// failures during authentication.
func writeStoreError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"Internal server error"}}`))
}
