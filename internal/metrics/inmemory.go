package metrics

import "sync/atomic"

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered uint64 `json:"users_registered"`
	LoginsSucceeded uint64 `json:"logins_succeeded"`
	LoginsFailed    uint64 `json:"logins_failed"`
	AuthRejected    uint64 `json:"auth_rejected"`
	AuthCacheHits   uint64 `json:"auth_cache_hits"`
	AuthCacheMisses uint64 `json:"auth_cache_misses"`
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	usersRegistered uint64
	loginsSucceeded uint64
	loginsFailed    uint64
	authRejected    uint64
	authCacheHits   uint64
	authCacheMisses uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UsersRegistered: atomic.LoadUint64(&m.usersRegistered),
		LoginsSucceeded: atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:    atomic.LoadUint64(&m.loginsFailed),
		AuthRejected:    atomic.LoadUint64(&m.authRejected),
		AuthCacheHits:   atomic.LoadUint64(&m.authCacheHits),
		AuthCacheMisses: atomic.LoadUint64(&m.authCacheMisses),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLoginSuccess increments the successful login counter.
func (m *InMemoryRecorder) IncLoginSuccess() {
	atomic.AddUint64(&m.loginsSucceeded, 1)
}

// IncLoginFailure increments the failed login counter.
func (m *InMemoryRecorder) IncLoginFailure() {
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncAuthRejected increments the auth rejection counter.
func (m *InMemoryRecorder) IncAuthRejected() {
	atomic.AddUint64(&m.authRejected, 1)
}

// IncAuthCacheHit increments the auth cache hit counter.
func (m *InMemoryRecorder) IncAuthCacheHit() {
	atomic.AddUint64(&m.authCacheHits, 1)
}

// IncAuthCacheMiss increments the auth cache miss counter.
func (m *InMemoryRecorder) IncAuthCacheMiss() {
	atomic.AddUint64(&m.authCacheMisses, 1)
}
