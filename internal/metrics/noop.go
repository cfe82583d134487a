package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserRegistered is a no-op.
func (n *NoopRecorder) IncUserRegistered() {}

// IncLoginSuccess is a no-op.
func (n *NoopRecorder) IncLoginSuccess() {}

// IncLoginFailure is a no-op.
func (n *NoopRecorder) IncLoginFailure() {}

// IncAuthRejected is a no-op.
func (n *NoopRecorder) IncAuthRejected() {}

// IncAuthCacheHit is a no-op.
func (n *NoopRecorder) IncAuthCacheHit() {}

// IncAuthCacheMiss is a no-op.
func (n *NoopRecorder) IncAuthCacheMiss() {}
