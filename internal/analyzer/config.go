package analyzer

import "time"

// Config tunes the remote model client.
type Config struct {
	// RequestTimeout bounds one prediction request.
	RequestTimeout time.Duration `json:"request_timeout"`

	// PingTimeout bounds one health check. Values above 3s are clamped.
	PingTimeout time.Duration `json:"ping_timeout"`
}

// MaxPingTimeout is the upper bound for health checks.
const MaxPingTimeout = 3 * time.Second

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 12 * time.Second,
		PingTimeout:    MaxPingTimeout,
	}
}
