package webclient

import "time"

type Client string

const (
	ClientNetHTTP  Client = "nethttp"
	ClientChromedp Client = "chromedp"
)

// Config selects and tunes a WebClient backend.
type Config struct {
	Client Client `json:"client"`

	// Timeout bounds a single request on the nethttp backend and a single
	// navigation on the chromedp backend.
	Timeout time.Duration `json:"timeout"`

	// UserAgent, when set, is sent on every request that does not carry one.
	UserAgent string `json:"user_agent"`

	// MaxBodyBytes caps how much of a response body is read. 0 means no cap.
	MaxBodyBytes int64 `json:"max_body_bytes"`

	// IdleAfter is how long the network must stay quiet before chromedp
	// considers a page loaded.
	IdleAfter time.Duration `json:"idle_after"`

	// Headless runs Chrome without a window.
	Headless bool `json:"headless"`
}

// DefaultConfig returns the nethttp backend with conservative limits.
func DefaultConfig() Config {
	return Config{
		Client:       ClientNetHTTP,
		Timeout:      30 * time.Second,
		UserAgent:    "phishlens/1.0",
		MaxBodyBytes: 5 << 20,
		IdleAfter:    2 * time.Second,
		Headless:     true,
	}
}
