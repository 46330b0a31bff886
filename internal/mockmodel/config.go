package mockmodel

import "time"

// Mode selects how /predict answers.
type Mode string

const (
	// ModeCombined answers {"url_model": {...}, "text_model": {...}}.
	ModeCombined Mode = "combined"
	// ModeSingle answers a flat {"risk_score", "label", "reasons"} object.
	ModeSingle Mode = "single"
	// ModeHTML answers an HTML result page.
	ModeHTML Mode = "html"
	// ModeError answers 500.
	ModeError Mode = "error"
	// ModeSlow waits SlowDelay, then answers as ModeCombined.
	ModeSlow Mode = "slow"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeCombined, ModeSingle, ModeHTML, ModeError, ModeSlow}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	for _, v := range Modes {
		if v == m {
			return true
		}
	}
	return false
}

// Config holds configuration for the mock model server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// InitialMode is the mode at startup.
	InitialMode Mode

	// SlowDelay is how long ModeSlow holds a request.
	SlowDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:        ":8000",
		InitialMode: ModeCombined,
		SlowDelay:   30 * time.Second,
	}
}
