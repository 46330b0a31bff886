package model

// Settings are the user-tunable options kept in the state store.
// Stored values are merged over DefaultSettings on every load.
type Settings struct {
	MLBaseURL    string `json:"mlBaseUrl"`
	MLPath       string `json:"mlPath"`
	MLHealthPath string `json:"mlHealthPath"`
	APIKey       string `json:"apiKey"`

	AutoScan bool `json:"autoScan"`
	DeepScan bool `json:"deepScan"`

	GlobalThreshold float64 `json:"globalThreshold"`
	StoreHistory    bool    `json:"storeHistory"`

	LedgerEnabled bool    `json:"ledgerEnabled"`
	LedgerBoost   float64 `json:"ledgerBoost"`

	TrustedDomains []string `json:"trustedDomains"`

	// AutoReport files a ledger entry for pages labelled phishing, at most
	// once per domain per cooldown.
	AutoReport bool `json:"autoReport"`

	// LocalTextFallback scores page text with the local text heuristic when
	// the remote model is unreachable.
	LocalTextFallback bool `json:"localTextFallback"`
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		MLBaseURL:       "http://localhost:8000",
		MLPath:          "/predict",
		MLHealthPath:    "/health",
		AutoScan:        true,
		DeepScan:        false,
		GlobalThreshold: 0.7,
		StoreHistory:    false,
		LedgerEnabled:   true,
		LedgerBoost:     0.18,
		TrustedDomains:  []string{},
	}
}

// Threshold returns GlobalThreshold, or the default when unset or out of range.
func (s Settings) Threshold() float64 {
	if s.GlobalThreshold <= 0 || s.GlobalThreshold > 1 {
		return 0.7
	}
	return s.GlobalThreshold
}
