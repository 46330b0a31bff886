package assessor

// Config holds runtime settings for the assessor. Rule weights are fixed
// constants and deliberately not configurable.
type Config struct {
	// ScoringVersion is logged with every record for later comparison.
	ScoringVersion string `json:"scoring_version"`
}

// DefaultConfig returns the assessor defaults.
func DefaultConfig() Config {
	return Config{ScoringVersion: "url-rules/v1"}
}
