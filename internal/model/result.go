package model

// FusedResult is the outcome of one Analyze call. It is persisted as the
// "last scan" and optionally prepended to the scan history.
type FusedResult struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url"`

	RiskScore float64  `json:"riskScore"`
	Label     string   `json:"label"`
	Signals   []string `json:"signals"`
	Engine    string   `json:"engine"`

	URLScore  *float64 `json:"urlScore"`
	URLLabel  string   `json:"urlLabel,omitempty"`
	TextScore *float64 `json:"textScore"`
	TextLabel string   `json:"textLabel,omitempty"`
	TextError *string  `json:"textError"`

	Threshold   float64 `json:"threshold"`
	LedgerCount int     `json:"ledgerCount"`

	// At is the analysis time in unix milliseconds.
	At int64 `json:"at"`
}

// PingResult is the outcome of a backend health check.
type PingResult struct {
	OK      bool   `json:"ok"`
	Latency string `json:"latency"`
}
