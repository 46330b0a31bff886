package model

import "strings"

// GenesisHead is the ledger head before any entry exists.
var GenesisHead = strings.Repeat("0", 64)

// Ledger limits.
const (
	MaxChainEntries = 500
	MaxScanHistory  = 30
)

// LedgerEntry is one abuse report. Entries are never mutated after creation.
type LedgerEntry struct {
	// Hash is the sha256 hex digest of the canonical domain.
	Hash string `json:"hash"`

	// Domain is kept in plaintext for audit readability.
	Domain string `json:"domain"`

	// At is the report time in unix milliseconds.
	At     int64  `json:"at"`
	Source string `json:"source"`

	PrevHash  string `json:"prevHash"`
	ChainHash string `json:"chainHash"`
}

// DomainRecord is the per-domain report counter. Counters are never
// truncated, so Count can exceed the number of entries left in the chain.
type DomainRecord struct {
	Count  int   `json:"count"`
	LastAt int64 `json:"lastAt"`
}

// Ledger is the persisted, process-wide report log.
type Ledger struct {
	Head    string                  `json:"head"`
	Chain   []LedgerEntry           `json:"chain"`
	Domains map[string]DomainRecord `json:"domains"`
}

// NewLedger returns an empty ledger at the genesis head.
func NewLedger() *Ledger {
	return &Ledger{
		Head:    GenesisHead,
		Chain:   []LedgerEntry{},
		Domains: map[string]DomainRecord{},
	}
}

// LedgerInfo is the read view of one domain's report history.
type LedgerInfo struct {
	Hash   string `json:"hash"`
	Count  int    `json:"count"`
	LastAt *int64 `json:"lastAt"`
}

// ReportResult is returned by a report submission.
type ReportResult struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Hash   string `json:"hash,omitempty"`
	Domain string `json:"domain,omitempty"`
	Count  int    `json:"count,omitempty"`
	LastAt *int64 `json:"lastAt,omitempty"`
}
