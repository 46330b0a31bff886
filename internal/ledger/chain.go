// Package ledger keeps the hash-chained log of abuse reports.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/raysh454/phishlens/internal/model"
	"github.com/raysh454/phishlens/internal/utils"
)

// HashDomain normalises raw and returns the domain with its sha256 hex
// digest. An input with no domain yields two empty strings.
func HashDomain(raw string) (domain, hash string) {
	domain = utils.NormalizeDomain(raw)
	if domain == "" {
		return "", ""
	}
	return domain, sha256Hex(domain)
}

// ChainHash links an entry to its predecessor.
func ChainHash(prev, domainHash string, at int64, source string) string {
	return sha256Hex(prev + "|" + domainHash + "|" + strconv.FormatInt(at, 10) + "|" + source)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// VerifyReport is the result of recomputing a ledger's chain.
type VerifyReport struct {
	Valid bool `json:"valid"`

	// Checked is the number of retained entries examined.
	Checked int `json:"checked"`

	// FirstBroken is the chain index (0 = newest) of the oldest entry that
	// failed to verify, or -1.
	FirstBroken int `json:"firstBroken"`

	// Untrusted lists the chain indexes from FirstBroken up to the newest
	// entry. Their linkage depends on the broken entry.
	Untrusted []int `json:"untrusted"`

	HeadMatches bool `json:"headMatches"`
}

// VerifyChain recomputes every retained entry, oldest first. An entry is
// broken when its chain hash does not match its fields, its domain does not
// match its domain hash, or its prevHash does not name the entry below it.
// The oldest retained entry may point at a dropped predecessor.
func VerifyChain(l *model.Ledger) VerifyReport {
	rep := VerifyReport{FirstBroken: -1, Untrusted: []int{}}
	if l == nil {
		return rep
	}

	chain := l.Chain
	for i := len(chain) - 1; i >= 0; i-- {
		rep.Checked++
		e := chain[i]
		ok := ChainHash(e.PrevHash, e.Hash, e.At, e.Source) == e.ChainHash &&
			sha256Hex(e.Domain) == e.Hash
		if ok && i < len(chain)-1 {
			ok = e.PrevHash == chain[i+1].ChainHash
		}
		if !ok {
			rep.FirstBroken = i
			break
		}
	}
	for i := rep.FirstBroken; i >= 0; i-- {
		rep.Untrusted = append(rep.Untrusted, i)
	}

	if len(chain) == 0 {
		rep.HeadMatches = l.Head == model.GenesisHead
	} else {
		rep.HeadMatches = l.Head == chain[0].ChainHash
	}
	rep.Valid = rep.FirstBroken == -1 && rep.HeadMatches
	return rep
}
