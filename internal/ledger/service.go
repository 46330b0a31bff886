package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
)

// DefaultCooldown is the minimum gap between two automatic reports of the
// same domain.
const DefaultCooldown = 12 * time.Hour

// InvalidDomain is the error text of a report whose URL has no domain.
const InvalidDomain = "Invalid domain."

// ErrStorage wraps every failure of the underlying store.
var ErrStorage = errors.New("ledger storage failure")

// Store persists the ledger as one object. UpdateLedger must apply fn and
// write its result atomically, retrying fn on conflict if needed.
type Store interface {
	LoadLedger(ctx context.Context) (*model.Ledger, error)
	UpdateLedger(ctx context.Context, fn func(l *model.Ledger) error) error
}

// Service owns all reads and writes of the ledger. Every report is one
// atomic store update, so per-domain counts never lose an update even when
// several processes share the store.
type Service struct {
	store  Store
	logger logging.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService returns a ledger service on top of st.
func NewService(st Store, logger logging.Logger, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("ledger: nil store")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	s := &Service{
		store:  st,
		logger: logger.With(logging.Field{Key: "component", Value: "ledger"}),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Service) load(ctx context.Context) (*model.Ledger, error) {
	l, err := s.store.LoadLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", ErrStorage, err)
	}
	if l == nil {
		l = model.NewLedger()
	}
	normalize(l)
	return l, nil
}

func normalize(l *model.Ledger) {
	if l.Head == "" {
		l.Head = model.GenesisHead
	}
	if l.Domains == nil {
		l.Domains = map[string]model.DomainRecord{}
	}
}

// Info returns the report count of raw's domain. A missing domain reads as
// count 0 with no lastAt.
func (s *Service) Info(ctx context.Context, raw string) (model.LedgerInfo, error) {
	_, hash := HashDomain(raw)
	if hash == "" {
		return model.LedgerInfo{}, nil
	}
	l, err := s.load(ctx)
	if err != nil {
		return model.LedgerInfo{Hash: hash}, err
	}
	return infoOf(l, hash), nil
}

func infoOf(l *model.Ledger, hash string) model.LedgerInfo {
	info := model.LedgerInfo{Hash: hash}
	if rec, ok := l.Domains[hash]; ok {
		info.Count = rec.Count
		if rec.LastAt != 0 {
			at := rec.LastAt
			info.LastAt = &at
		}
	}
	return info
}

// Add appends a report for raw's domain. An input without a domain is
// answered with ok=false and no error; a store failure is returned as an
// error wrapping ErrStorage and nothing is written.
func (s *Service) Add(ctx context.Context, raw, source string) (model.ReportResult, error) {
	domain, hash := HashDomain(raw)
	if hash == "" {
		return model.ReportResult{OK: false, Error: InvalidDomain}, nil
	}
	if source == "" {
		source = "manual"
	}

	var rec model.DomainRecord
	err := s.store.UpdateLedger(ctx, func(l *model.Ledger) error {
		normalize(l)
		now := s.now().UnixMilli()
		prev := l.Head
		entry := model.LedgerEntry{
			Hash:      hash,
			Domain:    domain,
			At:        now,
			Source:    source,
			PrevHash:  prev,
			ChainHash: ChainHash(prev, hash, now, source),
		}

		l.Chain = append([]model.LedgerEntry{entry}, l.Chain...)
		if len(l.Chain) > model.MaxChainEntries {
			l.Chain = l.Chain[:model.MaxChainEntries]
		}
		l.Head = entry.ChainHash

		rec = l.Domains[hash]
		rec.Count++
		rec.LastAt = now
		l.Domains[hash] = rec
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStorage, err)
		s.logger.Error("report not recorded",
			logging.Field{Key: "domain", Value: domain},
			logging.Field{Key: "kind", Value: model.KindStorage},
			logging.Field{Key: "error", Value: err})
		return model.ReportResult{OK: false, Error: err.Error()}, err
	}

	s.logger.Info("report recorded",
		logging.Field{Key: "domain", Value: domain},
		logging.Field{Key: "source", Value: source},
		logging.Field{Key: "count", Value: rec.Count})

	lastAt := rec.LastAt
	return model.ReportResult{
		OK:     true,
		Hash:   hash,
		Domain: domain,
		Count:  rec.Count,
		LastAt: &lastAt,
	}, nil
}

// ShouldAutoReport is true when raw's domain was never reported or its last
// report is older than cooldown.
func (s *Service) ShouldAutoReport(ctx context.Context, raw string, cooldown time.Duration) (bool, error) {
	info, err := s.Info(ctx, raw)
	if err != nil {
		return false, err
	}
	if info.LastAt == nil {
		return true, nil
	}
	return s.now().UnixMilli()-*info.LastAt > cooldown.Milliseconds(), nil
}

// Verify recomputes the stored chain.
func (s *Service) Verify(ctx context.Context) (VerifyReport, error) {
	l, err := s.load(ctx)
	if err != nil {
		return VerifyReport{FirstBroken: -1}, err
	}
	rep := VerifyChain(l)
	if !rep.Valid {
		s.logger.Warn("ledger chain failed verification",
			logging.Field{Key: "first_broken", Value: rep.FirstBroken},
			logging.Field{Key: "head_matches", Value: rep.HeadMatches})
	}
	return rep, nil
}

// Snapshot returns the stored ledger.
func (s *Service) Snapshot(ctx context.Context) (*model.Ledger, error) {
	return s.load(ctx)
}
