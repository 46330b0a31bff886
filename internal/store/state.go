package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/raysh454/phishlens/internal/model"
)

// Keys of the persisted state.
const (
	KeySettings      = "settings"
	KeyLastScan      = "lastScan"
	KeyScanHistory   = "scanHistory"
	KeyLedger        = "ledger"
	KeyPlugins       = "plugins"
	KeyCustomPlugins = "customPlugins"
)

// ErrInvalidSettings is returned when a settings patch does not decode or
// holds out-of-range values.
var ErrInvalidSettings = errors.New("invalid settings")

// State is the typed view over a KV. Nothing is cached: every call reads or
// writes the backend, and every read-modify-write goes through KV.Update.
type State struct {
	kv KV
}

func NewState(kv KV) *State {
	return &State{kv: kv}
}

func (s *State) load(ctx context.Context, key string, dst any) (bool, error) {
	b, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *State) store(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, b); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// update decodes key over fresh(), lets mutate change it and writes it back
// atomically. mutate may run more than once.
func update[T any](ctx context.Context, kv KV, key string, fresh func() T, mutate func(*T) error) (T, error) {
	var out T
	err := kv.Update(ctx, key, func(cur []byte) ([]byte, error) {
		v := fresh()
		if cur != nil {
			if err := json.Unmarshal(cur, &v); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
		if err := mutate(&v); err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		out = v
		return b, nil
	})
	if err != nil {
		return out, fmt.Errorf("update %s: %w", key, err)
	}
	return out, nil
}

// Settings returns the stored settings merged over the defaults.
func (s *State) Settings(ctx context.Context) (model.Settings, error) {
	out := model.DefaultSettings()
	if _, err := s.load(ctx, KeySettings, &out); err != nil {
		return model.DefaultSettings(), err
	}
	if out.TrustedDomains == nil {
		out.TrustedDomains = []string{}
	}
	return out, nil
}

// SaveSettings replaces the stored settings after validation.
func (s *State) SaveSettings(ctx context.Context, settings model.Settings) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	return s.store(ctx, KeySettings, settings)
}

// PatchSettings overlays the JSON object patch on the current settings and
// stores the result. Fields absent from patch keep their value.
func (s *State) PatchSettings(ctx context.Context, patch []byte) (model.Settings, error) {
	out, err := update(ctx, s.kv, KeySettings, model.DefaultSettings, func(cur *model.Settings) error {
		dec := json.NewDecoder(bytes.NewReader(patch))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cur); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
		if cur.TrustedDomains == nil {
			cur.TrustedDomains = []string{}
		}
		return ValidateSettings(*cur)
	})
	if err != nil {
		current, _ := s.Settings(ctx)
		return current, err
	}
	return out, nil
}

// ValidateSettings rejects values the scorer cannot use.
func ValidateSettings(st model.Settings) error {
	switch {
	case st.GlobalThreshold <= 0 || st.GlobalThreshold > 1:
		return fmt.Errorf("%w: globalThreshold must be in (0, 1]", ErrInvalidSettings)
	case st.LedgerBoost < 0 || st.LedgerBoost > 1:
		return fmt.Errorf("%w: ledgerBoost must be in [0, 1]", ErrInvalidSettings)
	case strings.TrimSpace(st.MLBaseURL) == "":
		return fmt.Errorf("%w: mlBaseUrl is required", ErrInvalidSettings)
	}
	return nil
}

// LastScan returns the most recent result, or nil when none was stored.
func (s *State) LastScan(ctx context.Context) (*model.FusedResult, error) {
	var r model.FusedResult
	ok, err := s.load(ctx, KeyLastScan, &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

// SaveScan overwrites the last scan and, when keepHistory is set, prepends
// it to the history capped at limit entries.
func (s *State) SaveScan(ctx context.Context, result model.FusedResult, keepHistory bool, limit int) error {
	if err := s.store(ctx, KeyLastScan, result); err != nil {
		return err
	}
	if !keepHistory {
		return nil
	}
	_, err := update(ctx, s.kv, KeyScanHistory, func() []model.FusedResult { return nil }, func(h *[]model.FusedResult) error {
		next := append([]model.FusedResult{result}, *h...)
		if limit > 0 && len(next) > limit {
			next = next[:limit]
		}
		*h = next
		return nil
	})
	return err
}

// History returns the stored scan history, most recent first.
func (s *State) History(ctx context.Context) ([]model.FusedResult, error) {
	history := []model.FusedResult{}
	if _, err := s.load(ctx, KeyScanHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// LoadLedger returns the stored ledger or a fresh one.
func (s *State) LoadLedger(ctx context.Context) (*model.Ledger, error) {
	l := model.NewLedger()
	if _, err := s.load(ctx, KeyLedger, l); err != nil {
		return nil, err
	}
	return l, nil
}

// UpdateLedger runs fn on the stored ledger (a fresh one when absent) and
// writes the result in the same atomic update. fn may run more than once.
func (s *State) UpdateLedger(ctx context.Context, fn func(l *model.Ledger) error) error {
	_, err := update(ctx, s.kv, KeyLedger, func() model.Ledger { return *model.NewLedger() }, fn)
	return err
}

// PluginStates returns the stored per-plugin overrides keyed by plugin id.
func (s *State) PluginStates(ctx context.Context) (map[string]model.PluginState, error) {
	out := map[string]model.PluginState{}
	if _, err := s.load(ctx, KeyPlugins, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePluginState applies fn to the stored state of plugin id.
func (s *State) UpdatePluginState(ctx context.Context, id string, fn func(st *model.PluginState) error) (model.PluginState, error) {
	all, err := update(ctx, s.kv, KeyPlugins, func() map[string]model.PluginState { return map[string]model.PluginState{} },
		func(m *map[string]model.PluginState) error {
			if *m == nil {
				*m = map[string]model.PluginState{}
			}
			st := (*m)[id]
			if err := fn(&st); err != nil {
				return err
			}
			(*m)[id] = st
			return nil
		})
	if err != nil {
		return model.PluginState{}, err
	}
	return all[id], nil
}

// CustomPlugins returns the imported plugin definitions.
func (s *State) CustomPlugins(ctx context.Context) ([]model.Plugin, error) {
	out := []model.Plugin{}
	if _, err := s.load(ctx, KeyCustomPlugins, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetCustomPlugins replaces the imported plugin definitions.
func (s *State) SetCustomPlugins(ctx context.Context, list []model.Plugin) error {
	if list == nil {
		list = []model.Plugin{}
	}
	return s.store(ctx, KeyCustomPlugins, list)
}

// ResetPlugins forgets every imported plugin and every stored override.
func (s *State) ResetPlugins(ctx context.Context) error {
	if err := s.store(ctx, KeyCustomPlugins, []model.Plugin{}); err != nil {
		return err
	}
	return s.store(ctx, KeyPlugins, map[string]model.PluginState{})
}
