package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
)

type brokenKV struct{}

var errBroken = errors.New("broken")

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errBroken }
func (brokenKV) Set(context.Context, string, []byte) error   { return errBroken }
func (brokenKV) Close() error                                { return nil }

func (brokenKV) Update(context.Context, string, UpdateFunc) error { return errBroken }

func TestState_SettingsDefaultsAndMerge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := NewMemoryKV()
	st := NewState(kv)

	got, err := st.Settings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.MLBaseURL != "http://localhost:8000" || got.GlobalThreshold != 0.7 || !got.LedgerEnabled {
		t.Errorf("defaults = %+v", got)
	}

	// A partial stored object keeps defaults for missing fields.
	_ = kv.Set(ctx, KeySettings, []byte(`{"globalThreshold":0.5,"trustedDomains":["*.example.com"]}`))
	got, _ = st.Settings(ctx)
	if got.GlobalThreshold != 0.5 || got.MLPath != "/predict" || got.LedgerBoost != 0.18 {
		t.Errorf("merged = %+v", got)
	}
	if len(got.TrustedDomains) != 1 {
		t.Errorf("trustedDomains = %v", got.TrustedDomains)
	}
}

func TestState_PatchSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewState(NewMemoryKV())

	got, err := st.PatchSettings(ctx, []byte(`{"storeHistory":true,"apiKey":"k"}`))
	if err != nil {
		t.Fatalf("PatchSettings: %v", err)
	}
	if !got.StoreHistory || got.APIKey != "k" || got.MLBaseURL != "http://localhost:8000" {
		t.Errorf("patched = %+v", got)
	}
	again, _ := st.Settings(ctx)
	if !again.StoreHistory {
		t.Errorf("patch was not persisted")
	}

	for _, bad := range []string{`{"globalThreshold":0}`, `{"globalThreshold":1.5}`, `{"ledgerBoost":-1}`, `{"nope":1}`, `not json`, `{"mlBaseUrl":""}`} {
		if _, err := st.PatchSettings(ctx, []byte(bad)); !errors.Is(err, ErrInvalidSettings) {
			t.Errorf("PatchSettings(%s) err = %v, want ErrInvalidSettings", bad, err)
		}
	}
	after, _ := st.Settings(ctx)
	if after.GlobalThreshold != 0.7 {
		t.Errorf("rejected patch leaked into storage: %+v", after)
	}
}

func TestState_SaveScanHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewState(NewMemoryKV())

	if last, err := st.LastScan(ctx); err != nil || last != nil {
		t.Fatalf("LastScan on empty = %v, %v", last, err)
	}

	if err := st.SaveScan(ctx, model.FusedResult{URL: "no-history"}, false, model.MaxScanHistory); err != nil {
		t.Fatal(err)
	}
	if h, _ := st.History(ctx); len(h) != 0 {
		t.Errorf("history should stay empty when disabled, got %d", len(h))
	}

	for i := 0; i < model.MaxScanHistory+5; i++ {
		if err := st.SaveScan(ctx, model.FusedResult{URL: fmt.Sprintf("u%d", i)}, true, model.MaxScanHistory); err != nil {
			t.Fatal(err)
		}
	}
	h, _ := st.History(ctx)
	if len(h) != model.MaxScanHistory {
		t.Fatalf("history length = %d, want %d", len(h), model.MaxScanHistory)
	}
	want := fmt.Sprintf("u%d", model.MaxScanHistory+4)
	if h[0].URL != want {
		t.Errorf("history[0] = %q, want most recent %q", h[0].URL, want)
	}
	last, _ := st.LastScan(ctx)
	if last == nil || last.URL != want {
		t.Errorf("last scan = %+v", last)
	}
}

func TestState_LedgerRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewState(NewMemoryKV())

	l, err := st.LoadLedger(ctx)
	if err != nil || l.Head != model.GenesisHead || len(l.Chain) != 0 {
		t.Fatalf("fresh ledger = %+v, %v", l, err)
	}
	err = st.UpdateLedger(ctx, func(l *model.Ledger) error {
		if l.Head != model.GenesisHead || l.Domains == nil {
			t.Errorf("update should start from a fresh ledger: %+v", l)
		}
		l.Head = "abc"
		l.Domains["h"] = model.DomainRecord{Count: 3, LastAt: 9}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := st.LoadLedger(ctx)
	if got.Head != "abc" || got.Domains["h"].Count != 3 {
		t.Errorf("round trip = %+v", got)
	}

	boom := errors.New("boom")
	if err := st.UpdateLedger(ctx, func(l *model.Ledger) error {
		l.Head = "lost"
		return boom
	}); !errors.Is(err, boom) {
		t.Errorf("UpdateLedger err = %v, want boom", err)
	}
	if got, _ := st.LoadLedger(ctx); got.Head != "abc" {
		t.Errorf("failed update was written: head = %q", got.Head)
	}
}

// Two handles on one sqlite file behave like two processes sharing it.
func TestState_SharedSQLiteKeepsEveryHistoryEntry(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	var states []*State
	for i := 0; i < 2; i++ {
		kv, err := OpenSQLite(path, logging.NopLogger{})
		if err != nil {
			t.Fatalf("OpenSQLite #%d: %v", i, err)
		}
		t.Cleanup(func() { _ = kv.Close() })
		states = append(states, NewState(kv))
	}

	const perState = 20
	var wg sync.WaitGroup
	for si, st := range states {
		for i := 0; i < perState; i++ {
			wg.Add(1)
			go func(st *State, url string) {
				defer wg.Done()
				if err := st.SaveScan(ctx, model.FusedResult{URL: url}, true, 0); err != nil {
					t.Errorf("SaveScan: %v", err)
				}
			}(st, fmt.Sprintf("s%d-%d", si, i))
		}
	}
	wg.Wait()

	h, err := states[1].History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != perState*len(states) {
		t.Errorf("history length = %d, want %d", len(h), perState*len(states))
	}
}

func TestState_PluginStates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewState(NewMemoryKV())

	all, err := st.PluginStates(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("empty plugin states = %v, %v", all, err)
	}

	on := true
	if _, err := st.UpdatePluginState(ctx, "brand", func(p *model.PluginState) error {
		p.Enabled = &on
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	got, err := st.UpdatePluginState(ctx, "brand", func(p *model.PluginState) error {
		if p.Settings == nil {
			p.Settings = map[string]any{}
		}
		p.Settings["strictness"] = "high"
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Enabled == nil || !*got.Enabled || got.Settings["strictness"] != "high" {
		t.Errorf("merged plugin state = %+v", got)
	}

	custom := []model.Plugin{{ID: "mine", Name: "Mine"}}
	if err := st.SetCustomPlugins(ctx, custom); err != nil {
		t.Fatal(err)
	}
	if list, _ := st.CustomPlugins(ctx); len(list) != 1 || list[0].ID != "mine" {
		t.Errorf("custom plugins = %+v", list)
	}

	if err := st.ResetPlugins(ctx); err != nil {
		t.Fatal(err)
	}
	if list, _ := st.CustomPlugins(ctx); len(list) != 0 {
		t.Errorf("custom plugins after reset = %+v", list)
	}
	if all, _ := st.PluginStates(ctx); len(all) != 0 {
		t.Errorf("plugin states after reset = %+v", all)
	}
}

func TestState_PropagatesStorageErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewState(brokenKV{})

	if _, err := st.Settings(ctx); !errors.Is(err, errBroken) {
		t.Errorf("Settings err = %v", err)
	}
	if err := st.SaveScan(ctx, model.FusedResult{}, true, 30); !errors.Is(err, errBroken) {
		t.Errorf("SaveScan err = %v", err)
	}
	if _, err := st.LoadLedger(ctx); !errors.Is(err, errBroken) {
		t.Errorf("LoadLedger err = %v", err)
	}
	if err := st.UpdateLedger(ctx, func(*model.Ledger) error { return nil }); !errors.Is(err, errBroken) {
		t.Errorf("UpdateLedger err = %v", err)
	}
	if _, err := st.PatchSettings(ctx, []byte(`{}`)); !errors.Is(err, errBroken) {
		t.Errorf("PatchSettings err = %v", err)
	}
}
