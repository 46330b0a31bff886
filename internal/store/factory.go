package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/raysh454/phishlens/internal/logging"
)

// BackendConstructor opens a KV backend.
type BackendConstructor func(cfg Config, logger logging.Logger) (KV, error)

var (
	mu       sync.RWMutex
	registry = map[string]BackendConstructor{}
)

func init() {
	RegisterBackend(string(BackendMemory), func(Config, logging.Logger) (KV, error) { return NewMemoryKV(), nil })
	RegisterBackend(string(BackendSQLite), func(cfg Config, logger logging.Logger) (KV, error) {
		return OpenSQLite(cfg.SQLitePath, logger)
	})
	RegisterBackend(string(BackendRedis), func(cfg Config, logger logging.Logger) (KV, error) {
		return OpenRedis(cfg, logger)
	})
}

// RegisterBackend registers a named backend. Names are case-insensitive and
// a later registration replaces an earlier one.
func RegisterBackend(name string, ctor BackendConstructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// Open constructs the configured backend. An empty name selects memory.
func Open(cfg Config, logger logging.Logger) (KV, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	name := strings.ToLower(strings.TrimSpace(string(cfg.Backend)))
	if name == "" {
		name = string(BackendMemory)
	}
	mu.RLock()
	ctor, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store backend %q not registered: available backends=%v", name, ListBackends())
	}
	kv, err := ctor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store backend %q: %w", name, err)
	}
	logger.Debug("opened state store", logging.Field{Key: "backend", Value: name})
	return kv, nil
}

// ListBackends returns the registered backend names, sorted.
func ListBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
