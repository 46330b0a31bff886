package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/raysh454/phishlens/internal/analyzer"
	"github.com/raysh454/phishlens/internal/assessor"
	"github.com/raysh454/phishlens/internal/collector"
	"github.com/raysh454/phishlens/internal/ledger"
	"github.com/raysh454/phishlens/internal/store"
	"github.com/raysh454/phishlens/internal/webclient"
)

// Config is the process configuration. User-facing settings (model URL,
// thresholds, trusted domains) live in the state store, not here.
type Config struct {
	// ListenAddr is the HTTP listen address of `phishlens serve`.
	ListenAddr string

	// StorageRoot is the directory holding the sqlite database.
	StorageRoot string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// AnalyzeTimeout bounds one Analyze call end to end.
	AnalyzeTimeout time.Duration

	// AutoReportCooldown is the minimum gap between automatic reports of
	// one domain.
	AutoReportCooldown time.Duration

	// AutoScanCooldown drops repeated automatic scans of one URL.
	AutoScanCooldown time.Duration

	// BatchConcurrency is the ScanBatch worker count when the caller
	// does not pass one.
	BatchConcurrency int

	// SubscriberBuffer is the channel size of each result subscriber.
	SubscriberBuffer int

	WebClientCfg webclient.Config
	StoreCfg     store.Config
	AnalyzerCfg  analyzer.Config
	AssessorCfg  assessor.Config
	CollectorCfg collector.Config
}

// DefaultConfig returns a Config populated with development defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:         ":8080",
		StorageRoot:        "~/.config/phishlens",
		LogLevel:           "info",
		AnalyzeTimeout:     25 * time.Second,
		AutoReportCooldown: ledger.DefaultCooldown,
		AutoScanCooldown:   1200 * time.Millisecond,
		BatchConcurrency:   4,
		SubscriberBuffer:   16,
		WebClientCfg:       webclient.DefaultConfig(),
		StoreCfg:           store.DefaultConfig(),
		AnalyzerCfg:        analyzer.DefaultConfig(),
		AssessorCfg:        assessor.DefaultConfig(),
		CollectorCfg:       collector.DefaultConfig(),
	}
}

// LoadConfig returns DefaultConfig overridden by PHISHLENS_* environment
// variables. A .env file in the working directory is loaded first when
// present; variables already set in the environment win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	cfg.ListenAddr = getenv("PHISHLENS_LISTEN_ADDR", cfg.ListenAddr)
	cfg.StorageRoot = getenv("PHISHLENS_STORAGE_ROOT", cfg.StorageRoot)
	cfg.LogLevel = strings.ToLower(getenv("PHISHLENS_LOG_LEVEL", cfg.LogLevel))

	cfg.StoreCfg.Backend = store.Backend(strings.ToLower(getenv("PHISHLENS_STORE", string(cfg.StoreCfg.Backend))))
	cfg.StoreCfg.RedisAddr = getenv("PHISHLENS_REDIS_ADDR", cfg.StoreCfg.RedisAddr)
	cfg.StoreCfg.RedisPassword = getenv("PHISHLENS_REDIS_PASSWORD", cfg.StoreCfg.RedisPassword)
	cfg.WebClientCfg.Client = webclient.Client(strings.ToLower(getenv("PHISHLENS_WEBCLIENT", string(cfg.WebClientCfg.Client))))

	var err error
	if cfg.StoreCfg.RedisDB, err = getenvInt("PHISHLENS_REDIS_DB", cfg.StoreCfg.RedisDB); err != nil {
		return nil, err
	}
	if cfg.AnalyzerCfg.RequestTimeout, err = getenvDuration("PHISHLENS_ML_TIMEOUT", cfg.AnalyzerCfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.AnalyzeTimeout, err = getenvDuration("PHISHLENS_ANALYZE_TIMEOUT", cfg.AnalyzeTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveStorage expands a leading ~ in StorageRoot and places a relative
// sqlite path under it.
func (c *Config) ResolveStorage() error {
	root, err := expandPath(c.StorageRoot)
	if err != nil {
		return fmt.Errorf("expanding storage root path: %w", err)
	}
	c.StorageRoot = root
	if c.StoreCfg.SQLitePath != "" && !filepath.IsAbs(c.StoreCfg.SQLitePath) {
		c.StoreCfg.SQLitePath = filepath.Join(root, c.StoreCfg.SQLitePath)
	}
	return nil
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	var out int
	if _, err := fmt.Sscanf(v, "%d", &out); err != nil {
		return def, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return out, nil
}

// getenvDuration accepts Go durations ("12s") or plain milliseconds.
func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	var ms int64
	if _, err := fmt.Sscanf(v, "%d", &ms); err != nil {
		return def, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
