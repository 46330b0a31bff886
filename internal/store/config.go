package store

type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

// Config selects and configures a KV backend.
type Config struct {
	Backend Backend `json:"backend"`

	// SQLitePath is the database file of the sqlite backend.
	SQLitePath string `json:"sqlite_path"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// KeyPrefix namespaces keys on shared backends (redis).
	KeyPrefix string `json:"key_prefix"`
}

// DefaultConfig returns the sqlite backend under the working directory.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendSQLite,
		SQLitePath: "phishlens.db",
		RedisAddr:  "localhost:6379",
		KeyPrefix:  "phishlens:",
	}
}
