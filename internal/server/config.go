package server

import "github.com/raysh454/phishlens/internal/logging"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server (CLI
	// commands use the orchestrator in-process and do not need it).
	ListenAddr string

	// Logger defaults to a stdout logger when nil.
	Logger logging.Logger

	// LogBodies adds request bodies to the request log line.
	LogBodies bool
}
