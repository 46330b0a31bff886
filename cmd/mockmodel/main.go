// Command mockmodel starts a stand-in for the remote phishing model.
// Usage: go run ./cmd/mockmodel [port]
// Default port: 8000
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/mockmodel"
)

func main() {
	cfg := mockmodel.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Addr = fmt.Sprintf(":%d", port)
	}
	if m := os.Getenv("MOCKMODEL_MODE"); m != "" {
		cfg.InitialMode = mockmodel.Mode(m)
		if !cfg.InitialMode.Valid() {
			log.Fatalf("Invalid mode: %s (want one of %v)", m, mockmodel.Modes)
		}
	}

	fmt.Println("===========================================")
	fmt.Println("   PhishLens Mock Model")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Printf("  POST /predict        model endpoint (mode %s)\n", cfg.InitialMode)
	fmt.Println("  GET  /health         health check")
	fmt.Println("  GET  /mock/control   switch response shapes")
	fmt.Println("  GET  /pages/{page}   sample pages to scan")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mockmodel.New(cfg, logging.NewStdoutLogger("mockmodel"))
	if err := server.ListenAndServe(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
