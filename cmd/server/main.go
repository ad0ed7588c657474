// Gambino reconciliation - daily revenue reconciliation and fee settlement.
package main

import (
	"context"
	"os"

	"github.com/gambino-gaming/reconciliation/internal/config"
	"github.com/gambino-gaming/reconciliation/internal/logging"
	"github.com/gambino-gaming/reconciliation/internal/server"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Create logger
	logger := logging.New("info", "text")

	logger.Info("starting reconciliation service",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"report_window_hrs", cfg.ReportWindowMaxHrs,
		"quality_review_floor", cfg.QualityReviewFloor,
	)

	// Create and run server
	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
