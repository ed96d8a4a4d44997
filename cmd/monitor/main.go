package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/robfig/cron/v3"

	monitor "github.com/koen-bo/KA-database"
	"github.com/koen-bo/KA-database/api"
	"github.com/koen-bo/KA-database/db"
	"github.com/koen-bo/KA-database/telemetry"
)

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("monitor service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := telemetry.InitTracer(context.Background(), "ka-monitor", "1.0.0")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else if tp != nil {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Default values
	defaultPort := getEnv("PORT", "8080")
	defaultStoragePath := getEnv("STORAGE_BASE_PATH", "./storage")
	defaultConfigDir := getEnv("CONFIG_DIR", "./config")
	defaultSchedule := getEnv("INGEST_SCHEDULE", "0 * * * *")
	defaultAcceptScore := getEnv("ACCEPT_SCORE", "120")
	defaultMaxFeedItems := getEnv("MAX_FEED_ITEMS", "0")

	// Parse acceptance threshold
	acceptScore, err := strconv.Atoi(defaultAcceptScore)
	if err != nil {
		logger.Warn("invalid ACCEPT_SCORE value, using default",
			"provided", defaultAcceptScore,
			"default", 120,
			"error", err,
		)
		acceptScore = 120
	}

	// Parse per-feed item cap
	maxFeedItems, err := strconv.Atoi(defaultMaxFeedItems)
	if err != nil || maxFeedItems < 0 {
		logger.Warn("invalid MAX_FEED_ITEMS value, using default",
			"provided", defaultMaxFeedItems,
			"default", 0,
		)
		maxFeedItems = 0
	}

	// Command-line flags (override environment variables)
	port := flag.String("port", defaultPort, "Server port")
	configDir := flag.String("config-dir", defaultConfigDir, "Directory holding keyword and feed files")
	schedule := flag.String("ingest-schedule", defaultSchedule, "Cron expression for periodic ingestion")
	scoreThreshold := flag.Int("accept-score", acceptScore, "Minimum link score before a document download is attempted")
	disableCORS := flag.Bool("disable-cors", false, "Disable CORS")
	disableScheduler := flag.Bool("disable-scheduler", false, "Disable periodic ingestion")
	flag.Parse()

	// PostgreSQL database configuration (required)
	dbHost := getEnv("DB_HOST", "")
	if dbHost == "" {
		logger.Error("DB_HOST environment variable is required")
		os.Exit(1)
	}

	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "monitor")
	dbPassword := getEnv("DB_PASSWORD", "monitor_dev_pass")
	dbName := getEnv("DB_NAME", "monitor")

	dbConfig := db.Config{
		DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", dbHost, dbPort, dbUser, dbPassword, dbName),
	}
	logger.Info("using PostgreSQL database", "host", dbHost, "port", dbPort, "database", dbName)

	// Create server configuration
	config := api.Config{
		Addr:     ":" + *port,
		DBConfig: dbConfig,
		MonitorConfig: monitor.Config{
			HTTPTimeout:  15 * time.Second,
			ConfigDir:    *configDir,
			AcceptScore:  *scoreThreshold,
			Rules:        monitor.DefaultScoringRules(),
			MaxFeedItems: maxFeedItems,
		},
		StoragePath: defaultStoragePath,
		CORSEnabled: !*disableCORS,
	}

	// Create server
	server, err := api.NewServer(config)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Schedule periodic ingestion runs
	var scheduler *cron.Cron
	if !*disableScheduler {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(*schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			stats, err := server.Monitor().RunIngestion(ctx)
			if err != nil {
				logger.Error("scheduled ingestion failed", "error", err)
				return
			}
			logger.Info("scheduled ingestion complete",
				"entries_found", stats.EntriesFound,
				"filtered_out", stats.EntriesFiltered,
				"already_stored", stats.EntriesSkipped,
				"stored", stats.EntriesStored,
				"failed", stats.EntriesFailed,
			)
		})
		if err != nil {
			logger.Error("invalid ingestion schedule", "schedule", *schedule, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("ingestion scheduler started", "schedule", *schedule)
	}

	// Start server in a goroutine
	go func() {
		logger.Info("monitor service starting",
			"port", *port,
			"database_host", dbHost,
			"database_name", dbName,
			"storage_path", defaultStoragePath,
			"config_dir", *configDir,
			"accept_score", *scoreThreshold,
			"max_feed_items", maxFeedItems,
			"scheduler_enabled", !*disableScheduler,
		)

		if err := server.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logger.Info("shutting down gracefully")
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
