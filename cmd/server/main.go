// Command server runs the taskward task API.
//
// Configuration is layered: built-in defaults, a YAML config file
// (-config flag, TASKWARD_CONFIG, ./config.yaml, /etc/taskward/config.yaml),
// then TASKWARD_* environment variable overrides:
//
//	TASKWARD_PORT          - Listen port (default: 8080)
//	TASKWARD_STORAGE       - Storage type: "memory" or "postgres" (default: "memory")
//	TASKWARD_POSTGRES_DSN  - PostgreSQL connection string
//	TASKWARD_JWT_SECRET    - Token signing secret (required)
//	TASKWARD_TOKEN_TTL     - Token lifetime (default: 1h)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/taskward/taskward/pkg/auth"
	"github.com/taskward/taskward/pkg/config"
	"github.com/taskward/taskward/pkg/notify"
	"github.com/taskward/taskward/pkg/storage"
	"github.com/taskward/taskward/pkg/storage/memory"
	"github.com/taskward/taskward/pkg/storage/postgres"
	transporthttp "github.com/taskward/taskward/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()
	logger.Info("storage ready", "type", cfg.Storage.Type)

	codec := auth.NewCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	resolver := auth.NewResolver(codec, store, logger)

	var notifier transporthttp.Notifier
	var gateway http.Handler
	if cfg.Notifications.Enabled {
		hub := notify.NewHub(resolver, logger)
		defer hub.Close()
		notifier = hub
		gateway = hub
	}

	adapter := transporthttp.NewAdapter(store, store, codec, resolver, notifier, transporthttp.Config{
		MaxBodySize: cfg.Server.MaxBodySize,
		Logger:      logger,
	})

	srv := transporthttp.NewServer(adapter, gateway,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetrics(cfg.Observability.Metrics.Enabled, cfg.Observability.Metrics.Path),
		transporthttp.WithLogger(logger),
	)

	return srv.ListenAndServe()
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		return postgres.New(context.Background(), postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
	default:
		return memory.New(), nil
	}
}
