package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/crewgate/crewgate/internal/api"
	"github.com/crewgate/crewgate/internal/config"
	"github.com/crewgate/crewgate/internal/crew"
	"github.com/crewgate/crewgate/internal/runner"
	"github.com/crewgate/crewgate/internal/store"
)

func main() {
	// A missing .env is fine, the environment alone is a valid configuration.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.SlogLevel())

	logger.Info("crewgate: starting",
		"listen_addr", cfg.ListenAddr,
		"store", cfg.Store.Kind,
		"crew", cfg.Crew.Kind,
	)

	st, err := newStore(cfg.Store)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	provider, loadErr := crew.Load(cfg.Crew)
	if loadErr != nil {
		if cfg.Crew.Required {
			log.Fatalf("failed to load crew: %v", loadErr)
		}
		logger.Warn("crew unavailable, starting degraded", "error", loadErr)
	}

	run := runner.New(st, provider, logger, cfg.Runner.Workers, cfg.Runner.QueueDepth)
	run.Start()

	ctx, cancel := context.WithCancel(context.Background())
	janitor := runner.NewJanitor(st, logger, cfg.Runner.Retention, cfg.Runner.SweepInterval)
	go janitor.Run(ctx)

	srv := api.NewServer(cfg.ListenAddr, st, run, provider, loadErr, logger)

	err = srv.Run()

	cancel()
	run.Stop()

	if err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func newStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Kind {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreSQLite:
		return store.NewSQLiteStore(cfg.DBPath)
	case config.StoreRedis:
		return store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
