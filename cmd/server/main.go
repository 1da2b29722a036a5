package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"pumpstrategy/internal/api"
	"pumpstrategy/internal/bot"
	"pumpstrategy/internal/chain"
	"pumpstrategy/internal/config"
	"pumpstrategy/internal/feed"
	"pumpstrategy/internal/repository"
	"pumpstrategy/internal/service"
	"pumpstrategy/internal/websocket"
	"pumpstrategy/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.InitGlobalLogger(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", utils.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Торговое ядро
	engine := bot.NewStrategyEngine(cfg.Strategy, logger)

	// RPC клиент: загрузка сети и привилегии mint
	rpc := chain.NewClient(cfg.RPC, logger)
	defer rpc.Close()
	engine.SetPrivilegeReader(rpc)

	// Поток оператора
	hub := websocket.NewHub(logger)

	deps := &api.Dependencies{
		Engine:         engine,
		Hub:            hub,
		APITokenHash:   cfg.Server.APITokenHash,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	}

	// Postgres: черный список и история создателей
	var deployers *service.DeployerService
	if cfg.Database.Enabled {
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("connected to database", utils.String("dsn", cfg.Database.DSNWithoutPassword()))

		blacklist := service.NewBlacklistService(repository.NewBlacklistRepository(db), engine.FatalRisk(), logger)
		if _, err := blacklist.LoadInto(ctx); err != nil {
			return err
		}
		deployers = service.NewDeployerService(repository.NewDeployerRepository(db), logger)
		engine.SetDeployerCache(deployers)

		deps.BlacklistService = blacklist
		deps.DeployerService = deployers
	} else {
		logger.Warn("database disabled: blacklist and deployer history are not persisted")
	}

	var wg sync.WaitGroup
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker stopped", utils.Component(name), utils.Err(err))
			}
		}()
	}

	spawn("engine", engine.Run)
	if deployers != nil {
		spawn("deployer_cache", func(ctx context.Context) error {
			return deployers.RunPruner(ctx, service.DefaultDeployerCacheTTL)
		})
	}
	spawn("ws_hub", hub.Run)
	spawn("ws_snapshots", func(ctx context.Context) error {
		return hub.RunSnapshots(ctx, engine, cfg.Server.SnapshotInterval)
	})

	monitor := bot.NewChainMonitor(engine.ChainHealth(), rpc)
	spawn("chain_monitor", func(ctx context.Context) error {
		monitor.Start(ctx)
		return nil
	})

	// Поток событий pump.fun -> агрегатор -> ядро; сканер оценивает вход
	if cfg.Feed.Enabled {
		agg := feed.NewAggregator(cfg.Feed.Aggregator, engine, logger)
		engine.SetRugPredictor(agg)
		if deployers != nil {
			agg.SetDeployerRecorder(deployers)
		}

		events := feed.New(cfg.Feed.Stream, agg, logger)
		scanner := feed.NewScanner(cfg.Scanner, agg, engine, logger)
		scanner.SetOnResult(hub.BroadcastDecision)

		spawn("feed", events.Run)
		spawn("feed_pruner", func(ctx context.Context) error {
			return events.RunPruner(ctx, cfg.Feed.Aggregator.IdleTTL/2)
		})
		spawn("scanner", scanner.Run)
	}

	// HTTP API
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", utils.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		stop()
		wg.Wait()
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server forced to shutdown", utils.Err(err))
	}

	monitor.Stop()
	wg.Wait()
	logger.Info("server exited")
	return nil
}

// initDatabase открывает пул Postgres и проверяет соединение
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
