// Package main runs the sandwich-watch service: mempool event ingest,
// background correlation, the detection API and the WebSocket stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-sandwich-watch/internal/api"
	"solana-sandwich-watch/internal/detect"
	"solana-sandwich-watch/internal/mempool"
	"solana-sandwich-watch/internal/observability"
	"solana-sandwich-watch/internal/stats"
	"solana-sandwich-watch/internal/storage"
	chstore "solana-sandwich-watch/internal/storage/clickhouse"
	"solana-sandwich-watch/internal/storage/memory"
	"solana-sandwich-watch/internal/storage/migrations"
	pgstore "solana-sandwich-watch/internal/storage/postgres"
	"solana-sandwich-watch/internal/storage/redisstore"
	"solana-sandwich-watch/internal/stream"
)

// DEX program aliases mapped to program IDs and pool labels.
var dexAliases = map[string]string{
	"raydium": "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
	"orca":    "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc",
	"swap":    "SwaPpA9LAaLfeLi3a68M4DjnLqgtticKg6CnyNwgAC8",
}

var dexLabels = map[string]string{
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8": "RAY/SOL",
	"whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc":  "ORCA/SOL",
	"SwaPpA9LAaLfeLi3a68M4DjnLqgtticKg6CnyNwgAC8":  "SOL/USDC",
}

// allStores holds all storage implementations.
type allStores struct {
	records   storage.DetectionRecordStore
	attackers storage.AttackerStore
	alerts    storage.AlertHistoryStore
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", getEnvDefault("HTTP_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Optional Redis address for the shared attacker set")
	redisPassword := flag.String("redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password")
	natsURL := flag.String("nats-url", os.Getenv("NATS_URL"), "Optional NATS URL for publishing events and alerts")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	programs := flag.String("programs", "", "Comma-separated DEX program IDs to monitor")
	dex := flag.String("dex", "raydium,orca", "Comma-separated DEX aliases (raydium, orca, swap)")
	attackerSeed := flag.String("attackers", os.Getenv("KNOWN_ATTACKERS"), "Comma-separated addresses to seed the known-attacker set")
	solPrice := flag.Float64("sol-price", envFloat("SOL_PRICE_USD", mempool.DefaultSolPriceUsd), "SOL/USD price for impact estimates")
	retention := flag.Duration("retention", mempool.DefaultRetentionHorizon, "Mempool event retention horizon")
	correlationInterval := flag.Duration("correlation-interval", mempool.DefaultCorrelationInterval, "Background correlation pass interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	programList := resolvePrograms(*programs, *dex)
	if len(programList) == 0 {
		logger.Fatal("No DEX programs specified. Use --programs or --dex")
	}
	logger.Printf("Monitoring DEX programs: %v", programList)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *redisAddr, *redisPassword, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	if err := seedAttackers(ctx, stores.attackers, *attackerSeed); err != nil {
		logger.Fatalf("Failed to seed attacker set: %v", err)
	}

	metrics := observability.NewMetrics("sandwichwatch")
	aggregator := stats.NewAggregator(stores.alerts)

	// The hub's init snapshot reads from the monitor, which in turn
	// broadcasts through the hub. The closure resolves the cycle.
	var monitor *mempool.Monitor
	hub := stream.NewHub(func() any {
		if monitor == nil {
			return map[string]any{}
		}
		snapshot := map[string]any{
			"recentTransactions": monitor.Buffer().Recent(50),
		}
		if s, err := aggregator.MempoolStats(context.Background()); err == nil {
			snapshot["stats"] = s
		}
		return snapshot
	}, metrics, logger)
	defer hub.Close()

	var broadcaster mempool.Broadcaster = hub
	if *natsURL != "" {
		publisher, err := stream.NewNATSPublisher(*natsURL, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
		broadcaster = stream.Fanout{hub, publisher}
	}

	config := mempool.DefaultConfig(programList)
	config.ProgramLabels = resolveLabels(programList)
	config.SolPriceUsd = *solPrice
	config.RetentionHorizon = *retention
	config.CorrelationInterval = *correlationInterval

	monitor, err = mempool.NewMonitor(mempool.MonitorOptions{
		Config:      config,
		Attackers:   stores.attackers,
		Records:     stores.records,
		Alerts:      stores.alerts,
		Broadcaster: broadcaster,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create monitor: %v", err)
	}

	responder := detect.NewResponder(detect.ResponderOptions{
		Monitor: monitor,
		Records: stores.records,
		Alerts:  stores.alerts,
		Metrics: metrics,
		Logger:  logger,
	})

	handlers := api.NewHandlers(api.HandlerOptions{
		Responder:  responder,
		Monitor:    monitor,
		Records:    stores.records,
		Attackers:  stores.attackers,
		Alerts:     stores.alerts,
		Aggregator: aggregator,
		Logger:     logger,
	})

	router := api.NewRouter(api.RouterOptions{
		Handlers: handlers,
		Stream:   hub,
		Metrics:  observability.Handler(),
		Health: func(ctx context.Context) error {
			if _, err := stores.attackers.Contains(ctx, "healthcheck"); err != nil {
				return fmt.Errorf("attacker store: %w", err)
			}
			if _, err := stores.alerts.Recent(ctx, 1); err != nil {
				return fmt.Errorf("alert history: %w", err)
			}
			return nil
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Background correlation and retention.
	monitorDone := make(chan error, 1)
	go func() {
		monitorDone <- monitor.Run(ctx)
	}()

	go func() {
		logger.Printf("Listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	cancel()

	go func() {
		sig := <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown error: %v", err)
	}

	if err := <-monitorDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("Monitor error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// resolvePrograms resolves program IDs from flags.
func resolvePrograms(programs, dex string) []string {
	result := make(map[string]bool)

	if programs != "" {
		for _, p := range strings.Split(programs, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				result[p] = true
			}
		}
	}

	if dex != "" {
		for _, alias := range strings.Split(dex, ",") {
			alias = strings.TrimSpace(strings.ToLower(alias))
			if programID, ok := dexAliases[alias]; ok {
				result[programID] = true
			}
		}
	}

	list := make([]string, 0, len(result))
	for p := range result {
		list = append(list, p)
	}
	return list
}

// resolveLabels returns pool labels for every program that has one.
func resolveLabels(programs []string) map[string]string {
	labels := make(map[string]string)
	for _, p := range programs {
		if label, ok := dexLabels[p]; ok {
			labels[p] = label
		}
	}
	return labels
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN, redisAddr, redisPassword string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			records:   memory.NewDetectionRecordStore(),
			attackers: memory.NewAttackerStore(),
			alerts:    memory.NewAlertHistoryStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		records:   pgstore.NewDetectionRecordStore(pool),
		attackers: pgstore.NewAttackerStore(pool),
		alerts:    chstore.NewAlertHistoryStore(chConn),
	}

	// Redis replaces the PostgreSQL attacker set when the set must be
	// shared with external tooling.
	var redisAttackers *redisstore.AttackerStore
	if redisAddr != "" {
		attackers, err := redisstore.NewAttackerStore(ctx, redisAddr, redisPassword, 0)
		if err != nil {
			chConn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		stores.attackers = attackers
		redisAttackers = attackers
	}

	cleanup := func() {
		if redisAttackers != nil {
			redisAttackers.Close()
		}
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// seedAttackers adds the configured addresses to the attacker set.
func seedAttackers(ctx context.Context, store storage.AttackerStore, seed string) error {
	if seed == "" {
		return nil
	}
	for _, addr := range strings.Split(seed, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if err := store.Add(ctx, addr); err != nil {
			return fmt.Errorf("seed attacker %s: %w", addr, err)
		}
	}
	return nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
