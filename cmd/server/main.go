package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreashuber69/smart-trade-sub000/internal/api"
	"github.com/andreashuber69/smart-trade-sub000/internal/config"
	"github.com/andreashuber69/smart-trade-sub000/internal/db"
	"github.com/andreashuber69/smart-trade-sub000/internal/engine"
	"github.com/andreashuber69/smart-trade-sub000/internal/exchange"
	"github.com/andreashuber69/smart-trade-sub000/internal/models"
	"github.com/andreashuber69/smart-trade-sub000/internal/notifications"
	"github.com/andreashuber69/smart-trade-sub000/internal/repository"
	"github.com/andreashuber69/smart-trade-sub000/internal/scheduler"
)

const banner = `
╔══════════════════════════════════════╗
║      Smart Trade Engine v0.1         ║
║                                      ║
╚══════════════════════════════════════╝
`

// tradeRecorder adapts TradeRepo to the engine's Recorder interface.
type tradeRecorder struct {
	repo *repository.TradeRepo
}

func (r *tradeRecorder) Record(ctx context.Context, trade *models.Trade) error {
	_, err := r.repo.Record(ctx, trade)
	return err
}

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Database
	fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		pool.Close()
		fmt.Println("[DB] Connection pool closed")
	}()

	if err := db.TestConnection(pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
		os.Exit(1)
	}

	// Repos
	stateRepo := repository.NewTradeStateRepo(pool)
	tradeRepo := repository.NewTradeRepo(pool)

	// Notifications
	notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The scheduler drives trade cycles through the service; the service is
	// created right after, so the closure captures the variable.
	var svc *engine.Service
	sched := scheduler.New(func(pair string) {
		if err := svc.RunCycle(ctx, pair); err != nil {
			fmt.Fprintf(os.Stderr, "[CYCLE] %s: %v\n", pair, err)
		}
	})

	grace := time.Duration(cfg.EnableGraceSeconds) * time.Second
	minRetry := time.Duration(cfg.MinRetrySeconds) * time.Second
	maxRetry := time.Duration(cfg.MaxRetrySeconds) * time.Second
	svc = engine.NewService(stateRepo, sched, grace, minRetry)

	policy, err := engine.ParseTransferPolicy(cfg.TransferPolicy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// One engine per configured pair.
	for _, symbol := range cfg.Pairs {
		spec, ok := config.LookupPair(symbol)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown pair %q\n", symbol)
			os.Exit(1)
		}

		var client exchange.Client
		if cfg.PaperTradingEnabled {
			client = exchange.NewPaperExchange(spec,
				decimal.NewFromFloat(cfg.PaperFirstBalance),
				decimal.NewFromFloat(cfg.PaperSecondBalance),
				decimal.NewFromFloat(cfg.PaperFeePercent),
				decimal.NewFromFloat(cfg.PaperPrice))
		} else {
			client = exchange.NewRESTClient(cfg.ExchangeBaseURL, cfg.ExchangeAPIKey, spec)
		}

		e := engine.New(engine.Config{
			Pair:        spec,
			BuyMode:     cfg.TradeMode == "buy",
			TradePeriod: time.Duration(cfg.TradePeriodDays) * 24 * time.Hour,
			MinRetry:    minRetry,
			MaxRetry:    maxRetry,
			Transfers: engine.TransferConfig{
				Policy:      policy,
				EveryN:      cfg.TransferEveryN,
				SettleDelay: time.Duration(cfg.SettleDelaySeconds) * time.Second,
			},
			Paper: cfg.PaperTradingEnabled,
		}, client, stateRepo, sched, notify, &tradeRecorder{repo: tradeRepo})
		svc.Register(e)
		fmt.Printf("[MAIN] Registered %s (%s via %s)\n", symbol, cfg.TradeMode, client.Name())
	}

	// 1. Scheduler, then re-arm whatever was enabled before the restart.
	sched.Start()
	if err := svc.Restore(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[MAIN] Restore failed: %v\n", err)
		os.Exit(1)
	}

	// 2. API server
	srv := api.NewServer(pool, svc, cfg.Port, cfg.APIKey, cfg.CORSAllowOrigin)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}
