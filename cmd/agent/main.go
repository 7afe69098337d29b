package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/broker"
	"github.com/ducminhle1904/equity-trading-agent/internal/config"
	"github.com/ducminhle1904/equity-trading-agent/internal/feed"
	"github.com/ducminhle1904/equity-trading-agent/internal/indicators"
	"github.com/ducminhle1904/equity-trading-agent/internal/logger"
	"github.com/ducminhle1904/equity-trading-agent/internal/monitoring"
	"github.com/ducminhle1904/equity-trading-agent/internal/notifications"
	"github.com/ducminhle1904/equity-trading-agent/internal/orchestrator"
	"github.com/ducminhle1904/equity-trading-agent/internal/risk"
	"github.com/ducminhle1904/equity-trading-agent/internal/strategy"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (JSON); defaults apply when omitted")
		barsFile   = flag.String("bars", "", "CSV file of market bars to replay through the agent")
		envFile    = flag.String("env", ".env", "Environment file path")
		replayWait = flag.Duration("replay-wait", 0, "Pause between replayed bars (e.g. 100ms)")
	)
	flag.Parse()

	if *barsFile == "" {
		log.Fatal("Please specify a market data file with -bars flag")
	}

	// Load environment variables from .env file
	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("Warning: Could not load %s (%v), checking environment variables...", *envFile, err)
	}

	fmt.Println("🚀 Equity Trading Agent Starting...")

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
		fmt.Printf("📋 Config loaded from %s\n", *configFile)
	} else {
		fmt.Println("📋 Running with default configuration")
	}

	zlog, err := logger.Build(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, *barsFile, *replayWait, zlog); err != nil {
		zlog.Fatal("agent failed", zap.Error(err))
	}
}

func run(cfg *config.Config, barsFile string, replayWait time.Duration, zlog *zap.Logger) error {
	loc := cfg.Location()

	breaker, err := risk.NewCircuitBreaker(risk.CircuitBreakerConfig{
		Capital:               decimal.NewFromFloat(cfg.Account.Capital),
		MaxDailyLossPct:       cfg.Risk.MaxDailyLossPct,
		MaxWeeklyLossPct:      cfg.Risk.MaxWeeklyLossPct,
		MaxMonthlyDrawdownPct: cfg.Risk.MaxMonthlyDrawdownPct,
		MaxTradesPerDay:       cfg.Risk.MaxTradesPerDay,
	}, loc, zlog)
	if err != nil {
		return fmt.Errorf("building circuit breaker: %w", err)
	}

	validator, err := risk.NewTradeValidator(risk.ValidatorConfig{
		MaxPositionSizePct:     cfg.Risk.MaxPositionSizePct,
		MaxConcurrentPositions: cfg.Risk.MaxConcurrentPositions,
		Hours: risk.MarketHours{
			Location:          loc,
			OpenHour:          cfg.Market.OpenHour,
			OpenMinute:        cfg.Market.OpenMinute,
			CloseHour:         cfg.Market.CloseHour,
			CloseMinute:       cfg.Market.CloseMinute,
			AvoidFirstMinutes: cfg.Market.AvoidFirstMinutes,
			AvoidLastMinutes:  cfg.Market.AvoidLastMinutes,
		},
	}, zlog)
	if err != nil {
		return fmt.Errorf("building trade validator: %w", err)
	}

	sizer, err := risk.NewPositionSizer(risk.SizerConfig{
		MaxPositionSizePct: cfg.Risk.MaxPositionSizePct,
		RiskPerTradePct:    cfg.Risk.MaxRiskPerTradePct,
	}, zlog)
	if err != nil {
		return fmt.Errorf("building position sizer: %w", err)
	}

	strategies := buildStrategies(cfg, loc, zlog)
	if len(strategies) == 0 {
		return fmt.Errorf("no strategies enabled in config")
	}

	paper := broker.NewPaperBroker(decimal.NewFromFloat(cfg.Account.Capital), zlog)
	notifier := buildNotifier(cfg, zlog)
	health := monitoring.NewHealthChecker()

	orch := orchestrator.New(cfg, paper, breaker, validator, sizer, strategies, notifier, health, zlog)
	if err := orch.Start(); err != nil {
		return fmt.Errorf("starting orchestrator: %w", err)
	}

	startMonitoringServer(cfg.MetricsAddr, health, zlog)
	printStartupSummary(cfg, strategies)

	csvFeed := feed.NewCSVFeed(zlog)
	bars, err := csvFeed.Load(barsFile)
	if err != nil {
		return fmt.Errorf("loading market data: %w", err)
	}
	health.SetFeedConnected(true)
	zlog.Info("market data loaded",
		zap.String("path", barsFile), zap.Int("bars", len(bars)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fills in any indicator columns the recording left empty
	enricher := indicators.NewEnricher()

replay:
	for _, bar := range bars {
		select {
		case <-ctx.Done():
			zlog.Info("shutdown requested")
			break replay
		default:
		}
		orch.OnMarketUpdate(ctx, enricher.Enrich(bar))
		if replayWait > 0 {
			time.Sleep(replayWait)
		}
	}

	orch.FlattenAll(context.Background())
	orch.Stop()
	fmt.Println("👋 Agent stopped")
	return nil
}

func buildStrategies(cfg *config.Config, loc *time.Location, zlog *zap.Logger) []strategy.Strategy {
	var out []strategy.Strategy
	if cfg.Strategies.ORB {
		out = append(out, strategy.NewORB(strategy.DefaultORBConfig(), loc, zlog))
	}
	if cfg.Strategies.VWAPReversion {
		out = append(out, strategy.NewVWAPReversion(strategy.DefaultVWAPReversionConfig(), loc, zlog))
	}
	if cfg.Strategies.MomentumScalp {
		out = append(out, strategy.NewMomentumScalp(strategy.DefaultMomentumScalpConfig(), loc, zlog))
	}
	if cfg.Strategies.GapAndGo {
		out = append(out, strategy.NewGapAndGo(strategy.DefaultGapAndGoConfig(), loc, zlog))
	}
	if cfg.Strategies.EODReversal {
		out = append(out, strategy.NewEODReversal(strategy.DefaultEODReversalConfig(), loc, zlog))
	}
	return out
}

func buildNotifier(cfg *config.Config, zlog *zap.Logger) notifications.Notifier {
	if cfg.Notifications == nil || !cfg.Notifications.Enabled {
		return notifications.NopNotifier{}
	}
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatID == "" {
		zlog.Warn("notifications enabled but TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is unset")
		return notifications.NopNotifier{}
	}
	return notifications.NewTelegramNotifier(token, chatID)
}

func startMonitoringServer(addr string, health *monitoring.HealthChecker, zlog *zap.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/health", health)

	go func() {
		zlog.Info("monitoring server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			zlog.Error("monitoring server stopped", zap.Error(err))
		}
	}()
}

func printStartupSummary(cfg *config.Config, strategies []strategy.Strategy) {
	fmt.Printf("💰 Capital: $%.2f\n", cfg.Account.Capital)
	fmt.Printf("🛡️  Daily loss limit: %.1f%% | Weekly: %.1f%% | Monthly drawdown: %.1f%%\n",
		cfg.Risk.MaxDailyLossPct, cfg.Risk.MaxWeeklyLossPct, cfg.Risk.MaxMonthlyDrawdownPct)
	fmt.Printf("⏰ Session: %02d:%02d-%02d:%02d %s\n",
		cfg.Market.OpenHour, cfg.Market.OpenMinute,
		cfg.Market.CloseHour, cfg.Market.CloseMinute, cfg.Market.Timezone)
	fmt.Printf("📊 Strategies (%d):\n", len(strategies))
	for _, s := range strategies {
		fmt.Printf("   • %s\n", s.Name())
	}
}
