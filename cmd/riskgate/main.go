package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/trade-risk-gate/internal/breaker"
	"github.com/ducminhle1904/trade-risk-gate/internal/checks/regimecheck"
	"github.com/ducminhle1904/trade-risk-gate/internal/config"
	"github.com/ducminhle1904/trade-risk-gate/internal/gate"
	"github.com/ducminhle1904/trade-risk-gate/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-gate/internal/notifications"
	"github.com/ducminhle1904/trade-risk-gate/internal/storage"
	"github.com/ducminhle1904/trade-risk-gate/pkg/logger"
	"github.com/ducminhle1904/trade-risk-gate/pkg/reporting"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

func main() {
	var (
		symbol      = flag.String("symbol", "", "Trade symbol (e.g. SPY)")
		side        = flag.String("side", "buy", "Trade side: buy or sell")
		notional    = flag.Float64("notional", 0, "Trade notional in USD")
		model       = flag.String("model", "", "Upstream model identifier (optional)")
		confidence  = flag.Float64("confidence", 0, "Model-stated confidence 0-1 (optional)")
		reasoning   = flag.String("reasoning", "", "Model reasoning text (optional)")
		historyFile = flag.String("history", "", "JSON file with the rolling trade-outcome window (optional)")
		regime      = flag.String("regime", "calm", "Current regime: calm, trending_bull, trending_bear, volatile, spike")
		excelOut    = flag.String("excel-out", "", "Write the validation audit to this Excel file (optional)")
		serve       = flag.Bool("serve", false, "Keep serving metrics and health endpoints after evaluation")
		jsonOut     = flag.Bool("json", false, "Print the raw ValidationResult as JSON")
	)
	flag.Parse()

	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	zl, err := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if *symbol == "" || *notional <= 0 {
		flag.Usage()
		log.Fatal("Both -symbol and a positive -notional are required")
	}

	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open storage at %s: %v", cfg.Storage.DatabasePath, err)
	}
	defer store.Close()

	weights, err := config.LoadWeights(cfg.Gate.WeightsFile)
	if err != nil {
		log.Fatalf("Failed to load weight table: %v", err)
	}

	var notifier notifications.Notifier = notifications.NoopNotifier{}
	if cfg.Notifications.TelegramToken != "" {
		notifier = notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
	}

	brk := breaker.New(breaker.DefaultConfig(), store)
	brk.SetTripCallback(func(kind breaker.TierKind, value float64) {
		monitoring.RecordBreakerTrip(string(kind))
		zl.Error().Str("tier", string(kind)).Float64("value", value).Msg("circuit breaker tier tripped")
		if err := notifier.SendAlert("error", fmt.Sprintf("Circuit breaker tier %s tripped at %.4f", kind, value)); err != nil {
			zl.Warn().Err(err).Msg("failed to send breaker trip notification")
		}
	})
	ctx := context.Background()
	if err := brk.Restore(ctx); err != nil {
		zl.Warn().Err(err).Msg("could not restore circuit breaker state; starting fresh")
	}

	gateConfig, err := config.LoadGateConfig(cfg.Gate.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load gate config: %v", err)
	}
	gateConfig.CheckTimeout = cfg.Gate.CheckTimeout

	riskGate, err := gate.New(gateConfig, weights, gate.Dependencies{
		Incidents: store,
		Regimes:   regimecheck.StaticSource{State: parseRegime(*regime)},
		Accuracy:  store,
		Breaker:   brk,
		Notifier:  notifier,
		Logger:    zl,
	})
	if err != nil {
		log.Fatalf("Failed to build risk gate: %v", err)
	}

	request := types.TradeRequest{
		Symbol:     *symbol,
		Side:       types.TradeSide(*side),
		Notional:   *notional,
		Model:      *model,
		Confidence: *confidence,
		Reasoning:  *reasoning,
	}

	history, err := loadHistory(*historyFile)
	if err != nil {
		log.Fatalf("Failed to load trade history: %v", err)
	}

	bound := gate.NewBound(riskGate, cfg.Gate.PortfolioValue)
	result := bound.ValidateTrade(ctx, request, history)

	if *jsonOut {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
		fmt.Println(string(encoded))
	} else {
		reporting.NewDefaultConsoleReporter().OutputResult(request, result)
	}

	if *excelOut != "" {
		reporter := reporting.NewDefaultExcelReporter()
		entries := []reporting.AuditEntry{{Request: request, Result: result}}
		if err := reporter.WriteAuditXLSX(entries, *excelOut); err != nil {
			log.Fatalf("Failed to write Excel audit: %v", err)
		}
		fmt.Printf("📄 Audit written to %s\n", *excelOut)
	}

	if *serve {
		serveMonitoring(cfg)
	}

	if result.Decision == gate.DecisionBlock {
		os.Exit(2)
	}
}

// parseRegime maps the CLI regime name to a regime state with full
// classification confidence.
func parseRegime(name string) regimecheck.State {
	regimes := map[string]regimecheck.Regime{
		"calm":          regimecheck.RegimeCalm,
		"trending_bull": regimecheck.RegimeTrendingBull,
		"trending_bear": regimecheck.RegimeTrendingBear,
		"volatile":      regimecheck.RegimeVolatile,
		"spike":         regimecheck.RegimeSpike,
	}
	regime, ok := regimes[name]
	if !ok {
		regime = regimecheck.RegimeUnknown
	}
	return regimecheck.NewState(regime, 0.9)
}

// loadHistory reads the caller-supplied trade-outcome window from a JSON
// file. An empty path yields an empty window.
func loadHistory(path string) ([]types.TradeOutcome, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var history []types.TradeOutcome
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// serveMonitoring blocks serving the Prometheus and health endpoints.
func serveMonitoring(cfg *config.Config) {
	health := monitoring.NewHealthChecker()
	health.RecordEvaluation()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.HealthPort)
		log.Printf("Health endpoint listening on %s/health", addr)
		mux := http.NewServeMux()
		mux.Handle("/health", health)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Health server stopped: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
	log.Printf("Metrics endpoint listening on %s/metrics", addr)
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}
