// Command marksim runs the market simulation engine and a demonstration
// HTTP/WebSocket adapter over it. Follows cmd/server main.go's
// pattern: flag-parsed config path, signal-driven graceful shutdown, an
// HTTP server started in a goroutine and torn down with a bounded
// shutdown context.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ayoubachak/marksim/internal/agents"
	"github.com/ayoubachak/marksim/internal/config"
	"github.com/ayoubachak/marksim/internal/metrics"
	"github.com/ayoubachak/marksim/internal/orchestrator"
	"github.com/ayoubachak/marksim/internal/transport"
)

const (
	appName    = "marksim"
	appVersion = "v0.1.0"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML configuration file (optional)")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Printf("%s %s\n", appName, appVersion)
		os.Exit(0)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	mtx := metrics.New(prometheus.NewRegistry())
	o, err := orchestrator.New(logger, cfg, mtx)
	if err != nil {
		logger.Fatal("failed to build orchestrator", zap.Error(err))
	}

	seedDefaultAgents(o, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := transport.NewBus(logger, cfg.Stream.MaxSize)
	defer bus.Close()
	transport.Bridge(ctx, o, bus, cfg.Symbol, cfg.Candle.Timeframes)

	hub := transport.NewHub(logger)
	relayTopics := []string{transport.TopicMarketData, transport.TopicTrades, transport.TopicDepth}
	for _, tag := range cfg.Candle.Timeframes {
		relayTopics = append(relayTopics, transport.CandleTopic(tag))
	}
	for _, topic := range relayTopics {
		if err := hub.Relay(ctx, bus, topic); err != nil {
			logger.Fatal("failed to relay bus topic to websocket hub", zap.String("topic", topic), zap.Error(err))
		}
	}

	router := transport.NewRouter(o, hub, cfg.Transport.DepthLevels)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Transport.Host, cfg.Transport.Port),
		Handler: router,
	}

	go func() {
		logger.Info("starting HTTP/WebSocket server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("starting simulation run loop")
		o.Run(nil)
		logger.Info("simulation run loop exited")
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	o.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}

	logger.Info("stopped")
}

// seedDefaultAgents populates a small illustrative population covering
// every archetype, matching original_source/marksim's demo simulation
// setup. A real deployment would drive add_agent from the control
// surface instead.
func seedDefaultAgents(o *orchestrator.Orchestrator, cfg *config.Config) {
	seed := cfg.AgentPool.Seed
	zero := decimal.Zero

	o.AddAgent(agents.NewMarketMaker("mm-0", seed+1, zero, zero, zero))
	for i := 0; i < 10; i++ {
		o.AddAgent(agents.NewNoiseTrader(fmt.Sprintf("noise-%d", i), seed+int64(i)+10, 0, zero))
	}
	for i := 0; i < 3; i++ {
		o.AddAgent(agents.NewTaker(fmt.Sprintf("taker-%d", i), seed+int64(i)+30, 0, 0, zero, zero))
	}
	o.AddAgent(agents.NewInformedTrader("informed-0", seed+40, 0, zero, zero))
	o.AddAgent(agents.NewTrendFollower("trend-0", seed+41, 0, zero, 0, zero, zero))
	o.AddAgent(agents.NewHFT("hft-0", seed+42, 0, zero, zero, zero))
	o.AddAgent(agents.NewWhale("whale-0", seed+43, 0, zero, zero, zero, zero))
}
