package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/bogzak/search-engine-ua-checker/internal/api/http"
	"github.com/bogzak/search-engine-ua-checker/internal/backend"
	"github.com/bogzak/search-engine-ua-checker/internal/catalog"
	"github.com/bogzak/search-engine-ua-checker/internal/config"
	"github.com/bogzak/search-engine-ua-checker/internal/lib/logger/sl"
	"github.com/bogzak/search-engine-ua-checker/internal/lib/logger/slogpretty"
	"github.com/bogzak/search-engine-ua-checker/internal/metrics"
	"github.com/bogzak/search-engine-ua-checker/internal/repository"
	"github.com/bogzak/search-engine-ua-checker/internal/repository/kafka"
	"github.com/bogzak/search-engine-ua-checker/internal/service"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	version           = "1.0.0"
	heartbeatInterval = 30 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	flags := pflag.NewFlagSet("agent", pflag.ExitOnError)
	flags.String("config", "", "config file")
	flags.String("env", envLocal, "logger flavour: local, dev or prod")
	flags.String("ua-json", "user_agents.json", "User-Agent catalog file")
	flags.String("agent-name", "ua-probe-agent", "agent id and Kafka consumer group")
	flags.String("health-port", "8081", "port of the health and metrics server")
	flags.String("report-url", "", "collector base URL for heartbeats")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)

	log.Info("starting application",
		"env", cfg.Env,
		"agent", cfg.Agent.Name,
		"version", version,
	)

	if err := run(cfg, log); err != nil {
		log.Error("agent failed", sl.Err(err))
		os.Exit(1)
	}

	log.Info("agent stopped gracefully")
}

func run(cfg *config.Config, log *slog.Logger) error {
	cat, err := catalog.Load(cfg.UAJSON)
	if err != nil {
		return fmt.Errorf("load user-agent catalog: %w", err)
	}
	log.Info("user-agent catalog loaded", "path", cfg.UAJSON, "engines", cat.Engines())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	probeMetrics, err := metrics.NewProbeMetrics(registry)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	log.Info("initializing Kafka components", "brokers", cfg.Kafka.Brokers)

	requestConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Requests, cfg.Agent.Name, log)
	defer requestConsumer.Close()

	resultsProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Results)
	defer resultsProducer.Close()

	logsProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Logs)
	defer logsProducer.Close()

	taskRepo := repository.NewKafkaTaskRepository(requestConsumer, log)
	resultRepo := repository.NewKafkaResultRepository(resultsProducer, logsProducer, cfg.Agent.Name, log)

	agentService := service.NewAgentService(
		taskRepo,
		resultRepo,
		cat,
		probeMetrics,
		service.Config{
			AgentID:      cfg.Agent.Name,
			PollInterval: cfg.GetPollInterval(),
			Defaults: service.ProbeDefaults{
				Timeout:     cfg.GetProbeTimeout(),
				Follow:      cfg.Probe.Follow,
				Concurrency: cfg.GetConcurrency(),
				Proxy:       cfg.Probe.Proxy,
			},
		},
		log,
	)

	if cfg.Env != envLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	healthController := apihttp.NewHealthController(agentService, cfg.Agent.Name, version)
	router := apihttp.NewRouter(
		healthController,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		log,
	)

	httpServer := &nethttp.Server{
		Addr:              ":" + cfg.Server.HealthPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		checkCtx, cancel := context.WithTimeout(gctx, 5*time.Second)
		defer cancel()
		if err := requestConsumer.CheckConnection(checkCtx); err != nil {
			log.Warn("kafka is not reachable yet", sl.Err(err))
		}

		log.Info("starting agent service", "requests_topic", requestConsumer.Topic())
		return agentService.Start(gctx)
	})

	g.Go(func() error {
		log.Info("starting health server", "port", cfg.Server.HealthPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down agent")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if cfg.Report.URL != "" {
		backendClient, err := backend.NewClient(cfg.Report.URL, cfg.Agent.Name, cfg.Report.Token)
		if err != nil {
			return fmt.Errorf("init report client: %w", err)
		}
		g.Go(func() error {
			runHeartbeat(gctx, backendClient, log, heartbeatInterval)
			return nil
		})
	}

	log.Info("application started and ready",
		"health_port", cfg.Server.HealthPort,
		"agent_id", cfg.Agent.Name,
	)

	return g.Wait()
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

// runHeartbeat pings the collector until ctx is done.
func runHeartbeat(ctx context.Context, client *backend.Client, log *slog.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	send := func() {
		hbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := client.Heartbeat(hbCtx); err != nil {
			log.Error("heartbeat failed", sl.Err(err))
			return
		}

		log.Debug("heartbeat sent")
	}

	send()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			send()
		case <-ctx.Done():
			log.Debug("heartbeat loop stopped")
			return
		}
	}
}
