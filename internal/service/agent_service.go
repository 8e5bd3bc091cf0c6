package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bogzak/search-engine-ua-checker/internal/checks"
	"github.com/bogzak/search-engine-ua-checker/internal/domain"
	"github.com/bogzak/search-engine-ua-checker/internal/lib/logger/sl"
	"github.com/bogzak/search-engine-ua-checker/internal/repository"
	"github.com/bogzak/search-engine-ua-checker/internal/validators"
)

// AgentMetrics records outcomes and whole runs. ObserveRun receives false for
// requests rejected before probing.
type AgentMetrics interface {
	Recorder
	ObserveRun(accepted bool)
}

// ProberFactory builds the prober for one request from its connection options.
type ProberFactory func(opts checks.Options) (Prober, error)

// ProbeDefaults apply to every request field left unset.
type ProbeDefaults struct {
	Timeout     time.Duration
	Follow      bool
	Concurrency int
	Proxy       string
}

type Config struct {
	AgentID      string
	PollInterval time.Duration
	Defaults     ProbeDefaults
	NewProber    ProberFactory
}

// AgentService consumes probe requests, runs them and publishes the results.
type AgentService struct {
	taskRepo     repository.TaskRepository
	resultRepo   repository.ResultRepository
	catalog      *domain.Catalog
	metrics      AgentMetrics
	log          *slog.Logger
	agentID      string
	pollInterval time.Duration
	defaults     ProbeDefaults
	newProber    ProberFactory

	running       atomic.Bool
	requestsDone  atomic.Int64
	requestsError atomic.Int64
	probesDone    atomic.Int64
}

func NewAgentService(
	taskRepo repository.TaskRepository,
	resultRepo repository.ResultRepository,
	catalog *domain.Catalog,
	metrics AgentMetrics,
	config Config,
	log *slog.Logger,
) *AgentService {
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.Defaults.Concurrency < 1 {
		config.Defaults.Concurrency = 1
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &AgentService{
		taskRepo:     taskRepo,
		resultRepo:   resultRepo,
		catalog:      catalog,
		metrics:      metrics,
		log:          log.With(slog.String("agent_id", config.AgentID)),
		agentID:      config.AgentID,
		pollInterval: config.PollInterval,
		defaults:     config.Defaults,
		newProber:    config.NewProber,
	}
	if s.newProber == nil {
		s.newProber = s.httpProber
	}
	return s
}

func (s *AgentService) httpProber(opts checks.Options) (Prober, error) {
	client, err := checks.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return checks.NewHTTPChecker(client, s.log), nil
}

// Start polls for requests until ctx is cancelled.
func (s *AgentService) Start(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	s.log.Info("agent service started",
		"poll_interval", s.pollInterval.String(),
		"engines", s.catalog.Engines(),
	)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if err := s.processRequests(ctx); err != nil {
			s.log.Error("failed to process requests", sl.Err(err))
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.log.Info("agent service stopped")
			return nil
		}
	}
}

func (s *AgentService) processRequests(ctx context.Context) error {
	s.log.Debug("fetching probe requests")

	requests, err := s.taskRepo.FetchRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch requests: %w", err)
	}

	if len(requests) == 0 {
		return nil
	}

	s.log.Info("found probe requests", "count", len(requests))

	var processedCount, skippedCount int

	for _, req := range requests {
		processed, err := s.handleRequest(ctx, req)
		if err != nil {
			s.log.Error("request processing failed",
				"request_id", req.ID,
				sl.Err(err),
			)
		}

		if processed {
			if err := s.taskRepo.AckRequest(ctx, req.ID); err != nil {
				s.log.Error("failed to ack request",
					"request_id", req.ID,
					sl.Err(err),
				)
			}
			processedCount++
			continue
		}

		s.taskRepo.NackRequest(req.ID)
		skippedCount++
	}

	s.log.Info("requests processing summary",
		"total", len(requests),
		"processed", processedCount,
		"skipped", skippedCount,
	)

	return nil
}

// handleRequest reports whether the request is finished with and may be
// acknowledged. Rejected requests are finished: a failure log is published
// and they are never retried.
func (s *AgentService) handleRequest(ctx context.Context, req domain.ProbeRequest) (bool, error) {
	s.sendLog(ctx, req.ID, domain.LogLevelInfo, fmt.Sprintf("Received probe request for %s", req.URL))

	params, prober, err := s.prepare(req)
	if err != nil {
		s.requestsError.Add(1)
		s.observeRun(false)
		s.sendLog(ctx, req.ID, domain.LogLevelError, fmt.Sprintf("Rejected probe request: %v", err))
		return true, err
	}

	var recorder Recorder
	if s.metrics != nil {
		recorder = s.metrics
	}

	rs, err := NewProbeService(prober, recorder, s.log).Run(ctx, params)
	if err != nil {
		s.requestsError.Add(1)
		s.observeRun(false)
		s.sendLog(ctx, req.ID, domain.LogLevelError, fmt.Sprintf("Probe run failed: %v", err))
		return true, err
	}

	if err := s.resultRepo.SendResults(ctx, req.ID, rs); err != nil {
		s.requestsError.Add(1)
		return false, fmt.Errorf("failed to send results: %w", err)
	}

	s.requestsDone.Add(1)
	s.probesDone.Add(int64(rs.Len()))
	s.observeRun(true)

	for _, engine := range params.Engines {
		if len(s.catalog.Lookup(engine)) == 0 {
			s.sendLog(ctx, req.ID, domain.LogLevelWarn, fmt.Sprintf("No User-Agent found for engine %s", engine))
		}
	}

	s.sendLog(ctx, req.ID, domain.LogLevelInfo,
		fmt.Sprintf("Probe run %s completed: %d outcomes, %d failed", rs.RunID, rs.Len(), rs.Failures()))

	return true, nil
}

// prepare validates a request and resolves its run parameters against the
// agent defaults.
func (s *AgentService) prepare(req domain.ProbeRequest) (RunParams, Prober, error) {
	target, err := validators.NormalizeURL(req.URL)
	if err != nil {
		return RunParams{}, nil, err
	}

	engines, err := validators.SelectEngines(req.Engines, s.catalog.Engines())
	if err != nil {
		return RunParams{}, nil, err
	}

	follow := s.defaults.Follow
	if req.Follow != nil {
		follow = *req.Follow
	}

	timeout := s.defaults.Timeout
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout * float64(time.Second))
	}

	concurrency := s.defaults.Concurrency
	if req.Concurrency > 0 {
		concurrency = req.Concurrency
	}

	proxy := s.defaults.Proxy
	if req.Proxy != "" {
		proxy = req.Proxy
	}

	prober, err := s.newProber(checks.Options{Timeout: timeout, Proxy: proxy})
	if err != nil {
		return RunParams{}, nil, fmt.Errorf("build prober: %w", err)
	}

	return RunParams{
		URL:         target,
		Catalog:     s.catalog,
		Engines:     engines,
		Follow:      follow,
		Concurrency: concurrency,
	}, prober, nil
}

func (s *AgentService) observeRun(accepted bool) {
	if s.metrics != nil {
		s.metrics.ObserveRun(accepted)
	}
}

func (s *AgentService) sendLog(ctx context.Context, requestID string, level domain.LogLevel, message string) {
	entry := domain.LogEntry{
		RequestID: requestID,
		AgentID:   s.agentID,
		Level:     level,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err := s.resultRepo.SendLog(ctx, entry); err != nil {
		s.log.Warn("failed to send log", "request_id", requestID, sl.Err(err))
	}
}

var ErrNotRunning = errors.New("service is not running")

func (s *AgentService) HealthCheck(ctx context.Context) error {
	if !s.running.Load() {
		return ErrNotRunning
	}
	if s.catalog.Len() == 0 {
		return errors.New("identity catalog is empty")
	}
	return nil
}

func (s *AgentService) GetStatus() domain.AgentStatus {
	return domain.AgentStatus{
		AgentID:       s.agentID,
		Running:       s.running.Load(),
		PollInterval:  s.pollInterval.String(),
		Engines:       len(s.catalog.Engines()),
		RequestsDone:  s.requestsDone.Load(),
		RequestsError: s.requestsError.Load(),
		ProbesDone:    s.probesDone.Load(),
	}
}
