package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/bogzak/search-engine-ua-checker/internal/domain"
)

var ErrInvalidConcurrency = errors.New("concurrency must be at least 1")

// Prober executes a single probe task. Implementations must not fail: every
// problem is reported through the returned outcome.
type Prober interface {
	Check(ctx context.Context, target string, task domain.ProbeTask, follow bool) domain.ProbeOutcome
}

// Recorder observes finished outcomes. It is called from worker goroutines.
type Recorder interface {
	ObserveOutcome(outcome domain.ProbeOutcome)
}

type RunParams struct {
	URL         string
	Catalog     *domain.Catalog
	Engines     []string
	Follow      bool
	Concurrency int
}

// ProbeService expands engines into tasks and runs them on a bounded pool.
type ProbeService struct {
	prober   Prober
	recorder Recorder
	log      *slog.Logger
}

func NewProbeService(prober Prober, recorder Recorder, log *slog.Logger) *ProbeService {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &ProbeService{
		prober:   prober,
		recorder: recorder,
		log:      log,
	}
}

// ExpandTasks returns one task per identity, in engine order and then catalog
// order. Engines without identities contribute nothing.
func ExpandTasks(catalog *domain.Catalog, engines []string) []domain.ProbeTask {
	var tasks []domain.ProbeTask
	for _, engine := range engines {
		for _, id := range catalog.Lookup(engine) {
			tasks = append(tasks, domain.TaskFromIdentity(id))
		}
	}
	return tasks
}

// Run probes params.URL with every selected identity and returns once all of
// them produced an outcome. With a concurrency of 1 outcomes follow task order;
// otherwise they are in completion order.
func (s *ProbeService) Run(ctx context.Context, params RunParams) (domain.ResultSet, error) {
	if params.Concurrency < 1 {
		return domain.ResultSet{}, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, params.Concurrency)
	}

	tasks := ExpandTasks(params.Catalog, params.Engines)

	rs := domain.ResultSet{
		RunID:     uuid.NewString(),
		URL:       params.URL,
		StartedAt: time.Now().UTC(),
	}

	s.log.Info("probe run started",
		"run_id", rs.RunID,
		"url", params.URL,
		"tasks", len(tasks),
		"concurrency", params.Concurrency,
		"follow", params.Follow,
	)

	if params.Concurrency == 1 {
		rs.Outcomes = s.runSequential(ctx, params, tasks)
	} else {
		rs.Outcomes = s.runParallel(ctx, params, tasks)
	}

	rs.FinishedAt = time.Now().UTC()

	s.log.Info("probe run finished",
		"run_id", rs.RunID,
		"outcomes", rs.Len(),
		"failures", rs.Failures(),
		"elapsed", rs.FinishedAt.Sub(rs.StartedAt).String(),
	)

	return rs, nil
}

func (s *ProbeService) runSequential(ctx context.Context, params RunParams, tasks []domain.ProbeTask) []domain.ProbeOutcome {
	outcomes := make([]domain.ProbeOutcome, 0, len(tasks))
	for _, task := range tasks {
		outcomes = append(outcomes, s.execute(ctx, params, task))
	}
	return outcomes
}

func (s *ProbeService) runParallel(ctx context.Context, params RunParams, tasks []domain.ProbeTask) []domain.ProbeOutcome {
	results := make(chan domain.ProbeOutcome, len(tasks))

	workers := pool.New().WithMaxGoroutines(params.Concurrency)
	for _, task := range tasks {
		task := task
		workers.Go(func() {
			results <- s.execute(ctx, params, task)
		})
	}
	workers.Wait()
	close(results)

	outcomes := make([]domain.ProbeOutcome, 0, len(tasks))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// execute runs one task and turns a panicking prober into a failed outcome so
// that sibling tasks are never affected.
func (s *ProbeService) execute(ctx context.Context, params RunParams, task domain.ProbeTask) domain.ProbeOutcome {
	var (
		outcome domain.ProbeOutcome
		catcher panics.Catcher
	)

	catcher.Try(func() {
		outcome = s.prober.Check(ctx, params.URL, task, params.Follow)
	})

	if recovered := catcher.Recovered(); recovered != nil {
		s.log.Error("prober panicked",
			"engine", task.Engine,
			"ua_name", task.Label,
			"panic", recovered.Value,
		)
		outcome = domain.NewOutcome(task)
		msg := fmt.Sprintf("internal error: %v", recovered.Value)
		outcome.Error = &msg
	}

	if s.recorder != nil {
		s.recorder.ObserveOutcome(outcome)
	}

	return outcome
}
