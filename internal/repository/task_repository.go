package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/bogzak/search-engine-ua-checker/internal/domain"
	repokafka "github.com/bogzak/search-engine-ua-checker/internal/repository/kafka"
)

const (
	defaultBatchSize   = 100
	defaultFetchWindow = 5 * time.Second
)

type TaskRepository interface {
	FetchRequests(ctx context.Context) ([]domain.ProbeRequest, error)
	AckRequest(ctx context.Context, requestID string) error
	NackRequest(requestID string)
}

// EventReader is the subset of the Kafka consumer the repository needs.
type EventReader interface {
	ReadEvent(ctx context.Context, v any) (kafkago.Message, error)
	CommitMessage(ctx context.Context, msg kafkago.Message) error
}

type KafkaTaskRepository struct {
	consumer    EventReader
	log         *slog.Logger
	batchSize   int
	fetchWindow time.Duration

	mu       sync.Mutex
	messages map[string]kafkago.Message
}

func NewKafkaTaskRepository(consumer EventReader, log *slog.Logger) *KafkaTaskRepository {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &KafkaTaskRepository{
		consumer:    consumer,
		log:         log,
		batchSize:   defaultBatchSize,
		fetchWindow: defaultFetchWindow,
		messages:    make(map[string]kafkago.Message),
	}
}

// FetchRequests reads up to a batch of requests, waiting at most the fetch
// window. Messages that cannot be decoded are committed and skipped. A request
// without an id gets the message key or a fresh uuid, and so does one whose id
// is already pending, so every request acks its own message.
func (r *KafkaTaskRepository) FetchRequests(ctx context.Context) ([]domain.ProbeRequest, error) {
	var requests []domain.ProbeRequest

	timeoutCtx, cancel := context.WithTimeout(ctx, r.fetchWindow)
	defer cancel()

	for len(requests) < r.batchSize {
		var req domain.ProbeRequest
		msg, err := r.consumer.ReadEvent(timeoutCtx, &req)
		if err != nil {
			if errors.Is(err, repokafka.ErrDecode) {
				r.log.Warn("skipping undecodable probe request",
					"offset", msg.Offset,
					"error", err.Error(),
				)
				if commitErr := r.consumer.CommitMessage(ctx, msg); commitErr != nil {
					return requests, fmt.Errorf("failed to commit undecodable message: %w", commitErr)
				}
				continue
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}

			return requests, fmt.Errorf("failed to read event: %w", err)
		}

		if req.ID == "" {
			if len(msg.Key) > 0 {
				req.ID = string(msg.Key)
			} else {
				req.ID = uuid.NewString()
			}
		}

		r.mu.Lock()
		if _, dup := r.messages[req.ID]; dup {
			original := req.ID
			req.ID = uuid.NewString()
			r.log.Warn("duplicate probe request id, assigned a new one",
				"request_id", original,
				"new_request_id", req.ID,
				"offset", msg.Offset,
			)
		}
		r.messages[req.ID] = msg
		r.mu.Unlock()

		requests = append(requests, req)
	}

	return requests, nil
}

// AckRequest commits the message a request was read from, retrying a few
// times with a growing pause.
func (r *KafkaTaskRepository) AckRequest(ctx context.Context, requestID string) error {
	r.mu.Lock()
	msg, ok := r.messages[requestID]
	r.mu.Unlock()

	if !ok {
		return nil
	}

	const maxRetries = 3

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		timeout := 5 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ctx.Err()
			}
			if remaining < timeout {
				timeout = remaining
			}
		}

		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		err := r.consumer.CommitMessage(commitCtx, msg)
		cancel()

		if err == nil {
			r.mu.Lock()
			delete(r.messages, requestID)
			r.mu.Unlock()
			return nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}

		time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
	}

	return fmt.Errorf("failed to commit message: %w", lastErr)
}

// NackRequest forgets a request without committing it.
func (r *KafkaTaskRepository) NackRequest(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, requestID)
}
