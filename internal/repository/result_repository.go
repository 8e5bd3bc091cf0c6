package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bogzak/search-engine-ua-checker/internal/domain"
)

type ResultRepository interface {
	SendResults(ctx context.Context, requestID string, rs domain.ResultSet) error
	SendLog(ctx context.Context, logEntry domain.LogEntry) error
}

// EventPublisher is the subset of the Kafka producer the repository needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
	Topic() string
}

// resultsMessage is the payload published on the results topic.
type resultsMessage struct {
	RequestID string `json:"request_id"`
	AgentID   string `json:"agent_id"`
	domain.ResultSet
}

type KafkaResultRepository struct {
	resultsProducer EventPublisher
	logsProducer    EventPublisher
	agentID         string
	log             *slog.Logger
}

func NewKafkaResultRepository(resultsProducer, logsProducer EventPublisher, agentID string, log *slog.Logger) *KafkaResultRepository {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &KafkaResultRepository{
		resultsProducer: resultsProducer,
		logsProducer:    logsProducer,
		agentID:         agentID,
		log:             log,
	}
}

func (r *KafkaResultRepository) SendResults(ctx context.Context, requestID string, rs domain.ResultSet) error {
	msg := resultsMessage{RequestID: requestID, AgentID: r.agentID, ResultSet: rs}
	if err := r.resultsProducer.PublishEvent(ctx, requestID, msg); err != nil {
		return fmt.Errorf("failed to publish results: %w", err)
	}

	r.log.Info("sent probe results",
		"request_id", requestID,
		"run_id", rs.RunID,
		"outcomes", rs.Len(),
		"topic", r.resultsProducer.Topic(),
	)
	return nil
}

func (r *KafkaResultRepository) SendLog(ctx context.Context, logEntry domain.LogEntry) error {
	key := fmt.Sprintf("%s-%d", logEntry.RequestID, logEntry.Timestamp.UnixNano())
	if err := r.logsProducer.PublishEvent(ctx, key, logEntry); err != nil {
		return fmt.Errorf("failed to publish log: %w", err)
	}

	r.log.Debug("sent agent log",
		"request_id", logEntry.RequestID,
		"topic", r.logsProducer.Topic(),
	)
	return nil
}
