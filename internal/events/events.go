// Package events is the observability stream of the worker API. Handlers
// record one Event per request outcome through an injected Sink; sinks only
// observe and never change the response.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Action string

const (
	ActionList          Action = "worker_list"
	ActionCreate        Action = "worker_create"
	ActionRetrieve      Action = "worker_retrieve"
	ActionUpdate        Action = "worker_update"
	ActionPartialUpdate Action = "worker_partial_update"
	ActionDelete        Action = "worker_delete"
)

type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeInvalid  Outcome = "validation_failed"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "error"
)

// Event describes the outcome of a single request.
type Event struct {
	Action    Action    `json:"action"`
	Outcome   Outcome   `json:"outcome"`
	WorkerID  int64     `json:"worker_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Time      time.Time `json:"time"`
}

// Sink receives events. Implementations must be safe for concurrent use
// and must not block the caller for long.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// LogSink writes every event to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("worker_events")}
}

func (s *LogSink) Record(_ context.Context, event Event) {
	fields := []zap.Field{
		zap.String("action", string(event.Action)),
		zap.String("outcome", string(event.Outcome)),
	}
	if event.WorkerID != 0 {
		fields = append(fields, zap.Int64("worker_id", event.WorkerID))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if event.Detail != "" {
		fields = append(fields, zap.String("detail", event.Detail))
	}

	switch event.Outcome {
	case OutcomeFailed:
		s.logger.Error("worker request failed", fields...)
	case OutcomeInvalid, OutcomeNotFound:
		s.logger.Warn("worker request rejected", fields...)
	default:
		s.logger.Info("worker request handled", fields...)
	}
}

// Multi fans each event out to every sink in order.
type Multi []Sink

func (m Multi) Record(ctx context.Context, event Event) {
	for _, s := range m {
		s.Record(ctx, event)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(context.Context, Event) {}
