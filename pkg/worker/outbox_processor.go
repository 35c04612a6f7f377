package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/repository"
	"github.com/netraseva/intake-api/pkg/logger"
	"github.com/netraseva/intake-api/pkg/messaging"
	"github.com/netraseva/intake-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	RetryDelay   time.Duration
	MaxRetries   int
}

// OutboxProcessor drains pending outbox rows and publishes them to the
// broker. Rows are claimed with FOR UPDATE SKIP LOCKED, so several
// processors can run against the same database without double delivery.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Minute
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  log,
		metrics: m,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor",
		"batch_size", p.config.BatchSize,
		"poll_interval", p.config.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error(err, "outbox batch failed")
			}
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	var timer *prometheus.Timer
	if p.metrics != nil {
		timer = prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
		defer timer.ObserveDuration()
	}

	events, err := p.repo.GetPendingWithLock(ctx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending events: %w", err)
	}

	for _, evt := range events {
		if err := p.processEvent(ctx, evt); err != nil {
			p.logger.Error(err, "failed to process event",
				"event_id", evt.ID.String(),
				"event_type", evt.EventType)
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, evt *model.OutboxEvent) error {
	err := p.broker.Publish(ctx, evt.EventType, evt.Payload)
	if err == nil {
		if p.metrics != nil {
			p.metrics.OutboxEventsProcessed.Inc()
		}
		return p.repo.MarkProcessed(ctx, evt.ID)
	}

	if p.metrics != nil {
		p.metrics.OutboxEventsFailed.Inc()
	}

	// A row past its retry budget goes to the dead letter table so a
	// stuck broker cannot grow the pending set without bound.
	if evt.RetryCount+1 >= p.config.MaxRetries {
		p.logger.Warn("moving event to dead letter",
			"event_id", evt.ID.String(),
			"event_type", evt.EventType,
			"retries", evt.RetryCount)
		evt.ErrorMessage = strPtr(err.Error())
		return p.repo.MoveToDeadLetter(ctx, evt)
	}

	if p.metrics != nil {
		p.metrics.OutboxRetries.WithLabelValues(evt.EventType).Inc()
	}
	retryAt := time.Now().Add(p.config.RetryDelay)
	return p.repo.MarkFailed(ctx, evt.ID, err.Error(), &retryAt)
}

// Cleanup deletes processed rows older than the retention window.
func (p *OutboxProcessor) Cleanup(ctx context.Context, retention time.Duration) error {
	deleted, err := p.repo.DeleteProcessedBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return fmt.Errorf("failed to clean processed events: %w", err)
	}
	if deleted > 0 {
		p.logger.Info("cleaned processed outbox events", "deleted", deleted)
	}
	return nil
}

func strPtr(s string) *string { return &s }
