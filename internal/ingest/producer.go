// Package ingest provides the producer that validates incoming events and
// appends them to the partitioned stream.
//
// The partition key is always the match ID, so every event of a match lands
// on the same partition in submission order. Event IDs are assigned by the
// data source and never rewritten here; a retried append reuses the same ID
// so downstream keyed writes stay idempotent.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/kioko/matchpulse/internal/adapters/stream"
	"github.com/kioko/matchpulse/internal/domain/dedupe"
	"github.com/kioko/matchpulse/internal/domain/event"
	"github.com/kioko/matchpulse/pkg/logger"
	"github.com/kioko/matchpulse/pkg/metrics"
	"github.com/kioko/matchpulse/pkg/retry"
)

// Default producer configuration constants.
const (
	defaultChunkSize = 500
)

// Appender is the slice of the stream the producer needs.
type Appender interface {
	Append(ctx context.Context, rec stream.Record) (int, error)
}

// Failure names one event that could not be appended and why.
type Failure struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason"`
}

// BatchResult reports the outcome of a batch submission. Every event is
// accounted for exactly once: Succeeded + Duplicates + Failed == Submitted.
type BatchResult struct {
	BatchID    string        `json:"batch_id"`
	Submitted  int           `json:"submitted"`
	Succeeded  int           `json:"succeeded"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Failures   []Failure     `json:"failures,omitempty"`
	Latency    time.Duration `json:"latency"`
}

// Producer validates, deduplicates and appends events to the stream.
type Producer struct {
	stream    Appender
	deduper   dedupe.Deduper
	policy    *retry.Policy
	collector *metrics.Collector
	manager   *metrics.Manager
	chunkSize int
	log       logger.Logger
}

// New creates a producer writing to the given stream.
func New(appender Appender, opts ...Option) *Producer {
	p := &Producer{
		stream:    appender,
		policy:    retry.New(),
		chunkSize: defaultChunkSize,
		log:       logger.Named("ingest"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Submit validates and appends a single event. Duplicate event IDs return
// ErrDuplicate; validation failures return the *event.ValidationError.
func (p *Producer) Submit(ctx context.Context, e event.Event) error {
	start := time.Now()
	err := p.submitOne(ctx, e, start)
	if p.collector != nil {
		p.collector.RecordLatency(metrics.StageIngestion, time.Since(start))
	}
	return err
}

// SubmitBatch appends every event of a batch, chunked so no single stream
// call carries more than the chunk size. One bad event never fails the
// batch; it is reported in the result and the rest proceed.
func (p *Producer) SubmitBatch(ctx context.Context, batch *event.Batch) BatchResult {
	start := time.Now()
	res := BatchResult{
		BatchID:   batch.BatchID,
		Submitted: batch.TotalEvents(),
	}

	events := batch.Events()
	for from := 0; from < len(events); from += p.chunkSize {
		to := from + p.chunkSize
		if to > len(events) {
			to = len(events)
		}
		for _, e := range events[from:to] {
			switch err := p.submitOne(ctx, e, start); {
			case err == nil:
				res.Succeeded++
			case errors.Is(err, ErrDuplicate):
				res.Duplicates++
			default:
				res.Failed++
				res.Failures = append(res.Failures, Failure{
					EventID: e.Head().EventID,
					Reason:  err.Error(),
				})
			}
		}
	}

	res.Latency = time.Since(start)

	if p.collector != nil {
		p.collector.RecordLatency(metrics.StageIngestion, res.Latency)
	}
	if p.manager != nil {
		p.manager.RecordBatchSubmitted()
	}

	p.log.Info(ctx, "batch submitted",
		logger.String("batch_id", res.BatchID),
		logger.String("match_id", batch.MatchID),
		logger.Int("submitted", res.Submitted),
		logger.Int("succeeded", res.Succeeded),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("failed", res.Failed),
		logger.Duration("latency", res.Latency))

	return res
}

func (p *Producer) submitOne(ctx context.Context, e event.Event, ingestedAt time.Time) error {
	if err := e.Validate(); err != nil {
		if p.manager != nil {
			p.manager.RecordEventsRejected(1)
		}
		return err
	}

	id := e.Head().EventID
	if p.deduper != nil && p.deduper.SeenAndRecord(ctx, id) {
		if p.manager != nil {
			p.manager.RecordEventDuplicate()
		}
		return ErrDuplicate
	}

	data, err := event.Encode(stamped(e, ingestedAt.UTC()))
	if err != nil {
		p.unrecord(ctx, id)
		return err
	}

	attempts := 0
	err = p.policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		_, appendErr := p.stream.Append(ctx, stream.Record{
			PartitionKey: e.Head().MatchID,
			EventID:      id,
			Data:         data,
		})
		return appendErr
	})
	if p.manager != nil {
		for i := 1; i < attempts; i++ {
			p.manager.RecordIngestRetry()
		}
	}
	if err != nil {
		p.unrecord(ctx, id)
		p.log.Warn(ctx, "append failed",
			logger.String("event_id", id),
			logger.Int("attempts", attempts),
			logger.Error(err))
		return err
	}

	if p.collector != nil {
		p.collector.AddStreamPuts(1)
	}
	if p.manager != nil {
		p.manager.RecordEventsIngested(1)
	}
	return nil
}

// unrecord releases the dedupe claim so the event can be resubmitted.
func (p *Producer) unrecord(ctx context.Context, id string) {
	if p.deduper != nil {
		p.deduper.Unrecord(ctx, id)
	}
}

// stamped returns a copy of the event with its ingestion time set. The
// caller's event is never mutated.
func stamped(e event.Event, t time.Time) event.Event {
	switch v := e.(type) {
	case *event.MatchEvent:
		c := *v
		c.Header = c.Header.WithIngestionTime(t)
		return &c
	case *event.TrackingEvent:
		c := *v
		c.Header = c.Header.WithIngestionTime(t)
		return &c
	case *event.PhysiologicalEvent:
		c := *v
		c.Header = c.Header.WithIngestionTime(t)
		return &c
	case *event.GenericEvent:
		c := *v
		c.Header = c.Header.WithIngestionTime(t)
		return &c
	default:
		return e
	}
}
