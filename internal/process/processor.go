// Package process consumes raw stream records, enriches them with derived
// analytics and drives the results into storage and delivery.
//
// One bad record never takes down its batch: failures are isolated, counted
// and reported while the rest of the batch proceeds.
package process

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"github.com/kioko/matchpulse/internal/adapters/hotstore"
	"github.com/kioko/matchpulse/internal/adapters/stream"
	"github.com/kioko/matchpulse/internal/delivery"
	"github.com/kioko/matchpulse/internal/domain/analytics"
	"github.com/kioko/matchpulse/internal/domain/event"
	"github.com/kioko/matchpulse/pkg/logger"
	"github.com/kioko/matchpulse/pkg/metrics"
)

// Derived fields attached to enriched match events.
const (
	metaExpectedGoals = "expected_goals"
	metaPassSuccess   = "pass_success_probability"
)

// Store is the slice of the hot tier the processor needs.
type Store interface {
	PutBatch(ctx context.Context, recs []hotstore.Record) (int, error)
}

// Broadcaster is the slice of the delivery registry the processor needs.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg delivery.Message) delivery.Result
}

// Failure names one record that could not be processed and why.
type Failure struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason"`
}

// Result reports a processed batch. Processed + Failed equals the record
// count handed in.
type Result struct {
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Failures  []Failure     `json:"failures,omitempty"`
	Latency   time.Duration `json:"latency"`
}

// Processor decodes, enriches, stores and broadcasts stream records.
type Processor struct {
	store     Store
	registry  Broadcaster
	collector *metrics.Collector
	manager   *metrics.Manager
	log       logger.Logger
}

// NewProcessor creates a processor writing to the given store and registry.
// Either dependency may be nil; the corresponding step is skipped.
func NewProcessor(store Store, registry Broadcaster, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:    store,
		registry: registry,
		log:      logger.Named("process"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProcessBatch runs one batch of raw records through decode, enrichment,
// storage and broadcast. Failures are reported per record; the batch itself
// always completes.
func (p *Processor) ProcessBatch(ctx context.Context, records []stream.Record) Result {
	start := time.Now()
	res := Result{}

	type enriched struct {
		ev   event.Event
		data []byte
	}
	ready := make([]enriched, 0, len(records))

	for _, rec := range records {
		ev, err := event.Decode(rec.Data)
		if err != nil {
			res.Failed++
			res.Failures = append(res.Failures, Failure{EventID: rec.EventID, Reason: err.Error()})
			p.log.Warn(ctx, "record dropped",
				logger.String("event_id", rec.EventID),
				logger.Error(err))
			continue
		}

		ev = Enrich(ev)

		data, err := event.Encode(ev)
		if err != nil {
			res.Failed++
			res.Failures = append(res.Failures, Failure{EventID: rec.EventID, Reason: err.Error()})
			continue
		}

		ready = append(ready, enriched{ev: ev, data: data})
	}

	if p.store != nil && len(ready) > 0 {
		recs := make([]hotstore.Record, len(ready))
		for i, e := range ready {
			recs[i] = hotstore.Record{
				Kind:    hotstore.KindEvent,
				MatchID: e.ev.Head().MatchID,
				ID:      e.ev.Head().EventID,
				Data:    e.data,
			}
		}
		if written, err := p.store.PutBatch(ctx, recs); err != nil {
			// Records past the failed chunk were not written; report them
			// and keep the written prefix as processed.
			for _, e := range ready[written:] {
				res.Failed++
				res.Failures = append(res.Failures, Failure{
					EventID: e.ev.Head().EventID,
					Reason:  err.Error(),
				})
			}
			ready = ready[:written]
			p.log.Error(ctx, "hot store batch failed", logger.Error(err))
		}
	}

	now := time.Now()
	for _, e := range ready {
		res.Processed++

		if p.registry != nil {
			p.registry.Broadcast(ctx, delivery.Message{
				Type:      "event",
				MatchID:   e.ev.Head().MatchID,
				Timestamp: now.UTC(),
				Data:      json.RawMessage(e.data),
			})
		}

		if p.collector != nil {
			if t := e.ev.Head().IngestionTime; t != nil {
				p.collector.RecordLatency(metrics.StageEndToEnd, now.Sub(*t))
			}
		}
	}

	res.Latency = time.Since(start)

	if p.collector != nil {
		p.collector.RecordLatency(metrics.StageProcessing, res.Latency)
		p.collector.AddEvents(res.Processed)
		p.collector.AddInvocation(res.Latency.Seconds())
	}
	if p.manager != nil {
		p.manager.RecordEventsProcessed(res.Processed)
		p.manager.RecordEventsFailed(res.Failed)
	}

	return res
}

// Enrich returns the event with its derived analytics attached. Match
// events gain expected goals on shots and a success probability on passes;
// the other variants pass through untouched. The input is never mutated.
func Enrich(ev event.Event) event.Event {
	me, ok := ev.(*event.MatchEvent)
	if !ok {
		return ev
	}

	switch me.Type {
	case event.TypeShot, event.TypeGoal, event.TypePenalty:
		return annotated(me, metaExpectedGoals, analytics.ShotEventXG(me))
	case event.TypePass:
		return annotated(me, metaPassSuccess, analytics.PassSuccess(me.Position, me.EndPosition))
	default:
		return ev
	}
}

// annotated copies the event with one extra metadata entry.
func annotated(me *event.MatchEvent, key string, value float64) *event.MatchEvent {
	c := *me
	c.Metadata = make(map[string]any, len(me.Metadata)+1)
	for k, v := range me.Metadata {
		c.Metadata[k] = v
	}
	c.Metadata[key] = value
	return &c
}
