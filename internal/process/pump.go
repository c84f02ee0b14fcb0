package process

import (
	"context"
	"sync"
	"time"

	"github.com/kioko/matchpulse/internal/adapters/stream"
	"github.com/kioko/matchpulse/pkg/logger"
)

// Default pump configuration constants.
const (
	defaultBatchSize = 100
	defaultLinger    = 200 * time.Millisecond
)

// Source is the slice of the stream the pump needs.
type Source interface {
	Records(ctx context.Context, partition int) (<-chan stream.Record, error)
	Partitions() int
}

// Pump assembles stream records into bounded batches and drives them
// through the processor, one goroutine per partition so per-match order is
// preserved.
type Pump struct {
	source    Source
	processor *Processor
	batchSize int
	linger    time.Duration
	log       logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPump creates a pump feeding the processor from the stream.
func NewPump(source Source, processor *Processor, opts ...PumpOption) *Pump {
	p := &Pump{
		source:    source,
		processor: processor,
		batchSize: defaultBatchSize,
		linger:    defaultLinger,
		log:       logger.Named("pump"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start subscribes to every partition and begins processing. It returns
// once all partition consumers are running.
func (p *Pump) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.source.Partitions(); i++ {
		records, err := p.source.Records(ctx, i)
		if err != nil {
			cancel()
			return err
		}

		p.wg.Add(1)
		go p.consume(ctx, i, records)
	}

	return nil
}

// Stop halts consumption. Buffered records are flushed before the consumers
// exit.
func (p *Pump) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// consume batches one partition's records by size and linger.
func (p *Pump) consume(ctx context.Context, partition int, records <-chan stream.Record) {
	defer p.wg.Done()

	batch := make([]stream.Record, 0, p.batchSize)
	ticker := time.NewTicker(p.linger)
	defer ticker.Stop()

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		res := p.processor.ProcessBatch(ctx, batch)
		if res.Failed > 0 {
			p.log.Warn(ctx, "batch had failures",
				logger.Int("partition", partition),
				logger.Int("processed", res.Processed),
				logger.Int("failed", res.Failed))
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-records:
			if !ok {
				flush(context.WithoutCancel(ctx))
				return
			}
			batch = append(batch, rec)
			if len(batch) >= p.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			// The tail batch still has to land; the canceled pump context
			// must not fail the final store write.
			flush(context.WithoutCancel(ctx))
			return
		}
	}
}
