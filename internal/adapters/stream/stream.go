// Package stream provides the partitioned event stream between the
// ingestion producer and the processor.
//
// Records with the same partition key always land on the same partition and
// are consumed in append order. Ordering across partitions is not defined.
package stream

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/kioko/matchpulse/pkg/metrics"
)

// Default stream configuration constants.
const (
	defaultPartitions = 4
	defaultBufferSize = 10000
	defaultTopicBase  = "events"

	metadataPartitionKey = "partition_key"
	metadataEventID      = "event_id"
)

// Record is one opaque payload on the stream. The partition key decides
// placement; the event ID travels as metadata for tracing.
type Record struct {
	PartitionKey string
	EventID      string
	Data         []byte
}

// Stream fans records out over a fixed set of ordered partitions backed by
// an in-process pub/sub.
type Stream struct {
	partitions int
	bufferSize int
	topicBase  string
	manager    *metrics.Manager

	pubsub *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
}

// New creates a stream with the configured partition count.
func New(opts ...Option) *Stream {
	s := &Stream{
		partitions: defaultPartitions,
		bufferSize: defaultBufferSize,
		topicBase:  defaultTopicBase,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.pubsub = gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: int64(s.bufferSize)},
		watermillLogger{},
	)

	return s
}

// Partitions returns the configured partition count.
func (s *Stream) Partitions() int {
	return s.partitions
}

// Partition maps a key to its partition index. The mapping is a pure
// function of the key and the partition count.
func (s *Stream) Partition(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(s.partitions))
}

// Append publishes one record to the partition owned by its key and returns
// the partition index.
func (s *Stream) Append(ctx context.Context, rec Record) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p := s.Partition(rec.PartitionKey)

	msg := message.NewMessage(watermill.NewUUID(), rec.Data)
	msg.Metadata.Set(metadataPartitionKey, rec.PartitionKey)
	msg.Metadata.Set(metadataEventID, rec.EventID)
	msg.SetContext(ctx)

	if err := s.pubsub.Publish(s.topic(p), msg); err != nil {
		return p, err
	}

	if s.manager != nil {
		s.manager.RecordStreamPublished(strconv.Itoa(p), 1)
	}
	return p, nil
}

// Records returns a channel of records for one partition. Records are
// acknowledged as they are handed to the consumer; the channel closes when
// ctx is canceled or the stream is closed.
func (s *Stream) Records(ctx context.Context, partition int) (<-chan Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	if partition < 0 || partition >= s.partitions {
		return nil, ErrUnknownPartition
	}

	msgs, err := s.pubsub.Subscribe(ctx, s.topic(partition))
	if err != nil {
		return nil, err
	}

	out := make(chan Record)
	go func() {
		defer close(out)
		for msg := range msgs {
			rec := Record{
				PartitionKey: msg.Metadata.Get(metadataPartitionKey),
				EventID:      msg.Metadata.Get(metadataEventID),
				Data:         msg.Payload,
			}
			select {
			case out <- rec:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close shuts down the stream. Append and Records fail afterwards.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.pubsub.Close()
}

func (s *Stream) topic(partition int) string {
	return s.topicBase + "." + strconv.Itoa(partition)
}
