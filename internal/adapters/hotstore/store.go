// Package hotstore is the TTL-bound key-value store serving live queries.
//
// Records are keyed kind:match:id so a match's records sit contiguously and
// are answered by a single prefix scan. Every record carries a TTL by kind;
// expiry is the store's own job and nothing downstream ever deletes rows.
package hotstore

import (
	"context"
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/kioko/matchpulse/pkg/logger"
	"github.com/kioko/matchpulse/pkg/metrics"
)

// Record kinds and their retention.
const (
	KindEvent  Kind = "event"  // raw enriched events, 30 days
	KindMetric Kind = "metric" // derived player metrics, 90 days
	KindStat   Kind = "stat"   // aggregated match stats, 365 days
)

// Default retention per kind.
const (
	defaultEventTTL  = 30 * 24 * time.Hour
	defaultMetricTTL = 90 * 24 * time.Hour
	defaultStatTTL   = 365 * 24 * time.Hour

	// Writes are flushed in chunks of this size.
	defaultChunkSize = 25
)

// Kind namespaces records and selects their TTL.
type Kind string

// Record is one keyed payload bound for the store.
type Record struct {
	Kind    Kind
	MatchID string
	ID      string
	Data    []byte
}

// Store is the badger-backed hot tier.
type Store struct {
	db        *badger.DB
	path      string
	ttls      map[Kind]time.Duration
	chunkSize int
	collector *metrics.Collector
	manager   *metrics.Manager
	log       logger.Logger
}

// New opens the store at the configured path, or in memory when no path is
// set.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		ttls: map[Kind]time.Duration{
			KindEvent:  defaultEventTTL,
			KindMetric: defaultMetricTTL,
			KindStat:   defaultStatTTL,
		},
		chunkSize: defaultChunkSize,
		log:       logger.Named("hotstore"),
	}

	for _, opt := range opts {
		opt(s)
	}

	var badgerOpts badger.Options
	if s.path == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(s.path)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	s.db = db

	return s, nil
}

// Put writes one record with its kind's TTL.
func (s *Store) Put(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key(rec.Kind, rec.MatchID, rec.ID), rec.Data).
			WithTTL(s.ttls[rec.Kind])
		return txn.SetEntry(entry)
	})
	if err != nil {
		s.recordError()
		return err
	}

	s.recordWrites(1)
	return nil
}

// PutBatch writes records in chunks. A failed chunk stops the batch and
// reports how many records were durably written before it.
func (s *Store) PutBatch(ctx context.Context, recs []Record) (int, error) {
	for _, rec := range recs {
		if err := rec.validate(); err != nil {
			return 0, err
		}
	}

	written := 0
	for from := 0; from < len(recs); from += s.chunkSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		to := from + s.chunkSize
		if to > len(recs) {
			to = len(recs)
		}

		wb := s.db.NewWriteBatch()
		for _, rec := range recs[from:to] {
			entry := badger.NewEntry(key(rec.Kind, rec.MatchID, rec.ID), rec.Data).
				WithTTL(s.ttls[rec.Kind])
			if err := wb.SetEntry(entry); err != nil {
				wb.Cancel()
				s.recordError()
				return written, err
			}
		}
		if err := wb.Flush(); err != nil {
			s.recordError()
			return written, err
		}

		written += to - from
		s.recordWrites(to - from)
	}

	return written, nil
}

// Get reads one record, or ErrNotFound if it is absent or expired.
func (s *Store) Get(ctx context.Context, kind Kind, matchID, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(kind, matchID, id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.recordError()
		return nil, err
	}

	s.recordReads(1)
	return data, nil
}

// QueryMatch returns every live record of a kind for one match, in key
// order.
func (s *Store) QueryMatch(ctx context.Context, kind Kind, matchID string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix(kind, matchID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, data)
		}
		return nil
	})
	if err != nil {
		s.recordError()
		return nil, err
	}

	s.recordReads(len(out))
	return out, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (r Record) validate() error {
	if r.Kind == "" || r.MatchID == "" || r.ID == "" {
		return ErrIncompleteRecord
	}
	return nil
}

func key(kind Kind, matchID, id string) []byte {
	return []byte(string(kind) + ":" + matchID + ":" + id)
}

func prefix(kind Kind, matchID string) []byte {
	return []byte(string(kind) + ":" + matchID + ":")
}

func (s *Store) recordWrites(n int) {
	if s.collector != nil {
		s.collector.AddStoreWrites(n)
	}
	if s.manager != nil {
		s.manager.RecordHotStoreWrites(n)
	}
}

func (s *Store) recordReads(n int) {
	if s.collector != nil {
		s.collector.AddStoreReads(n)
	}
	if s.manager != nil {
		s.manager.RecordHotStoreReads(n)
	}
}

func (s *Store) recordError() {
	if s.manager != nil {
		s.manager.RecordHotStoreError()
	}
}
