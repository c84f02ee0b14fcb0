package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/kioko/matchpulse/internal/adapters/stream"
	"github.com/kioko/matchpulse/internal/domain/dedupe"
	"github.com/kioko/matchpulse/internal/domain/event"
	"github.com/kioko/matchpulse/internal/ingest"
	"github.com/kioko/matchpulse/pkg/logger"
	"github.com/kioko/matchpulse/pkg/metrics"
	"github.com/kioko/matchpulse/pkg/retry"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeAppender captures appended records and can fail the first n calls.
type fakeAppender struct {
	mu       sync.Mutex
	records  []stream.Record
	failures int
	calls    int
}

func (a *fakeAppender) Append(_ context.Context, rec stream.Record) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.calls <= a.failures {
		return 0, errors.New("stream unavailable")
	}
	a.records = append(a.records, rec)
	return 0, nil
}

func (a *fakeAppender) appended() []stream.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]stream.Record, len(a.records))
	copy(out, a.records)
	return out
}

func passEvent(matchID, eventID string) *event.MatchEvent {
	return &event.MatchEvent{
		Header: event.Header{
			EventID:   eventID,
			MatchID:   matchID,
			Timestamp: time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC),
			Type:      event.TypePass,
		},
		Period:   1,
		Minute:   5,
		TeamID:   "enyimba_fc",
		PlayerID: "eny_mid_1",
		Outcome:  "success",
	}
}

func TestSubmit(t *testing.T) {
	Convey("Given an ingestion producer", t, func() {
		ctx := context.Background()
		appender := &fakeAppender{}
		deduper := dedupe.NewInMemoryDeduper()
		p := ingest.New(appender, ingest.WithDeduper(deduper))

		Convey("When submitting a valid event", func() {
			So(p.Submit(ctx, passEvent("m1", "e1")), ShouldBeNil)

			recs := appender.appended()
			So(recs, ShouldHaveLength, 1)

			Convey("Then the record is keyed by match and carries the event ID", func() {
				So(recs[0].PartitionKey, ShouldEqual, "m1")
				So(recs[0].EventID, ShouldEqual, "e1")
			})

			Convey("Then the payload is stamped with an ingestion time", func() {
				decoded, err := event.Decode(recs[0].Data)
				So(err, ShouldBeNil)
				So(decoded.Head().IngestionTime, ShouldNotBeNil)
			})

			Convey("And submitting it again is rejected as a duplicate", func() {
				So(p.Submit(ctx, passEvent("m1", "e1")), ShouldWrap, ingest.ErrDuplicate)
				So(appender.appended(), ShouldHaveLength, 1)
			})
		})

		Convey("When submitting an invalid event", func() {
			bad := passEvent("m1", "e2")
			bad.Period = 0

			err := p.Submit(ctx, bad)

			var verr *event.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(appender.appended(), ShouldBeEmpty)

			Convey("Then no dedupe claim is left behind", func() {
				So(deduper.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the stream fails transiently", func() {
			flaky := &fakeAppender{failures: 2}
			retrying := ingest.New(flaky,
				ingest.WithDeduper(dedupe.NewInMemoryDeduper()),
				ingest.WithRetryPolicy(retry.New(retry.WithMaxAttempts(3), retry.WithInitialBackoff(time.Millisecond))))

			So(retrying.Submit(ctx, passEvent("m1", "e3")), ShouldBeNil)
			So(flaky.appended(), ShouldHaveLength, 1)
		})

		Convey("When the stream stays down", func() {
			down := &fakeAppender{failures: 100}
			d := dedupe.NewInMemoryDeduper()
			failing := ingest.New(down,
				ingest.WithDeduper(d),
				ingest.WithRetryPolicy(retry.New(retry.WithMaxAttempts(2), retry.WithInitialBackoff(time.Millisecond))))

			err := failing.Submit(ctx, passEvent("m1", "e4"))
			So(err, ShouldNotBeNil)

			Convey("Then the dedupe claim is released for a later retry", func() {
				So(d.Size(), ShouldEqual, 0)

				recovered := &fakeAppender{}
				retried := ingest.New(recovered, ingest.WithDeduper(d))
				So(retried.Submit(ctx, passEvent("m1", "e4")), ShouldBeNil)
			})
		})

		Convey("When a collector observes the producer", func() {
			c := metrics.NewCollector()
			observed := ingest.New(&fakeAppender{}, ingest.WithCollector(c))

			So(observed.Submit(ctx, passEvent("m1", "e5")), ShouldBeNil)

			snap := c.Snapshot()
			So(snap.Latency[metrics.StageIngestion].Count, ShouldEqual, 1)
			So(snap.Cost.StreamPuts, ShouldEqual, 1)
		})
	})
}

func TestSubmitBatch(t *testing.T) {
	Convey("Given a batch submission", t, func() {
		ctx := context.Background()
		appender := &fakeAppender{}
		deduper := dedupe.NewInMemoryDeduper()
		p := ingest.New(appender, ingest.WithDeduper(deduper), ingest.WithChunkSize(2))

		Convey("When the batch mixes good, duplicate and invalid events", func() {
			So(p.Submit(ctx, passEvent("m1", "dup")), ShouldBeNil)

			bad := passEvent("m1", "bad")
			bad.TeamID = ""

			events := []event.Event{
				passEvent("m1", "a"),
				passEvent("m1", "b"),
				passEvent("m1", "dup"),
				bad,
				passEvent("m1", "c"),
			}
			// Invalid events still join the batch; validation happens at submit.
			batch := &event.Batch{BatchID: "b1", MatchID: "m1", IngestionTime: time.Now().UTC()}
			for _, e := range events {
				me := e.(*event.MatchEvent)
				batch.MatchEvents = append(batch.MatchEvents, me)
			}

			res := p.SubmitBatch(ctx, batch)

			Convey("Then every event is accounted for exactly once", func() {
				So(res.Submitted, ShouldEqual, 5)
				So(res.Succeeded, ShouldEqual, 3)
				So(res.Duplicates, ShouldEqual, 1)
				So(res.Failed, ShouldEqual, 1)
				So(res.Succeeded+res.Duplicates+res.Failed, ShouldEqual, res.Submitted)
			})

			Convey("Then the failure names the event and reason", func() {
				So(res.Failures, ShouldHaveLength, 1)
				So(res.Failures[0].EventID, ShouldEqual, "bad")
				So(res.Failures[0].Reason, ShouldContainSubstring, "team_id")
			})

			Convey("Then only the good events reached the stream", func() {
				// "dup" was appended once by the earlier Submit.
				So(appender.appended(), ShouldHaveLength, 4)
			})
		})

		Convey("When the batch exceeds the chunk size", func() {
			var evs []event.Event
			for i := 0; i < 7; i++ {
				evs = append(evs, passEvent("m1", fmt.Sprintf("chunked-%d", i)))
			}
			batch, err := event.NewBatch("m1", evs)
			So(err, ShouldBeNil)

			res := p.SubmitBatch(ctx, batch)
			So(res.Succeeded, ShouldEqual, 7)
			So(appender.appended(), ShouldHaveLength, 7)
		})
	})
}
