package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/kioko/matchpulse/internal/app"
	"github.com/kioko/matchpulse/internal/domain/analytics"
	"github.com/kioko/matchpulse/internal/domain/event"
	"github.com/kioko/matchpulse/internal/domain/threat"
	"github.com/kioko/matchpulse/internal/ingest"
	"github.com/kioko/matchpulse/pkg/logger"
	"github.com/kioko/matchpulse/pkg/metrics"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func startedService(t *testing.T) *service.Service {
	t.Helper()

	svc := service.New(
		service.WithArchiveRoot(t.TempDir()),
		service.WithPumpLinger(10*time.Millisecond),
		service.WithSweepInterval(time.Hour),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

// waitForEvents polls the hot tier until the match holds at least n events.
func waitForEvents(ctx context.Context, svc *service.Service, matchID string, n int) ([]event.Event, error) {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		events, err := svc.MatchEvents(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if len(events) >= n {
			return events, nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil, fmt.Errorf("match %s never reached %d events", matchID, n)
}

func matchEvent(id, matchID, teamID, playerID string, typ event.Type, pos *event.Position) *event.MatchEvent {
	return &event.MatchEvent{
		Header: event.Header{
			EventID:   id,
			MatchID:   matchID,
			Timestamp: time.Now().UTC(),
			Type:      typ,
		},
		Period:   1,
		Minute:   12,
		Second:   30,
		TeamID:   teamID,
		PlayerID: playerID,
		Position: pos,
	}
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given an unstarted service", t, func() {
		svc := service.New()

		Convey("operations are rejected before Start", func() {
			err := svc.Submit(context.Background(), matchEvent("evt-1", "match-1", "team-a", "p1", event.TypePass, nil))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.MatchEvents(context.Background(), "match-1")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("accessors are guarded before Start", func() {
			_, err := svc.MetricsSnapshot()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			So(errors.Is(svc.ResetMetrics(), service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.WSHandler()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.Manager()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Stop before Start is a no-op", func() {
			So(svc.Stop, ShouldNotPanic)
		})
	})

	Convey("Given a started service", t, func() {
		svc := startedService(t)
		ctx := context.Background()

		Convey("Start is idempotent", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})

		Convey("stats report the running state", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["connections"], ShouldEqual, 0)
		})
	})
}

func TestServicePipeline(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService(t)
		ctx := context.Background()

		Convey("a submitted event lands in the hot tier", func() {
			ev := matchEvent("evt-flow-1", "match-flow", "team-a", "p1", event.TypeShot,
				&event.Position{X: 110, Y: 40})
			So(svc.Submit(ctx, ev), ShouldBeNil)

			events, err := waitForEvents(ctx, svc, "match-flow", 1)
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 1)

			me, ok := events[0].(*event.MatchEvent)
			So(ok, ShouldBeTrue)
			So(me.EventID, ShouldEqual, "evt-flow-1")
			So(me.IngestionTime, ShouldNotBeNil)

			Convey("and the shot carries its enrichment", func() {
				So(me.Metadata["expected_goals"], ShouldNotBeNil)
			})
		})

		Convey("resubmitting the same event ID reports a duplicate", func() {
			ev := matchEvent("evt-dup-1", "match-dup", "team-a", "p1", event.TypePass, nil)
			So(svc.Submit(ctx, ev), ShouldBeNil)

			err := svc.Submit(ctx, ev)
			So(errors.Is(err, ingest.ErrDuplicate), ShouldBeTrue)
		})

		Convey("an invalid event is rejected outright", func() {
			ev := matchEvent("evt-bad-1", "match-bad", "team-a", "p1", event.TypeShot,
				&event.Position{X: 500, Y: 40})

			var verr *event.ValidationError
			So(errors.As(svc.Submit(ctx, ev), &verr), ShouldBeTrue)
		})

		Convey("a batch reports per-event accounting", func() {
			events := []event.Event{
				matchEvent("evt-b-1", "match-batch", "team-a", "p1", event.TypePass, nil),
				matchEvent("evt-b-2", "match-batch", "team-a", "p2", event.TypeGoal, nil),
			}
			batch, err := event.NewBatch("match-batch", events)
			So(err, ShouldBeNil)

			res, err := svc.SubmitBatch(ctx, batch)
			So(err, ShouldBeNil)
			So(res.Submitted, ShouldEqual, 2)
			So(res.Succeeded, ShouldEqual, 2)
			So(res.Succeeded+res.Duplicates+res.Failed, ShouldEqual, res.Submitted)

			_, err = waitForEvents(ctx, svc, "match-batch", 2)
			So(err, ShouldBeNil)
		})
	})
}

func TestServiceAnalytics(t *testing.T) {
	Convey("Given a service with a processed match", t, func() {
		svc := startedService(t)
		ctx := context.Background()
		matchID := "match-an"

		shot := matchEvent("evt-an-1", matchID, "team-h", "striker-1", event.TypeShot,
			&event.Position{X: 112, Y: 38})
		shot.Outcome = "success"
		goal := matchEvent("evt-an-2", matchID, "team-h", "striker-1", event.TypeGoal,
			&event.Position{X: 114, Y: 41})
		pass := matchEvent("evt-an-3", matchID, "team-v", "mid-1", event.TypePass,
			&event.Position{X: 60, Y: 40})
		pass.EndPosition = &event.Position{X: 80, Y: 44}
		pass.Outcome = "success"

		for _, ev := range []event.Event{shot, goal, pass} {
			So(svc.Submit(ctx, ev), ShouldBeNil)
		}
		_, err := waitForEvents(ctx, svc, matchID, 3)
		So(err, ShouldBeNil)

		Convey("player metrics are computed from stored events", func() {
			m, err := svc.PlayerMetrics(ctx, matchID, "striker-1", "team-h", analytics.RoleStriker)
			So(err, ShouldBeNil)
			So(m.Goals, ShouldEqual, 1)
			So(m.Shots, ShouldEqual, 1)
			So(m.ShotsOnTarget, ShouldEqual, 1)
			So(m.ExpectedGoals, ShouldBeGreaterThan, 0)
			So(m.PerformanceScore, ShouldBeBetweenOrEqual, 0, 10)
		})

		Convey("match statistics aggregate both teams", func() {
			stats, err := svc.MatchStatistics(ctx, matchID, "team-h", "team-v")
			So(err, ShouldBeNil)
			So(stats.HomeScore, ShouldEqual, 1)
			So(stats.HomeShots, ShouldEqual, 1)
			So(stats.AwayPasses, ShouldEqual, 1)
			So(stats.HomePossession+stats.AwayPossession, ShouldAlmostEqual, 1.0, 1e-9)
		})
	})
}

func TestServiceThreat(t *testing.T) {
	Convey("Given a service with tracking data", t, func() {
		svc := startedService(t)
		ctx := context.Background()
		matchID := "match-thr"

		Convey("assessment without a ball sample is rejected", func() {
			_, err := svc.AssessThreat(ctx, matchID, "team-a", "team-d")
			So(errors.Is(err, service.ErrNoBallPosition), ShouldBeTrue)
		})

		Convey("assessment uses the latest positions", func() {
			tracking := &event.TrackingEvent{
				Header: event.Header{
					EventID:   "evt-thr-1",
					MatchID:   matchID,
					Timestamp: time.Now().UTC(),
					Type:      event.TypePlayerPosition,
				},
				PlayerID:     "att-1",
				TeamID:       "team-a",
				JerseyNumber: 9,
				Position:     event.Position{X: 108, Y: 42},
			}
			ball := &event.GenericEvent{
				Header: event.Header{
					EventID:   "evt-thr-2",
					MatchID:   matchID,
					Timestamp: time.Now().UTC(),
					Type:      event.TypeBallPosition,
				},
				Fields: map[string]any{"x": 110.0, "y": 40.0},
			}
			So(svc.Submit(ctx, tracking), ShouldBeNil)
			So(svc.Submit(ctx, ball), ShouldBeNil)
			_, err := waitForEvents(ctx, svc, matchID, 2)
			So(err, ShouldBeNil)

			a, err := svc.AssessThreat(ctx, matchID, "team-a", "team-d")
			So(err, ShouldBeNil)
			So(a.BallX, ShouldEqual, 110.0)
			So(a.ThreatValue, ShouldBeBetweenOrEqual, 0, 1)
			So(a.AttackersNearby, ShouldEqual, 1)
			So(a.DefendersNearby, ShouldEqual, 0)
		})

		Convey("defensive actions are valued by the threat they remove", func() {
			act := svc.ValueDefensiveAction(threat.ActionInput{
				MatchID:            matchID,
				PlayerID:           "def-1",
				TeamID:             "team-d",
				Type:               threat.ActionTackle,
				Position:           event.Position{X: 100, Y: 40},
				ThreatBefore:       0.8,
				Successful:         true,
				PossessionRegained: true,
			})
			So(act.ThreatAfter, ShouldAlmostEqual, 0.08, 1e-9)
			So(act.ThreatReduction, ShouldAlmostEqual, 0.72, 1e-9)
		})
	})
}

func TestServiceFormation(t *testing.T) {
	Convey("Given a service with tracking samples for a team", t, func() {
		svc := startedService(t)
		ctx := context.Background()
		matchID := "match-form"

		Convey("a team without samples is rejected", func() {
			_, err := svc.TeamFormation(ctx, matchID, "team-a")
			So(errors.Is(err, service.ErrNoTrackingData), ShouldBeTrue)
		})

		Convey("the formation is derived from stored positions", func() {
			positions := []event.Position{
				{X: 10, Y: 40},  // keeper
				{X: 30, Y: 20},  // back line
				{X: 30, Y: 60},
				{X: 55, Y: 40},  // midfield
				{X: 80, Y: 40},  // front line
			}
			for i, pos := range positions {
				te := &event.TrackingEvent{
					Header: event.Header{
						EventID:   fmt.Sprintf("evt-form-%d", i),
						MatchID:   matchID,
						Timestamp: time.Now().UTC(),
						Type:      event.TypePlayerPosition,
					},
					PlayerID:     fmt.Sprintf("p%d", i),
					TeamID:       "team-a",
					JerseyNumber: i + 1,
					Position:     pos,
				}
				So(svc.Submit(ctx, te), ShouldBeNil)
			}
			_, err := waitForEvents(ctx, svc, matchID, len(positions))
			So(err, ShouldBeNil)

			f, err := svc.TeamFormation(ctx, matchID, "team-a")
			So(err, ShouldBeNil)
			So(f.MatchID, ShouldEqual, matchID)
			So(f.TeamID, ShouldEqual, "team-a")
			So(f.FormationName, ShouldEqual, "2-1-1")
			So(f.PlayerPositions, ShouldHaveLength, len(positions))
			So(f.PlayerPositions[0].Role, ShouldEqual, analytics.RoleGoalkeeper)
			So(f.Confidence, ShouldBeBetween, 0, 1)
		})
	})
}

func TestServiceArchive(t *testing.T) {
	Convey("Given a service with stored match events", t, func() {
		svc := startedService(t)
		ctx := context.Background()
		matchID := "match-arc"

		ev := matchEvent("evt-arc-1", matchID, "team-a", "p1", event.TypePass, nil)
		So(svc.Submit(ctx, ev), ShouldBeNil)
		_, err := waitForEvents(ctx, svc, matchID, 1)
		So(err, ShouldBeNil)

		Convey("the match can be archived and read back", func() {
			key, err := svc.ArchiveMatch(ctx, matchID)
			So(err, ShouldBeNil)
			So(key, ShouldNotBeEmpty)

			keys, err := svc.ArchivedMatches(ctx, matchID)
			So(err, ShouldBeNil)
			So(keys, ShouldContain, key)

			obj, err := svc.ReadArchivedMatch(ctx, key)
			So(err, ShouldBeNil)
			So(obj.MatchID, ShouldEqual, matchID)
			So(obj.EventCount, ShouldEqual, 1)
		})
	})
}

func TestServiceMetrics(t *testing.T) {
	Convey("Given a service that processed events", t, func() {
		svc := startedService(t)
		ctx := context.Background()

		ev := matchEvent("evt-met-1", "match-met", "team-a", "p1", event.TypePass, nil)
		So(svc.Submit(ctx, ev), ShouldBeNil)
		_, err := waitForEvents(ctx, svc, "match-met", 1)
		So(err, ShouldBeNil)

		Convey("the snapshot carries latency and cost figures", func() {
			snap, err := svc.MetricsSnapshot()
			So(err, ShouldBeNil)
			So(snap.Latency[metrics.StageIngestion].Count, ShouldBeGreaterThan, 0)
			So(snap.Cost.StreamUSD, ShouldBeGreaterThan, 0)
		})

		Convey("reset clears the collector", func() {
			So(svc.ResetMetrics(), ShouldBeNil)
			snap, err := svc.MetricsSnapshot()
			So(err, ShouldBeNil)
			So(snap.Latency[metrics.StageIngestion].Count, ShouldEqual, 0)
		})
	})
}
