package analytics_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/kioko/matchpulse/internal/domain/analytics"
	"github.com/kioko/matchpulse/internal/domain/event"
)

func matchEvent(typ event.Type, teamID, playerID string, pos *event.Position, outcome string) *event.MatchEvent {
	return &event.MatchEvent{
		Header: event.Header{
			EventID:   playerID + "-" + string(typ),
			MatchID:   "m1",
			Timestamp: time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC),
			Type:      typ,
		},
		Period:   1,
		Minute:   10,
		TeamID:   teamID,
		PlayerID: playerID,
		Position: pos,
		Outcome:  outcome,
	}
}

func TestShotXG(t *testing.T) {
	Convey("Given the expected-goal model", t, func() {
		Convey("Then closer shots are worth more", func() {
			near := analytics.ShotXG(event.Position{X: 115, Y: 40}, false)
			mid := analytics.ShotXG(event.Position{X: 100, Y: 40}, false)
			far := analytics.ShotXG(event.Position{X: 70, Y: 40}, false)

			So(near, ShouldBeGreaterThan, mid)
			So(mid, ShouldBeGreaterThan, far)
		})

		Convey("Then on-target shots are boosted", func() {
			pos := event.Position{X: 105, Y: 40}
			off := analytics.ShotXG(pos, false)
			on := analytics.ShotXG(pos, true)

			So(on, ShouldBeGreaterThan, off)
			So(on, ShouldAlmostEqual, off*1.2, 1e-9)
		})

		Convey("Then the value never leaves its bounds", func() {
			best := analytics.ShotXG(event.Position{X: 120, Y: 40}, true)
			worst := analytics.ShotXG(event.Position{X: 0, Y: 0}, false)

			So(best, ShouldBeLessThanOrEqualTo, 0.99)
			So(worst, ShouldBeGreaterThanOrEqualTo, 0.01)
		})

		Convey("Then a positionless shot falls back to the low default", func() {
			e := matchEvent(event.TypeShot, "t1", "p1", nil, "")
			So(analytics.ShotEventXG(e), ShouldEqual, 0.1)
		})
	})
}

func TestPassSuccess(t *testing.T) {
	Convey("Given the pass-success model", t, func() {
		Convey("Then longer passes are less likely to complete", func() {
			from := &event.Position{X: 40, Y: 40}
			short := analytics.PassSuccess(from, &event.Position{X: 45, Y: 40})
			long := analytics.PassSuccess(from, &event.Position{X: 90, Y: 40})

			So(short, ShouldBeGreaterThan, long)
			So(short, ShouldBeBetweenOrEqual, 0, 1)
			So(long, ShouldBeBetweenOrEqual, 0, 1)
		})

		Convey("Then a zero-length pass is near certain", func() {
			p := &event.Position{X: 60, Y: 40}
			So(analytics.PassSuccess(p, p), ShouldEqual, 1)
		})

		Convey("Then missing endpoints yield the neutral estimate", func() {
			So(analytics.PassSuccess(nil, &event.Position{X: 60, Y: 40}), ShouldEqual, 0.5)
			So(analytics.PassSuccess(&event.Position{X: 60, Y: 40}, nil), ShouldEqual, 0.5)
		})
	})
}

func TestPlayerPerformance(t *testing.T) {
	Convey("Given a striker's match events", t, func() {
		shot := matchEvent(event.TypeShot, "t1", "p1", &event.Position{X: 108, Y: 40}, "success")
		goal := matchEvent(event.TypeGoal, "t1", "p1", &event.Position{X: 110, Y: 40}, "")
		pass := matchEvent(event.TypePass, "t1", "p1", &event.Position{X: 60, Y: 40}, "success")
		pass.EndPosition = &event.Position{X: 75, Y: 40}
		failedPass := matchEvent(event.TypePass, "t1", "p1", &event.Position{X: 60, Y: 40}, "failure")

		m := analytics.PlayerPerformance("p1", "t1", "m1", analytics.RoleStriker,
			[]*event.MatchEvent{shot, goal, pass, failedPass})

		Convey("Then the tallies reflect the events", func() {
			So(m.Goals, ShouldEqual, 1)
			So(m.Shots, ShouldEqual, 1)
			So(m.ShotsOnTarget, ShouldEqual, 1)
			So(m.ExpectedGoals, ShouldBeGreaterThan, 0)
			So(m.PassesAttempted, ShouldEqual, 2)
			So(m.PassesCompleted, ShouldEqual, 1)
			So(m.PassAccuracy, ShouldAlmostEqual, 0.5, 1e-9)
			So(m.ProgressivePasses, ShouldEqual, 1)
		})

		Convey("Then the score rewards the goal and stays in bounds", func() {
			So(m.PerformanceScore, ShouldBeGreaterThan, 5.0)
			So(m.PerformanceScore, ShouldBeLessThanOrEqualTo, 10.0)
		})

		Convey("Then the same events score differently for a defender", func() {
			d := analytics.PlayerPerformance("p1", "t1", "m1", analytics.RoleDefender,
				[]*event.MatchEvent{shot, goal, pass, failedPass})
			So(d.PerformanceScore, ShouldBeLessThan, m.PerformanceScore)
		})
	})

	Convey("Given metadata-flagged contributions", t, func() {
		tackle := matchEvent(event.TypeTackle, "t1", "p2", nil, "success")
		cleared := matchEvent(event.TypeFoul, "t1", "p2", nil, "")
		cleared.Metadata = map[string]any{"clearance": true, "interception": true}

		m := analytics.PlayerPerformance("p2", "t1", "m1", analytics.RoleDefender,
			[]*event.MatchEvent{tackle, cleared})

		So(m.TacklesWon, ShouldEqual, 1)
		So(m.TacklesAttempted, ShouldEqual, 1)
		So(m.Clearances, ShouldEqual, 1)
		So(m.Interceptions, ShouldEqual, 1)
		So(m.PerformanceScore, ShouldBeGreaterThan, 5.0)
	})

	Convey("Given no events", t, func() {
		m := analytics.PlayerPerformance("p3", "t1", "m1", analytics.RoleMidfielder, nil)
		So(m.PerformanceScore, ShouldEqual, 5.0)
		So(m.PassAccuracy, ShouldEqual, 0)
	})
}

func TestMatchStats(t *testing.T) {
	Convey("Given both teams' match events", t, func() {
		evs := []*event.MatchEvent{
			matchEvent(event.TypeGoal, "home", "h1", &event.Position{X: 110, Y: 40}, ""),
			matchEvent(event.TypeShot, "home", "h1", &event.Position{X: 105, Y: 38}, "success"),
			matchEvent(event.TypeShot, "home", "h2", &event.Position{X: 95, Y: 30}, "failure"),
			matchEvent(event.TypePass, "home", "h3", &event.Position{X: 50, Y: 40}, "success"),
			matchEvent(event.TypePass, "home", "h3", &event.Position{X: 55, Y: 42}, "success"),
			matchEvent(event.TypePass, "home", "h4", &event.Position{X: 60, Y: 44}, "failure"),
			matchEvent(event.TypeShot, "away", "a1", &event.Position{X: 100, Y: 40}, "success"),
			matchEvent(event.TypePass, "away", "a2", &event.Position{X: 40, Y: 40}, "success"),
		}

		s := analytics.MatchStats("m1", "home", "away", evs)

		Convey("Then the tallies split by team", func() {
			So(s.HomeScore, ShouldEqual, 1)
			So(s.AwayScore, ShouldEqual, 0)
			So(s.HomeShots, ShouldEqual, 2)
			So(s.HomeShotsOnTarget, ShouldEqual, 1)
			So(s.AwayShots, ShouldEqual, 1)
			So(s.HomePasses, ShouldEqual, 3)
			So(s.AwayPasses, ShouldEqual, 1)
			So(s.HomeXG, ShouldBeGreaterThan, 0)
			So(s.AwayXG, ShouldBeGreaterThan, 0)
		})

		Convey("Then possession is the pass share and sums to one", func() {
			So(s.HomePossession, ShouldAlmostEqual, 0.75, 1e-9)
			So(s.HomePossession+s.AwayPossession, ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("Then pass accuracy is per team", func() {
			So(s.HomePassAccuracy, ShouldAlmostEqual, 2.0/3.0, 1e-9)
			So(s.AwayPassAccuracy, ShouldAlmostEqual, 1.0, 1e-9)
		})
	})

	Convey("Given no events", t, func() {
		s := analytics.MatchStats("m1", "home", "away", nil)
		So(s.HomePossession, ShouldEqual, 0.5)
		So(s.AwayPossession, ShouldEqual, 0.5)
	})
}
