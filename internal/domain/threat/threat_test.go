package threat_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/kioko/matchpulse/internal/domain/event"
	"github.com/kioko/matchpulse/internal/domain/threat"
)

func trackingAt(playerID, teamID string, x, y float64) *event.TrackingEvent {
	return &event.TrackingEvent{
		Header: event.Header{
			EventID:   playerID + "-pos",
			MatchID:   "m1",
			Timestamp: time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC),
			Type:      event.TypePlayerPosition,
		},
		PlayerID:     playerID,
		TeamID:       teamID,
		JerseyNumber: 7,
		Position:     event.Position{X: x, Y: y},
	}
}

func TestAssess(t *testing.T) {
	Convey("Given the spatial threat model", t, func() {
		Convey("When the ball approaches the goal", func() {
			near := threat.Assess("m1", "att", "def", event.Position{X: 110, Y: 40}, nil, nil)
			far := threat.Assess("m1", "att", "def", event.Position{X: 40, Y: 40}, nil, nil)

			Convey("Then the threat rises", func() {
				So(near.ThreatValue, ShouldBeGreaterThan, far.ThreatValue)
				So(near.DistanceToGoal, ShouldBeLessThan, far.DistanceToGoal)
			})

			Convey("Then the value stays in [0,1]", func() {
				So(near.ThreatValue, ShouldBeBetweenOrEqual, 0, 1)
				So(far.ThreatValue, ShouldBeBetweenOrEqual, 0, 1)
			})

			Convey("Then every assessment carries an identity", func() {
				So(near.AssessmentID, ShouldNotBeEmpty)
				So(near.MatchID, ShouldEqual, "m1")
				So(near.AttackingTeamID, ShouldEqual, "att")
			})
		})

		Convey("When players crowd the ball", func() {
			ball := event.Position{X: 95, Y: 40}
			attackers := []*event.TrackingEvent{
				trackingAt("a1", "att", 96, 41),
				trackingAt("a2", "att", 93, 38),
				trackingAt("a3", "att", 50, 40), // out of the 10-unit radius
			}
			defenders := []*event.TrackingEvent{
				trackingAt("d1", "def", 97, 42),
			}

			a := threat.Assess("m1", "att", "def", ball, attackers, defenders)

			Convey("Then only the local players are counted", func() {
				So(a.AttackersNearby, ShouldEqual, 2)
				So(a.DefendersNearby, ShouldEqual, 1)
			})

			Convey("Then more defenders suppress the threat", func() {
				crowded := threat.Assess("m1", "att", "def", ball, attackers, []*event.TrackingEvent{
					trackingAt("d1", "def", 97, 42),
					trackingAt("d2", "def", 94, 39),
					trackingAt("d3", "def", 95, 43),
				})
				So(crowded.ThreatValue, ShouldBeLessThan, a.ThreatValue)
			})
		})

		Convey("When the ball enters the penalty area", func() {
			inside := threat.Assess("m1", "att", "def", event.Position{X: 106, Y: 40}, nil, nil)
			outside := threat.Assess("m1", "att", "def", event.Position{X: 101, Y: 40}, nil, nil)

			So(threat.InPenaltyArea(event.Position{X: 106, Y: 40}), ShouldBeTrue)
			So(threat.InPenaltyArea(event.Position{X: 101, Y: 40}), ShouldBeFalse)
			So(threat.InPenaltyArea(event.Position{X: 110, Y: 10}), ShouldBeFalse)
			So(inside.ThreatValue, ShouldBeGreaterThan, outside.ThreatValue)
		})

		Convey("When the threat is high", func() {
			a := threat.Assess("m1", "att", "def", event.Position{X: 112, Y: 40},
				[]*event.TrackingEvent{trackingAt("a1", "att", 111, 41)}, nil)

			Convey("Then recommendations are attached", func() {
				So(a.RecommendedActions, ShouldNotBeEmpty)
			})
		})
	})
}

func TestCategorize(t *testing.T) {
	Convey("Given the five-level classification", t, func() {
		So(threat.Categorize(0.95), ShouldEqual, threat.LevelCritical)
		So(threat.Categorize(0.7), ShouldEqual, threat.LevelHigh)
		So(threat.Categorize(0.5), ShouldEqual, threat.LevelMedium)
		So(threat.Categorize(0.3), ShouldEqual, threat.LevelLow)
		So(threat.Categorize(0.1), ShouldEqual, threat.LevelMinimal)

		Convey("Then boundaries fall into the lower bucket", func() {
			So(threat.Categorize(0.8), ShouldEqual, threat.LevelHigh)
			So(threat.Categorize(0.2), ShouldEqual, threat.LevelMinimal)
		})
	})
}

func TestDefensiveActionValue(t *testing.T) {
	Convey("Given a defensive intervention", t, func() {
		base := threat.ActionInput{
			MatchID:      "m1",
			PlayerID:     "d1",
			TeamID:       "def",
			Type:         threat.ActionTackle,
			Position:     event.Position{X: 100, Y: 40},
			ThreatBefore: 0.8,
		}

		Convey("When possession is regained", func() {
			in := base
			in.Successful = true
			in.PossessionRegained = true

			a := threat.DefensiveActionValue(in)
			So(a.ThreatAfter, ShouldAlmostEqual, 0.08, 1e-9)
			So(a.ThreatReduction, ShouldAlmostEqual, 0.72, 1e-9)
			So(a.ActionID, ShouldNotBeEmpty)
		})

		Convey("When the action succeeds without the ball", func() {
			in := base
			in.Successful = true

			a := threat.DefensiveActionValue(in)
			So(a.ThreatAfter, ShouldAlmostEqual, 0.4, 1e-9)
			So(a.ThreatReduction, ShouldAlmostEqual, 0.4, 1e-9)
		})

		Convey("When the action fails", func() {
			a := threat.DefensiveActionValue(base)

			Convey("Then the threat rises and the reduction goes negative", func() {
				So(a.ThreatAfter, ShouldAlmostEqual, 0.96, 1e-9)
				So(a.ThreatReduction, ShouldBeLessThan, 0)
			})

			Convey("Then the raised threat is capped at one", func() {
				in := base
				in.ThreatBefore = 0.9
				capped := threat.DefensiveActionValue(in)
				So(capped.ThreatAfter, ShouldEqual, 1.0)
			})
		})
	})
}
