package synth_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/kioko/matchpulse/internal/domain/event"
	"github.com/kioko/matchpulse/internal/synth"
)

func TestGeneratorDeterminism(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a := synth.New(synth.WithSeed(42))
		b := synth.New(synth.WithSeed(42))

		teams := synth.Teams()
		evA := a.Match("match-1", teams[0], teams[1], 5)
		evB := b.Match("match-1", teams[0], teams[1], 5)

		Convey("their output is identical", func() {
			So(len(evA), ShouldEqual, len(evB))
			for i := range evA {
				So(evA[i].Head().EventID, ShouldEqual, evB[i].Head().EventID)
				So(evA[i].Head().Type, ShouldEqual, evB[i].Head().Type)
			}
		})

		Convey("a different seed diverges", func() {
			c := synth.New(synth.WithSeed(43))
			evC := c.Match("match-1", teams[0], teams[1], 5)

			diverged := false
			for i := range evC {
				ma := evA[i].(*event.MatchEvent)
				mc := evC[i].(*event.MatchEvent)
				if mc.Type != ma.Type || mc.Second != ma.Second {
					diverged = true
					break
				}
			}
			So(diverged, ShouldBeTrue)
		})
	})
}

func TestGeneratedEventsAreValid(t *testing.T) {
	Convey("Given a simulated match", t, func() {
		g := synth.New(synth.WithSeed(7), synth.WithEventsPerMinute(5))
		teams := synth.Teams()
		events := g.Match("match-v", teams[2], teams[3], 90)

		Convey("every event passes validation", func() {
			for _, ev := range events {
				So(ev.Validate(), ShouldBeNil)
			}
		})

		Convey("event IDs are unique", func() {
			seen := make(map[string]struct{}, len(events))
			for _, ev := range events {
				seen[ev.Head().EventID] = struct{}{}
			}
			So(len(seen), ShouldEqual, len(events))
		})

		Convey("timestamps are monotonically increasing", func() {
			for i := 1; i < len(events); i++ {
				So(events[i].Head().Timestamp.After(events[i-1].Head().Timestamp), ShouldBeTrue)
			}
		})

		Convey("passes dominate the mix and goals are rare", func() {
			counts := make(map[event.Type]int)
			for _, ev := range events {
				counts[ev.Head().Type]++
			}
			So(counts[event.TypePass], ShouldBeGreaterThan, counts[event.TypeShot])
			So(counts[event.TypePass], ShouldBeGreaterThan, counts[event.TypeGoal])
			So(counts[event.TypeGoal], ShouldBeLessThan, len(events)/5)
		})
	})
}

func TestTrackingFrame(t *testing.T) {
	Convey("Given a tracking frame", t, func() {
		g := synth.New(synth.WithSeed(11))
		teams := synth.Teams()
		frame := g.TrackingFrame("match-t", teams[0], teams[1], 1)

		Convey("it holds one sample per player plus the ball", func() {
			So(frame, ShouldHaveLength, len(teams[0].Players)+len(teams[1].Players)+1)

			last, ok := frame[len(frame)-1].(*event.GenericEvent)
			So(ok, ShouldBeTrue)
			So(last.Type, ShouldEqual, event.TypeBallPosition)
			So(last.Fields["x"], ShouldNotBeNil)
		})

		Convey("every sample validates", func() {
			for _, ev := range frame {
				So(ev.Validate(), ShouldBeNil)
			}
		})
	})
}

func TestPhysiological(t *testing.T) {
	Convey("Given a wearable reading", t, func() {
		g := synth.New(synth.WithSeed(3))
		teams := synth.Teams()
		p := g.Physiological("match-p", teams[0], teams[0].Players[0])

		Convey("it validates and stays in physiological bounds", func() {
			So(p.Validate(), ShouldBeNil)
			So(*p.HeartRate, ShouldBeBetweenOrEqual, 40, 220)
			So(p.FatigueIndex, ShouldBeBetweenOrEqual, 0, 1)
		})
	})
}
