// Package synth generates realistic NPFL match data for demos and tests.
// Generation is fully deterministic for a given seed, so demo runs and test
// fixtures are reproducible.
package synth

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kioko/matchpulse/internal/domain/analytics"
	"github.com/kioko/matchpulse/internal/domain/event"
)

// Default generation shape: one minute of play yields a handful of on-ball
// events, goals are rare.
const (
	defaultSeed            = 1
	defaultEventsPerMinute = 3

	weightPass   = 60
	weightShot   = 15
	weightTackle = 10
	weightFoul   = 10
	weightGoal   = 5
)

// Player is a squad member of a synthetic team.
type Player struct {
	ID     string
	Name   string
	Jersey int
	Role   analytics.Role
}

// Team is an NPFL side with a four-man demo squad.
type Team struct {
	ID      string
	Name    string
	City    string
	Players []Player
}

// Teams returns the built-in NPFL sides (2024 season).
func Teams() []Team {
	return []Team{
		{
			ID: "enyimba_fc", Name: "Enyimba FC", City: "Aba",
			Players: []Player{
				{ID: "victor_mbaoma", Name: "Victor Mbaoma", Jersey: 9, Role: analytics.RoleStriker},
				{ID: "chijoke_akuneto", Name: "Chijoke Akuneto", Jersey: 11, Role: analytics.RoleForward},
				{ID: "akanni_elijah", Name: "Akanni Elijah", Jersey: 8, Role: analytics.RoleMidfielder},
				{ID: "eze_ekwutoziam", Name: "Eze Ekwutoziam", Jersey: 4, Role: analytics.RoleDefender},
			},
		},
		{
			ID: "rangers_intl", Name: "Rangers International", City: "Enugu",
			Players: []Player{
				{ID: "kenechukwu_agu", Name: "Kenechukwu Agu", Jersey: 10, Role: analytics.RoleAttackingMidfielder},
				{ID: "chiamaka_madu", Name: "Chiamaka Madu", Jersey: 7, Role: analytics.RoleWinger},
				{ID: "isaac_saviour", Name: "Isaac Saviour", Jersey: 6, Role: analytics.RoleDefensiveMidfielder},
				{ID: "kazeem_ogunleye", Name: "Kazeem Ogunleye", Jersey: 5, Role: analytics.RoleDefender},
			},
		},
		{
			ID: "plateau_united", Name: "Plateau United", City: "Jos",
			Players: []Player{
				{ID: "jesse_akila", Name: "Jesse Akila", Jersey: 9, Role: analytics.RoleStriker},
				{ID: "mustapha_ibrahim", Name: "Mustapha Ibrahim", Jersey: 8, Role: analytics.RoleMidfielder},
				{ID: "nenrot_silas", Name: "Nenrot Silas", Jersey: 11, Role: analytics.RoleWinger},
				{ID: "daniel_itodo", Name: "Daniel Itodo", Jersey: 3, Role: analytics.RoleDefender},
			},
		},
		{
			ID: "rivers_united", Name: "Rivers United", City: "Port Harcourt",
			Players: []Player{
				{ID: "nyima_nwagua", Name: "Nyima Nwagua", Jersey: 9, Role: analytics.RoleForward},
				{ID: "kazie_godswill", Name: "Kazie Godswill", Jersey: 10, Role: analytics.RoleMidfielder},
				{ID: "dennis_ndikom", Name: "Dennis Ndikom", Jersey: 6, Role: analytics.RoleDefensiveMidfielder},
				{ID: "alex_oyowah", Name: "Alex Oyowah", Jersey: 2, Role: analytics.RoleDefender},
			},
		},
		{
			ID: "kano_pillars", Name: "Kano Pillars", City: "Kano",
			Players: []Player{
				{ID: "rabiu_ali", Name: "Rabiu Ali", Jersey: 10, Role: analytics.RoleAttackingMidfielder},
				{ID: "adamu_hassan", Name: "Adamu Hassan", Jersey: 7, Role: analytics.RoleWinger},
				{ID: "usman_mohammed", Name: "Usman Mohammed", Jersey: 8, Role: analytics.RoleMidfielder},
				{ID: "auwalu_sani", Name: "Auwalu Sani", Jersey: 4, Role: analytics.RoleDefender},
			},
		},
		{
			ID: "shooting_stars", Name: "Shooting Stars SC", City: "Ibadan",
			Players: []Player{
				{ID: "gbolahan_salami", Name: "Gbolahan Salami", Jersey: 9, Role: analytics.RoleStriker},
				{ID: "ayo_adejubu", Name: "Ayo Adejubu", Jersey: 11, Role: analytics.RoleForward},
				{ID: "akilu_muhammed", Name: "Akilu Muhammed", Jersey: 6, Role: analytics.RoleMidfielder},
				{ID: "chinedu_udoji", Name: "Chinedu Udoji", Jersey: 5, Role: analytics.RoleDefender},
			},
		},
	}
}

// Generator produces synthetic match data from a seeded source.
type Generator struct {
	rng             *rand.Rand
	teams           []Team
	eventsPerMinute int
	base            time.Time
	seq             int
}

// New creates a Generator with the default seed and built-in teams.
func New(opts ...Option) *Generator {
	g := &Generator{
		teams:           Teams(),
		eventsPerMinute: defaultEventsPerMinute,
		base:            time.Date(2024, time.March, 9, 16, 0, 0, 0, time.UTC),
	}
	seed := int64(defaultSeed)
	for _, opt := range opts {
		opt(g, &seed)
	}
	g.rng = rand.New(rand.NewSource(seed))
	return g
}

// Pair picks two distinct teams for a fixture.
func (g *Generator) Pair() (home, away Team) {
	i := g.rng.Intn(len(g.teams))
	j := g.rng.Intn(len(g.teams) - 1)
	if j >= i {
		j++
	}
	return g.teams[i], g.teams[j]
}

// Match simulates minutes of play between home and away and returns the
// on-ball events in chronological order. The running score rides along in
// each event's metadata like a live feed would carry it.
func (g *Generator) Match(matchID string, home, away Team, minutes int) []event.Event {
	var events []event.Event
	var homeScore, awayScore int

	for minute := 1; minute <= minutes; minute++ {
		for i := 0; i < g.eventsPerMinute; i++ {
			attacking := home
			isHome := g.rng.Intn(2) == 0
			if !isHome {
				attacking = away
			}
			player := attacking.Players[g.rng.Intn(len(attacking.Players))]

			typ := g.pickType()
			if typ == event.TypeGoal {
				if isHome {
					homeScore++
				} else {
					awayScore++
				}
			}

			ev := g.matchEvent(matchID, attacking, player, typ, minute)
			ev.Metadata["score"] = fmt.Sprintf("%d-%d", homeScore, awayScore)
			ev.Metadata["home_team"] = home.Name
			ev.Metadata["away_team"] = away.Name
			events = append(events, ev)
		}
	}
	return events
}

// TrackingFrame returns one positional sample per player of both teams,
// plus the ball sample, all sharing a frame ID.
func (g *Generator) TrackingFrame(matchID string, home, away Team, frameID int) []event.Event {
	var events []event.Event
	for _, team := range []Team{home, away} {
		for _, p := range team.Players {
			events = append(events, g.trackingEvent(matchID, team, p, frameID))
		}
	}
	events = append(events, g.ballEvent(matchID, frameID))
	return events
}

// Physiological returns one wearable reading for a player.
func (g *Generator) Physiological(matchID string, team Team, player Player) *event.PhysiologicalEvent {
	hr := 120 + g.rng.Intn(70)
	return &event.PhysiologicalEvent{
		Header:          g.header(matchID, event.TypeHeartRate),
		PlayerID:        player.ID,
		TeamID:          team.ID,
		HeartRate:       &hr,
		DistanceCovered: 4000 + g.rng.Float64()*6000,
		FatigueIndex:    g.rng.Float64() * 0.8,
		MaxSpeed:        7 + g.rng.Float64()*3,
		AvgSpeed:        2 + g.rng.Float64()*2,
	}
}

func (g *Generator) pickType() event.Type {
	n := g.rng.Intn(weightPass + weightShot + weightTackle + weightFoul + weightGoal)
	switch {
	case n < weightPass:
		return event.TypePass
	case n < weightPass+weightShot:
		return event.TypeShot
	case n < weightPass+weightShot+weightTackle:
		return event.TypeTackle
	case n < weightPass+weightShot+weightTackle+weightFoul:
		return event.TypeFoul
	default:
		return event.TypeGoal
	}
}

func (g *Generator) matchEvent(matchID string, team Team, player Player, typ event.Type, minute int) *event.MatchEvent {
	pos := g.position()
	ev := &event.MatchEvent{
		Header:     g.header(matchID, typ),
		Period:     period(minute),
		Minute:     minute,
		Second:     g.rng.Intn(60),
		TeamID:     team.ID,
		TeamName:   team.Name,
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Position:   &pos,
		Metadata:   map[string]any{},
	}

	switch typ {
	case event.TypePass:
		end := g.position()
		ev.EndPosition = &end
		if g.rng.Intn(10) < 8 {
			ev.Outcome = "success"
		} else {
			ev.Outcome = "failure"
		}
	case event.TypeShot:
		// Shots come from the attacking third.
		attacking := g.attackingPosition()
		ev.Position = &attacking
		ev.Metadata["on_target"] = g.rng.Intn(2) == 0
		ev.Metadata["shot_type"] = g.shotType()
	case event.TypeGoal:
		attacking := g.attackingPosition()
		ev.Position = &attacking
		ev.Outcome = "success"
		ev.Metadata["goal_type"] = g.shotType()
		if assist := g.assister(team, player); assist != "" {
			ev.Metadata["assist_by"] = assist
		}
	case event.TypeTackle:
		if g.rng.Intn(10) < 6 {
			ev.Outcome = "success"
		} else {
			ev.Outcome = "failure"
		}
	}
	return ev
}

func (g *Generator) trackingEvent(matchID string, team Team, player Player, frameID int) *event.TrackingEvent {
	speed := g.rng.Float64() * 8
	return &event.TrackingEvent{
		Header:       g.header(matchID, event.TypePlayerPosition),
		PlayerID:     player.ID,
		TeamID:       team.ID,
		JerseyNumber: player.Jersey,
		Position:     g.position(),
		Velocity: &event.Velocity{
			VX:    (g.rng.Float64() - 0.5) * speed,
			VY:    (g.rng.Float64() - 0.5) * speed,
			Speed: speed,
		},
		Period:  1,
		FrameID: frameID,
	}
}

func (g *Generator) ballEvent(matchID string, frameID int) *event.GenericEvent {
	pos := g.position()
	return &event.GenericEvent{
		Header: g.header(matchID, event.TypeBallPosition),
		Fields: map[string]any{
			"x":        pos.X,
			"y":        pos.Y,
			"frame_id": frameID,
		},
	}
}

func (g *Generator) header(matchID string, typ event.Type) event.Header {
	g.seq++
	return event.Header{
		EventID:   fmt.Sprintf("%s-evt-%06d", matchID, g.seq),
		MatchID:   matchID,
		Timestamp: g.base.Add(time.Duration(g.seq) * time.Second),
		Type:      typ,
	}
}

func (g *Generator) position() event.Position {
	return event.Position{
		X: g.rng.Float64() * event.PitchMaxX,
		Y: g.rng.Float64() * event.PitchMaxY,
	}
}

func (g *Generator) attackingPosition() event.Position {
	return event.Position{
		X: 90 + g.rng.Float64()*(event.PitchMaxX-90),
		Y: 20 + g.rng.Float64()*40,
	}
}

func (g *Generator) shotType() string {
	return []string{"header", "right_foot", "left_foot", "penalty"}[g.rng.Intn(4)]
}

func (g *Generator) assister(team Team, scorer Player) string {
	others := make([]string, 0, len(team.Players)-1)
	for _, p := range team.Players {
		if p.ID != scorer.ID {
			others = append(others, p.ID)
		}
	}
	if len(others) == 0 {
		return ""
	}
	return others[g.rng.Intn(len(others))]
}

func period(minute int) int {
	if minute > 45 {
		return 2
	}
	return 1
}
