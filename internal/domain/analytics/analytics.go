// Package analytics computes derived match metrics: expected goals,
// pass-success likelihood, per-player performance scores and aggregate
// match statistics.
//
// Every function here is a pure function of the supplied event list. There
// is no hidden state; any result can be recomputed from storage at any time.
package analytics

import (
	"math"
	"time"

	"github.com/kioko/matchpulse/internal/domain/event"
)

// Expected-goal model constants. The logistic approximation is
// xg = 1 / (1 + exp(a*distance - b + c*angle)).
const (
	xgDistanceCoeff = 0.1
	xgIntercept     = 3.0
	xgAngleCoeff    = 0.5
	xgOnTargetBoost = 1.2
	xgFloor         = 0.01
	xgCeil          = 0.99

	passLengthCoeff = 0.02

	goalX = event.PitchMaxX
	goalY = event.PitchMaxY / 2
)

// Performance score bounds and bonuses.
const (
	baseScore         = 5.0
	maxScore          = 10.0
	passAccuracyBonus = 0.5
	bonusThreshold    = 0.85

	progressivePassGain = 10.0
)

// Role is a player's positional role, weighting the performance model.
type Role string

// Positional roles.
const (
	RoleGoalkeeper          Role = "goalkeeper"
	RoleDefender            Role = "defender"
	RoleDefensiveMidfielder Role = "defensive_midfielder"
	RoleMidfielder          Role = "midfielder"
	RoleAttackingMidfielder Role = "attacking_midfielder"
	RoleWinger              Role = "winger"
	RoleForward             Role = "forward"
	RoleStriker             Role = "striker"
)

// PlayerPerformanceMetrics aggregates a player's contribution in a match.
// It is recomputed from stored events on demand, never mutated in place.
type PlayerPerformanceMetrics struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name,omitempty"`
	TeamID     string    `json:"team_id"`
	MatchID    string    `json:"match_id"`
	Timestamp  time.Time `json:"timestamp"`
	Role       Role      `json:"role"`

	Goals         int     `json:"goals"`
	Assists       int     `json:"assists"`
	Shots         int     `json:"shots"`
	ShotsOnTarget int     `json:"shots_on_target"`
	ExpectedGoals float64 `json:"expected_goals"`

	PassesCompleted   int     `json:"passes_completed"`
	PassesAttempted   int     `json:"passes_attempted"`
	PassAccuracy      float64 `json:"pass_accuracy"`
	KeyPasses         int     `json:"key_passes"`
	ProgressivePasses int     `json:"progressive_passes"`

	TacklesWon       int `json:"tackles_won"`
	TacklesAttempted int `json:"tackles_attempted"`
	Interceptions    int `json:"interceptions"`
	Clearances       int `json:"clearances"`
	Blocks           int `json:"blocks"`

	PerformanceScore float64 `json:"performance_score"`
}

// MatchStatistics aggregates team-level tallies for one match.
type MatchStatistics struct {
	MatchID   string    `json:"match_id"`
	Timestamp time.Time `json:"timestamp"`

	HomeTeamID string `json:"home_team_id"`
	AwayTeamID string `json:"away_team_id"`

	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`

	HomePossession float64 `json:"home_possession"`
	AwayPossession float64 `json:"away_possession"`

	HomeShots         int `json:"home_shots"`
	AwayShots         int `json:"away_shots"`
	HomeShotsOnTarget int `json:"home_shots_on_target"`
	AwayShotsOnTarget int `json:"away_shots_on_target"`

	HomeXG float64 `json:"home_xg"`
	AwayXG float64 `json:"away_xg"`

	HomePasses       int     `json:"home_passes"`
	AwayPasses       int     `json:"away_passes"`
	HomePassAccuracy float64 `json:"home_pass_accuracy"`
	AwayPassAccuracy float64 `json:"away_pass_accuracy"`
}

// ShotXG computes the expected-goal value for a shot at pos. The logistic
// model combines distance and angle to the goal center; on-target shots are
// scaled up 20%. The result is always in [0.01, 0.99].
func ShotXG(pos event.Position, onTarget bool) float64 {
	distance := distanceTo(pos, event.Position{X: goalX, Y: goalY})
	angle := math.Abs(math.Atan2(goalY-pos.Y, goalX-pos.X))

	xg := 1 / (1 + math.Exp(xgDistanceCoeff*distance-xgIntercept+xgAngleCoeff*angle))
	if onTarget {
		xg *= xgOnTargetBoost
	}
	return clamp(xg, xgFloor, xgCeil)
}

// ShotEventXG computes xG for a shot event, falling back to a low default
// when the shot carries no position.
func ShotEventXG(e *event.MatchEvent) float64 {
	if e.Position == nil {
		return 0.1
	}
	return ShotXG(*e.Position, e.OnTarget())
}

// PassSuccess estimates the completion probability of a pass from its
// length: p = 1 / (1 + k*length), clamped to [0,1]. Passes without both
// endpoints get the neutral 0.5.
func PassSuccess(from, to *event.Position) float64 {
	if from == nil || to == nil {
		return 0.5
	}
	length := distanceTo(*from, *to)
	return clamp(1/(1+passLengthCoeff*length), 0, 1)
}

// PlayerPerformance tallies a player's match events into performance
// metrics with a role-weighted score. Only events for the given player are
// expected in evs.
func PlayerPerformance(playerID, teamID, matchID string, role Role, evs []*event.MatchEvent) PlayerPerformanceMetrics {
	m := PlayerPerformanceMetrics{
		PlayerID:  playerID,
		TeamID:    teamID,
		MatchID:   matchID,
		Timestamp: time.Now().UTC(),
		Role:      role,
	}

	for _, e := range evs {
		switch e.Type {
		case event.TypeGoal:
			m.Goals++
		case event.TypeShot:
			m.Shots++
			if e.OnTarget() {
				m.ShotsOnTarget++
			}
			m.ExpectedGoals += ShotEventXG(e)
		case event.TypePass:
			m.PassesAttempted++
			if e.Outcome == "success" {
				m.PassesCompleted++
			}
			if flag(e.Metadata, "key_pass") {
				m.KeyPasses++
			}
			if isProgressivePass(e) {
				m.ProgressivePasses++
			}
		case event.TypeTackle:
			m.TacklesAttempted++
			if e.Outcome == "success" {
				m.TacklesWon++
			}
		}
		if flag(e.Metadata, "interception") {
			m.Interceptions++
		}
		if flag(e.Metadata, "clearance") {
			m.Clearances++
		}
		if flag(e.Metadata, "block") {
			m.Blocks++
		}
		if flag(e.Metadata, "assist") {
			m.Assists++
		}
	}

	if m.PassesAttempted > 0 {
		m.PassAccuracy = float64(m.PassesCompleted) / float64(m.PassesAttempted)
	}
	m.PerformanceScore = performanceScore(&m, role)
	return m
}

// MatchStats aggregates all match events into team-level statistics.
// Possession is estimated as each team's share of total passes.
func MatchStats(matchID, homeTeamID, awayTeamID string, evs []*event.MatchEvent) MatchStatistics {
	s := MatchStatistics{
		MatchID:        matchID,
		Timestamp:      time.Now().UTC(),
		HomeTeamID:     homeTeamID,
		AwayTeamID:     awayTeamID,
		HomePossession: 0.5,
		AwayPossession: 0.5,
	}

	var homePassOK, awayPassOK int
	for _, e := range evs {
		home := e.TeamID == homeTeamID
		switch e.Type {
		case event.TypeGoal:
			if home {
				s.HomeScore++
			} else {
				s.AwayScore++
			}
		case event.TypeShot:
			xg := ShotEventXG(e)
			if home {
				s.HomeShots++
				s.HomeXG += xg
				if e.OnTarget() {
					s.HomeShotsOnTarget++
				}
			} else {
				s.AwayShots++
				s.AwayXG += xg
				if e.OnTarget() {
					s.AwayShotsOnTarget++
				}
			}
		case event.TypePass:
			ok := e.Outcome == "success"
			if home {
				s.HomePasses++
				if ok {
					homePassOK++
				}
			} else {
				s.AwayPasses++
				if ok {
					awayPassOK++
				}
			}
		}
	}

	if s.HomePasses > 0 {
		s.HomePassAccuracy = float64(homePassOK) / float64(s.HomePasses)
	}
	if s.AwayPasses > 0 {
		s.AwayPassAccuracy = float64(awayPassOK) / float64(s.AwayPasses)
	}
	if total := s.HomePasses + s.AwayPasses; total > 0 {
		s.HomePossession = float64(s.HomePasses) / float64(total)
		s.AwayPossession = float64(s.AwayPasses) / float64(total)
	}
	return s
}

// performanceScore applies the role-weighted additive model, clamped to
// [0,10].
func performanceScore(m *PlayerPerformanceMetrics, role Role) float64 {
	score := baseScore

	switch role {
	case RoleGoalkeeper:
		score += math.Min(2.0, float64(m.Blocks)*0.5)

	case RoleDefender, RoleDefensiveMidfielder:
		score += math.Min(2.0, float64(m.TacklesWon)*0.2)
		score += math.Min(1.5, float64(m.Interceptions)*0.15)
		score += math.Min(1.0, float64(m.Clearances)*0.1)

	case RoleMidfielder, RoleAttackingMidfielder:
		score += math.Min(2.0, float64(m.PassesCompleted)*0.01)
		score += math.Min(1.5, float64(m.KeyPasses)*0.3)
		score += math.Min(1.0, float64(m.Goals)*0.5)
		score += math.Min(0.5, float64(m.Assists)*0.4)

	case RoleForward, RoleStriker, RoleWinger:
		score += math.Min(3.0, float64(m.Goals)*1.0)
		score += math.Min(2.0, float64(m.Assists)*0.8)
		score += math.Min(1.0, float64(m.ShotsOnTarget)*0.2)
		score += math.Min(0.5, m.ExpectedGoals*0.5)
	}

	if m.PassAccuracy > bonusThreshold {
		score += passAccuracyBonus
	}
	return clamp(score, 0, maxScore)
}

// isProgressivePass reports whether a pass moved the ball at least 10 units
// toward the goal line.
func isProgressivePass(e *event.MatchEvent) bool {
	if e.Position == nil || e.EndPosition == nil {
		return false
	}
	return e.EndPosition.X-e.Position.X >= progressivePassGain
}

func flag(meta map[string]any, key string) bool {
	if meta == nil {
		return false
	}
	b, ok := meta[key].(bool)
	return ok && b
}

func distanceTo(a, b event.Position) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
