// Package threat scores the attacking danger of a match situation from
// spatial context and values defensive actions by the threat they remove
// (DAxT).
//
// Like the analytics package, everything here is a pure function of its
// inputs and fully deterministic.
package threat

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kioko/matchpulse/internal/domain/event"
)

// Spatial model constants.
const (
	goalX = event.PitchMaxX
	goalY = event.PitchMaxY / 2

	distanceDecay = 0.05
	nearbyRadius  = 10.0

	penaltyAreaX    = 102.0
	penaltyAreaYLow = 22.0
	penaltyAreaYHi  = 58.0
	penaltyAreaBump = 1.5
)

// DAxT outcome multipliers applied to the pre-action threat.
const (
	regainedFactor   = 0.1
	successfulFactor = 0.5
	failedFactor     = 1.2
)

// Level buckets a numeric threat value.
type Level string

// Threat levels, highest first.
const (
	LevelCritical Level = "critical" // > 0.8
	LevelHigh     Level = "high"     // 0.6 - 0.8
	LevelMedium   Level = "medium"   // 0.4 - 0.6
	LevelLow      Level = "low"      // 0.2 - 0.4
	LevelMinimal  Level = "minimal"  // < 0.2
)

// ActionType tags a defensive action.
type ActionType string

// Defensive action types.
const (
	ActionTackle       ActionType = "tackle"
	ActionInterception ActionType = "interception"
	ActionClearance    ActionType = "clearance"
	ActionBlock        ActionType = "block"
	ActionPressure     ActionType = "pressure"
	ActionAerialDuel   ActionType = "aerial_duel"
)

// Assessment is a point-in-time threat evaluation for a match situation.
type Assessment struct {
	AssessmentID string    `json:"assessment_id"`
	MatchID      string    `json:"match_id"`
	Timestamp    time.Time `json:"timestamp"`

	AttackingTeamID string `json:"attacking_team_id"`
	DefendingTeamID string `json:"defending_team_id"`

	BallX float64 `json:"ball_x"`
	BallY float64 `json:"ball_y"`

	ThreatValue       float64 `json:"threat_value"`
	ThreatLevel       Level   `json:"threat_level"`
	ExpectedGoalValue float64 `json:"expected_goal_value"`

	DistanceToGoal  float64 `json:"distance_to_goal"`
	AngleToGoal     float64 `json:"angle_to_goal"`
	DefendersNearby int     `json:"defenders_nearby"`
	AttackersNearby int     `json:"attackers_nearby"`

	RecommendedActions []string `json:"recommended_actions,omitempty"`
}

// DefensiveAction records a defensive intervention and its DAxT value: the
// threat reduction attributable to the action. The reduction is negative
// when a failed action made the situation worse.
type DefensiveAction struct {
	ActionID  string    `json:"action_id"`
	MatchID   string    `json:"match_id"`
	Timestamp time.Time `json:"timestamp"`

	PlayerID string     `json:"player_id"`
	TeamID   string     `json:"team_id"`
	Type     ActionType `json:"action_type"`

	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`

	ThreatBefore    float64 `json:"threat_before"`
	ThreatAfter     float64 `json:"threat_after"`
	ThreatReduction float64 `json:"threat_reduction"`

	Successful         bool `json:"successful"`
	PossessionRegained bool `json:"possession_regained"`
}

// Assess evaluates the attacking threat of the current ball position given
// both rosters' tracking samples. The value combines four multiplicative
// factors: inverse distance to goal, shooting angle, the local
// attacker/defender ratio inside a 10-unit radius, and a 1.5x bump inside
// the penalty area; the result is clamped to [0,1].
func Assess(matchID, attackingTeamID, defendingTeamID string, ball event.Position, attackers, defenders []*event.TrackingEvent) Assessment {
	distance := distanceBetween(ball, event.Position{X: goalX, Y: goalY})
	angle := angleToGoal(ball)

	attackersNearby := countNearby(ball, attackers, nearbyRadius)
	defendersNearby := countNearby(ball, defenders, nearbyRadius)

	value := threatValue(ball, distance, angle, defendersNearby, attackersNearby)

	return Assessment{
		AssessmentID:       uuid.NewString(),
		MatchID:            matchID,
		Timestamp:          time.Now().UTC(),
		AttackingTeamID:    attackingTeamID,
		DefendingTeamID:    defendingTeamID,
		BallX:              ball.X,
		BallY:              ball.Y,
		ThreatValue:        value,
		ThreatLevel:        Categorize(value),
		ExpectedGoalValue:  positionXG(distance, angle),
		DistanceToGoal:     distance,
		AngleToGoal:        angle,
		DefendersNearby:    defendersNearby,
		AttackersNearby:    attackersNearby,
		RecommendedActions: recommendations(Categorize(value), defendersNearby, attackersNearby, ball),
	}
}

// ActionInput describes a defensive intervention to value.
type ActionInput struct {
	MatchID  string
	PlayerID string
	TeamID   string
	Type     ActionType
	Position event.Position

	ThreatBefore       float64
	Successful         bool
	PossessionRegained bool
}

// DefensiveActionValue computes the DAxT value of an action. Regaining
// possession collapses the threat to 10% of its prior value, a successful
// action without the ball halves it, and a failed action raises it 20%.
func DefensiveActionValue(in ActionInput) DefensiveAction {
	var after float64
	switch {
	case in.Successful && in.PossessionRegained:
		after = math.Max(0, in.ThreatBefore*regainedFactor)
	case in.Successful:
		after = math.Max(0, in.ThreatBefore*successfulFactor)
	default:
		after = math.Min(1, in.ThreatBefore*failedFactor)
	}

	return DefensiveAction{
		ActionID:           uuid.NewString(),
		MatchID:            in.MatchID,
		Timestamp:          time.Now().UTC(),
		PlayerID:           in.PlayerID,
		TeamID:             in.TeamID,
		Type:               in.Type,
		PositionX:          in.Position.X,
		PositionY:          in.Position.Y,
		ThreatBefore:       in.ThreatBefore,
		ThreatAfter:        after,
		ThreatReduction:    in.ThreatBefore - after,
		Successful:         in.Successful,
		PossessionRegained: in.PossessionRegained,
	}
}

// Categorize buckets a threat value into its five-level classification.
func Categorize(value float64) Level {
	switch {
	case value > 0.8:
		return LevelCritical
	case value > 0.6:
		return LevelHigh
	case value > 0.4:
		return LevelMedium
	case value > 0.2:
		return LevelLow
	default:
		return LevelMinimal
	}
}

// InPenaltyArea reports whether pos lies inside the attacked penalty area.
func InPenaltyArea(pos event.Position) bool {
	return pos.X >= penaltyAreaX && pos.Y >= penaltyAreaYLow && pos.Y <= penaltyAreaYHi
}

func threatValue(ball event.Position, distance, angle float64, defendersNearby, attackersNearby int) float64 {
	distanceThreat := 1 / (1 + distanceDecay*distance)
	angleFactor := 1 - angle/90

	playerFactor := 1.0
	if defendersNearby > 0 {
		playerFactor = float64(attackersNearby) / float64(attackersNearby+defendersNearby)
	}

	positionFactor := 1.0
	if InPenaltyArea(ball) {
		positionFactor = penaltyAreaBump
	}

	v := distanceThreat * angleFactor * playerFactor * positionFactor
	return math.Min(math.Max(v, 0), 1)
}

// positionXG is the situational expected-goal value: the shot model with the
// angle expressed as a fraction of 90 degrees.
func positionXG(distance, angle float64) float64 {
	xg := 1 / (1 + math.Exp(0.1*distance-3+0.5*angle/90))
	return math.Min(math.Max(xg, 0), 1)
}

// angleToGoal returns the absolute angle to the goal center in degrees.
func angleToGoal(pos event.Position) float64 {
	dx := goalX - pos.X
	dy := goalY - pos.Y
	return math.Atan2(math.Abs(dy), dx) * 180 / math.Pi
}

func countNearby(center event.Position, players []*event.TrackingEvent, radius float64) int {
	n := 0
	for _, p := range players {
		if distanceBetween(center, p.Position) <= radius {
			n++
		}
	}
	return n
}

func distanceBetween(a, b event.Position) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func recommendations(level Level, defendersNearby, attackersNearby int, ball event.Position) []string {
	var recs []string
	switch level {
	case LevelCritical, LevelHigh:
		if defendersNearby < attackersNearby {
			recs = append(recs, "urgent: send additional defenders")
		}
		if ball.X > 100 {
			recs = append(recs, "priority: prevent shot on goal")
		}
		recs = append(recs, "maintain compact defensive shape")
	case LevelMedium:
		recs = append(recs, "apply moderate pressure", "track attacking runs")
	case LevelLow:
		recs = append(recs, "maintain defensive position")
	case LevelMinimal:
		// no action needed
	}
	return recs
}
