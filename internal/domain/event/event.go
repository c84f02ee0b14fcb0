// Package event defines the closed set of typed event variants flowing
// through the pipeline: match events, player tracking samples, physiological
// readings and a generic passthrough for tags without a dedicated shape.
//
// Events are immutable once constructed; downstream stages enrich copies
// rather than mutating records in place. Construction and decoding validate
// every field invariant and fail with a *ValidationError naming the
// offending field.
package event

import (
	"time"
)

// Pitch geometry constants. Coordinates follow the standard 120x80 grid
// with the attacked goal centered at (120, 40).
const (
	PitchMaxX = 120.0
	PitchMaxY = 80.0
)

// Type tags the event variant on the wire. The set is closed; decoding an
// unlisted tag fails with a ValidationError.
type Type string

// Match event tags.
const (
	TypeGoal         Type = "goal"
	TypeShot         Type = "shot"
	TypePass         Type = "pass"
	TypeTackle       Type = "tackle"
	TypeFoul         Type = "foul"
	TypeCardYellow   Type = "card_yellow"
	TypeCardRed      Type = "card_red"
	TypeSubstitution Type = "substitution"
	TypeCorner       Type = "corner"
	TypeFreeKick     Type = "free_kick"
	TypePenalty      Type = "penalty"
	TypeOffside      Type = "offside"
)

// Tracking event tags.
const (
	TypePlayerPosition Type = "player_position"
	TypeBallPosition   Type = "ball_position"
)

// Physiological event tags.
const (
	TypeHeartRate        Type = "heart_rate"
	TypeDistanceCovered  Type = "distance_covered"
	TypeSprint           Type = "sprint"
	TypeFatigueIndicator Type = "fatigue_indicator"
)

// Class groups tags by the variant that carries them.
type Class int

// Variant classes, in dispatch order.
const (
	ClassUnknown Class = iota
	ClassMatch
	ClassTracking
	ClassPhysiological
	ClassGeneric
)

// Class returns the variant class for the tag, or ClassUnknown for tags
// outside the closed set.
func (t Type) Class() Class {
	switch t {
	case TypeGoal, TypeShot, TypePass, TypeTackle, TypeFoul,
		TypeCardYellow, TypeCardRed, TypeSubstitution,
		TypeCorner, TypeFreeKick, TypePenalty, TypeOffside:
		return ClassMatch
	case TypePlayerPosition:
		return ClassTracking
	case TypeHeartRate, TypeDistanceCovered, TypeSprint, TypeFatigueIndicator:
		return ClassPhysiological
	case TypeBallPosition:
		return ClassGeneric
	default:
		return ClassUnknown
	}
}

// Valid reports whether the tag belongs to the closed enumeration.
func (t Type) Valid() bool {
	return t.Class() != ClassUnknown
}

// Position is a point on the pitch.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Validate checks the pitch coordinate bounds.
func (p Position) Validate(field string) error {
	if p.X < 0 || p.X > PitchMaxX {
		return invalidf(field+".x", "must be in [0,%v], got %v", PitchMaxX, p.X)
	}
	if p.Y < 0 || p.Y > PitchMaxY {
		return invalidf(field+".y", "must be in [0,%v], got %v", PitchMaxY, p.Y)
	}
	return nil
}

// Velocity is a 2D velocity vector with its scalar speed.
type Velocity struct {
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	Speed float64 `json:"speed"`
}

// Validate checks that speed is non-negative.
func (v Velocity) Validate(field string) error {
	if v.Speed < 0 {
		return invalidf(field+".speed", "must be non-negative, got %v", v.Speed)
	}
	return nil
}

// Header carries the fields common to every variant. IngestionTime is set by
// the producer when the record enters the stream; it is absent on records
// fresh from the data source.
type Header struct {
	EventID       string     `json:"event_id"`
	MatchID       string     `json:"match_id"`
	Timestamp     time.Time  `json:"timestamp"`
	Type          Type       `json:"event_type"`
	IngestionTime *time.Time `json:"ingestion_time,omitempty"`
}

func (h Header) validate() error {
	if h.EventID == "" {
		return invalid("event_id", "must not be empty")
	}
	if h.MatchID == "" {
		return invalid("match_id", "must not be empty")
	}
	if h.Timestamp.IsZero() {
		return invalid("timestamp", "must be set")
	}
	if !h.Type.Valid() {
		return invalidf("event_type", "%q is not a recognized tag", string(h.Type))
	}
	return nil
}

// WithIngestionTime returns a copy of the header stamped at t.
func (h Header) WithIngestionTime(t time.Time) Header {
	h.IngestionTime = &t
	return h
}

// Event is the sealed union over the variants. Only the types in this
// package implement it, so a switch over the variants is exhaustive.
type Event interface {
	Head() Header
	Validate() error

	variant()
}

// MatchEvent is an on-ball occurrence during play: shots, passes, tackles,
// cards and the rest of the match tags.
type MatchEvent struct {
	Header

	Period int `json:"period"`
	Minute int `json:"minute"`
	Second int `json:"second"`

	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name,omitempty"`

	PlayerID   string `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`

	Position    *Position `json:"position,omitempty"`
	EndPosition *Position `json:"end_position,omitempty"`

	Outcome  string         `json:"outcome,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (*MatchEvent) variant() {}

// Head returns the common header.
func (e *MatchEvent) Head() Header { return e.Header }

// Validate checks all field invariants.
func (e *MatchEvent) Validate() error {
	if err := e.Header.validate(); err != nil {
		return err
	}
	if e.Type.Class() != ClassMatch {
		return invalidf("event_type", "%q is not a match tag", string(e.Type))
	}
	if e.Period < 1 || e.Period > 5 {
		return invalidf("period", "must be in [1,5], got %d", e.Period)
	}
	if e.Minute < 0 || e.Minute > 120 {
		return invalidf("minute", "must be in [0,120], got %d", e.Minute)
	}
	if e.Second < 0 || e.Second > 59 {
		return invalidf("second", "must be in [0,59], got %d", e.Second)
	}
	if e.TeamID == "" {
		return invalid("team_id", "must not be empty")
	}
	if e.Position != nil {
		if err := e.Position.Validate("position"); err != nil {
			return err
		}
	}
	if e.EndPosition != nil {
		if err := e.EndPosition.Validate("end_position"); err != nil {
			return err
		}
	}
	return nil
}

// OnTarget reports whether a shot was on target, either via its outcome or
// the on_target metadata flag.
func (e *MatchEvent) OnTarget() bool {
	if e.Outcome == "success" {
		return true
	}
	if v, ok := e.Metadata["on_target"]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// TrackingEvent is a positional sample for a single player.
type TrackingEvent struct {
	Header

	PlayerID     string `json:"player_id"`
	TeamID       string `json:"team_id"`
	JerseyNumber int    `json:"jersey_number"`

	Position Position  `json:"position"`
	Velocity *Velocity `json:"velocity,omitempty"`

	Period       int  `json:"period"`
	FrameID      int  `json:"frame_id"`
	InPossession bool `json:"in_possession"`
}

func (*TrackingEvent) variant() {}

// Head returns the common header.
func (e *TrackingEvent) Head() Header { return e.Header }

// Validate checks all field invariants.
func (e *TrackingEvent) Validate() error {
	if err := e.Header.validate(); err != nil {
		return err
	}
	if e.Type.Class() != ClassTracking {
		return invalidf("event_type", "%q is not a tracking tag", string(e.Type))
	}
	if e.JerseyNumber < 1 || e.JerseyNumber > 99 {
		return invalidf("jersey_number", "must be in [1,99], got %d", e.JerseyNumber)
	}
	if err := e.Position.Validate("position"); err != nil {
		return err
	}
	if e.Velocity != nil {
		if err := e.Velocity.Validate("velocity"); err != nil {
			return err
		}
	}
	return nil
}

// PhysiologicalEvent is a wearable reading for a single player.
type PhysiologicalEvent struct {
	Header

	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`

	HeartRate *int `json:"heart_rate,omitempty"`

	DistanceCovered float64 `json:"distance_covered,omitempty"`
	FatigueIndex    float64 `json:"fatigue_index,omitempty"`
	MaxSpeed        float64 `json:"max_speed,omitempty"`
	AvgSpeed        float64 `json:"avg_speed,omitempty"`
}

func (*PhysiologicalEvent) variant() {}

// Head returns the common header.
func (e *PhysiologicalEvent) Head() Header { return e.Header }

// Validate checks all field invariants.
func (e *PhysiologicalEvent) Validate() error {
	if err := e.Header.validate(); err != nil {
		return err
	}
	if e.Type.Class() != ClassPhysiological {
		return invalidf("event_type", "%q is not a physiological tag", string(e.Type))
	}
	if e.HeartRate != nil && (*e.HeartRate < 40 || *e.HeartRate > 220) {
		return invalidf("heart_rate", "must be in [40,220], got %d", *e.HeartRate)
	}
	if e.DistanceCovered < 0 {
		return invalidf("distance_covered", "must be non-negative, got %v", e.DistanceCovered)
	}
	if e.FatigueIndex < 0 || e.FatigueIndex > 1 {
		return invalidf("fatigue_index", "must be in [0,1], got %v", e.FatigueIndex)
	}
	if e.MaxSpeed < 0 {
		return invalidf("max_speed", "must be non-negative, got %v", e.MaxSpeed)
	}
	if e.AvgSpeed < 0 {
		return invalidf("avg_speed", "must be non-negative, got %v", e.AvgSpeed)
	}
	return nil
}

// GenericEvent carries tags from the closed set that have no dedicated
// variant shape (currently ball_position). Fields pass through untouched.
type GenericEvent struct {
	Header

	Fields map[string]any `json:"fields,omitempty"`
}

func (*GenericEvent) variant() {}

// Head returns the common header.
func (e *GenericEvent) Head() Header { return e.Header }

// Validate checks the header invariants.
func (e *GenericEvent) Validate() error {
	if err := e.Header.validate(); err != nil {
		return err
	}
	if e.Type.Class() != ClassGeneric {
		return invalidf("event_type", "%q does not route to the generic variant", string(e.Type))
	}
	return nil
}
