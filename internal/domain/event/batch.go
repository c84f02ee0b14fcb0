package event

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Batch groups events of a single match for bulk submission. Events are
// categorized by variant; the total is always derived from the lists, never
// stored independently, so the count invariant holds by construction.
type Batch struct {
	BatchID       string    `json:"batch_id"`
	MatchID       string    `json:"match_id"`
	IngestionTime time.Time `json:"ingestion_time"`

	MatchEvents         []*MatchEvent         `json:"match_events,omitempty"`
	TrackingEvents      []*TrackingEvent      `json:"tracking_events,omitempty"`
	PhysiologicalEvents []*PhysiologicalEvent `json:"physiological_events,omitempty"`
	GenericEvents       []*GenericEvent       `json:"generic_events,omitempty"`
}

// NewBatch categorizes events into a batch for matchID. Events belonging to
// other matches are rejected with a ValidationError.
func NewBatch(matchID string, events []Event) (*Batch, error) {
	b := &Batch{
		BatchID:       uuid.NewString(),
		MatchID:       matchID,
		IngestionTime: time.Now().UTC(),
	}
	for _, e := range events {
		if e.Head().MatchID != matchID {
			return nil, invalidf("match_id", "event %s belongs to match %s, batch is for %s",
				e.Head().EventID, e.Head().MatchID, matchID)
		}
		b.add(e)
	}
	return b, nil
}

func (b *Batch) add(e Event) {
	switch v := e.(type) {
	case *MatchEvent:
		b.MatchEvents = append(b.MatchEvents, v)
	case *TrackingEvent:
		b.TrackingEvents = append(b.TrackingEvents, v)
	case *PhysiologicalEvent:
		b.PhysiologicalEvents = append(b.PhysiologicalEvents, v)
	case *GenericEvent:
		b.GenericEvents = append(b.GenericEvents, v)
	}
}

// TotalEvents is the sum of the categorized lists.
func (b *Batch) TotalEvents() int {
	return len(b.MatchEvents) + len(b.TrackingEvents) +
		len(b.PhysiologicalEvents) + len(b.GenericEvents)
}

// Events flattens the batch back into a single list, match events first.
func (b *Batch) Events() []Event {
	out := make([]Event, 0, b.TotalEvents())
	for _, e := range b.MatchEvents {
		out = append(out, e)
	}
	for _, e := range b.TrackingEvents {
		out = append(out, e)
	}
	for _, e := range b.PhysiologicalEvents {
		out = append(out, e)
	}
	for _, e := range b.GenericEvents {
		out = append(out, e)
	}
	return out
}

// batchAlias strips the Batch methods so the wire struct does not recurse
// into MarshalJSON.
type batchAlias Batch

// batchWire mirrors Batch with the derived total included, so readers of the
// serialized form see the count without being able to desynchronize it.
type batchWire struct {
	batchAlias
	TotalEvents int `json:"total_events"`
}

// MarshalJSON includes the derived total_events field.
func (b *Batch) MarshalJSON() ([]byte, error) {
	return json.Marshal(batchWire{batchAlias: batchAlias(*b), TotalEvents: b.TotalEvents()})
}

// UnmarshalJSON discards any stored total; the count is always recomputed
// from the categorized lists.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var w batchWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Batch(w.batchAlias)
	return nil
}
