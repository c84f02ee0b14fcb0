package event

import (
	"time"

	json "github.com/goccy/go-json"
)

// Header keys stripped from the flat wire object when decoding a generic
// event's passthrough fields.
var headerKeys = map[string]struct{}{
	"event_id":       {},
	"match_id":       {},
	"timestamp":      {},
	"event_type":     {},
	"ingestion_time": {},
}

// Encode serializes an event to its wire form. The result decodes back to
// an identical event.
func Encode(e Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Decode parses a wire payload into its typed variant, validating every
// field invariant. The dispatch is exhaustive over the closed tag set;
// unlisted tags fail with a *ValidationError on event_type.
func Decode(data []byte) (Event, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	var head struct {
		Type Type `json:"event_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var e Event
	switch head.Type.Class() {
	case ClassMatch:
		e = &MatchEvent{}
	case ClassTracking:
		e = &TrackingEvent{}
	case ClassPhysiological:
		e = &PhysiologicalEvent{}
	case ClassGeneric:
		e = &GenericEvent{}
	case ClassUnknown:
		return nil, invalidf("event_type", "%q is not a recognized tag", string(head.Type))
	}

	if err := json.Unmarshal(data, e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// MarshalJSON flattens the passthrough fields next to the header so generic
// events keep the same flat wire shape as the other variants.
func (e *GenericEvent) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Fields)+5)
	for k, v := range e.Fields {
		flat[k] = v
	}
	flat["event_id"] = e.EventID
	flat["match_id"] = e.MatchID
	flat["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	flat["event_type"] = e.Type
	if e.IngestionTime != nil {
		flat["ingestion_time"] = e.IngestionTime.Format(time.RFC3339Nano)
	}
	return json.Marshal(flat)
}

// UnmarshalJSON splits the flat wire object into header fields and the
// passthrough remainder.
func (e *GenericEvent) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &e.Header); err != nil {
		return err
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	for k := range headerKeys {
		delete(flat, k)
	}
	if len(flat) > 0 {
		e.Fields = flat
	}
	return nil
}
