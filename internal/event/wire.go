package event

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire form of an event: a type discriminator plus the
// variant's own fields. The gateway frames envelopes onto its transport
// without knowing the variants.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalWire encodes an event as a type-discriminated JSON object.
func MarshalWire(ev Event) ([]byte, error) {
	var typ string
	switch ev.(type) {
	case StateEvent, *StateEvent:
		typ = "state"
	case PlanEvent, *PlanEvent:
		typ = "plan"
	case TargetsEvent, *TargetsEvent:
		typ = "targets"
	case SectionEvent, *SectionEvent:
		typ = "section"
	case DeltaEvent, *DeltaEvent:
		typ = "delta"
	case FinalEvent, *FinalEvent:
		typ = "final"
	default:
		return nil, fmt.Errorf("event: unknown variant %T", ev)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: typ, Data: data})
}

// UnmarshalWire decodes a type-discriminated JSON object back into an event.
func UnmarshalWire(b []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "state":
		var ev StateEvent
		return ev, json.Unmarshal(env.Data, &ev)
	case "plan":
		var ev PlanEvent
		return ev, json.Unmarshal(env.Data, &ev)
	case "targets":
		var ev TargetsEvent
		return ev, json.Unmarshal(env.Data, &ev)
	case "section":
		var ev SectionEvent
		return ev, json.Unmarshal(env.Data, &ev)
	case "delta":
		var ev DeltaEvent
		return ev, json.Unmarshal(env.Data, &ev)
	case "final":
		var ev FinalEvent
		return ev, json.Unmarshal(env.Data, &ev)
	}
	return nil, fmt.Errorf("event: unknown wire type %q", env.Type)
}
