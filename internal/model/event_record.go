package model

import "encoding/json"

// Event names carried by EventRecord.
const (
	EventLaunchCreated = "launch_created"
	EventBought        = "bought"
	EventSold          = "sold"
)

// EventRecord is the JSON envelope written to event sinks.
type EventRecord struct {
	ID        string          `json:"id"`
	Sequence  uint64          `json:"sequence"`
	EventName string          `json:"event_name"`
	Launch    string          `json:"launch"`
	EmittedAt string          `json:"emitted_at"`
	Payload   json.RawMessage `json:"payload"`
}
