package amqp

import (
	"encoding/json"
	"time"
)

// ChangeKind names the ledger mutation a ChangeEvent reports.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeDeleted ChangeKind = "deleted"
	ChangeCleared ChangeKind = "cleared"
)

// ChangeEvent tells listeners that the entry set changed and views derived
// from it are stale. ID and Month are empty for ChangeCleared.
type ChangeEvent struct {
	Kind      ChangeKind `json:"kind"`
	ID        string     `json:"id,omitempty"`
	Month     string     `json:"month,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewChangeEvent(kind ChangeKind, id, month string) *ChangeEvent {
	return &ChangeEvent{
		Kind:      kind,
		ID:        id,
		Month:     month,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeEventFromJSON creates an event from JSON bytes
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var msg ChangeEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
