package domain

import (
	"encoding/json"
	"fmt"
)

type eventJSON struct {
	Status    Status    `json:"status"`
	Timestamp string    `json:"timestamp"`
	User      Developer `json:"user"`
	BlockedBy Developer `json:"blockedBy,omitempty"`
}

func (e TransitionEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		Status:    e.Status,
		Timestamp: FormatTime(e.Timestamp),
		User:      e.User,
		BlockedBy: e.BlockedBy,
	})
}

func (e *TransitionEvent) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := ParseTime(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("event timestamp: %w", err)
	}
	*e = TransitionEvent{Status: raw.Status, Timestamp: ts, User: raw.User, BlockedBy: raw.BlockedBy}
	return nil
}

// EncodeEventLog renders an event log as the JSON array stored in the Event_Log column.
func EncodeEventLog(events []TransitionEvent) (string, error) {
	if events == nil {
		events = []TransitionEvent{}
	}
	b, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("marshal event log: %w", err)
	}
	return string(b), nil
}

// DecodeEventLog parses an Event_Log cell.
func DecodeEventLog(s string) ([]TransitionEvent, error) {
	var events []TransitionEvent
	if err := json.Unmarshal([]byte(s), &events); err != nil {
		return nil, fmt.Errorf("invalid event log: %w", err)
	}
	return events, nil
}
