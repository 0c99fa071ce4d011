package reversidto

import "time"

type EventType string

const (
	EventClaim EventType = "claim"
	EventMove  EventType = "move"
	// EventSync is sent by push transports as the first frame of a stream.
	EventSync EventType = "sync"
)

// Event is published to every subscriber of a session after a committed mutation.
type Event struct {
	Version   int       `json:"version"`
	Type      EventType `json:"type"`
	SessionID string    `json:"game_id"`
	Revision  uint64    `json:"revision"`
	Snapshot  Snapshot  `json:"state"`
	At        time.Time `json:"at"`
}
