package market

import "github.com/google/uuid"

// EventType labels a market lifecycle event.
type EventType string

const (
	EventMarketCreated     EventType = "market_created"
	EventBetPlaced         EventType = "bet_placed"
	EventMarketClosed      EventType = "market_closed"
	EventResolutionPending EventType = "resolution_pending"
	EventMarketResolved    EventType = "market_resolved"
	EventMarketSettled     EventType = "market_settled"
	EventPayoutClaimed     EventType = "payout_claimed"
)

// EventDetail carries the operation-specific fields of an event.
type EventDetail struct {
	Participant string     `json:"participant,omitempty"`
	Side        Side       `json:"side,omitempty"`
	Amount      uint64     `json:"amount,omitempty"`
	RequestID   *uuid.UUID `json:"request_id,omitempty"`
}

// Event is published after a state mutation commits. The snapshot is taken
// under the market lock, so observers always see a consistent view.
type Event struct {
	Type   EventType    `json:"type"`
	Market Snapshot     `json:"market"`
	Detail *EventDetail `json:"detail,omitempty"`
}
