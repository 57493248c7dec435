// Package notify turns committed workflow events into typed messages and
// pushes them to the recipients' live sessions.
package notify

import "github.com/louisbranch/skillswap/internal/services/swaps/domain"

// Message types sent over a session.
const (
	TypeSwapUpdate     = "swap_update"
	TypeNewRequest     = "new_request"
	TypeRatingReceived = "rating_received"
	TypeAnnouncement   = "announcement"
)

// Message is the JSON envelope written to a session.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Envelope addresses one message to one user.
type Envelope struct {
	UserID  string
	Message Message
}

// Route maps an event to the messages it produces. It has no side effects.
//
// A new request goes to the responder, a status update to both participants
// so every session of the acting user stays in sync, and a rating to the
// rated user.
func Route(event domain.Event) []Envelope {
	switch event.Kind {
	case domain.EventSwapCreated:
		if event.Swap == nil {
			return nil
		}
		return []Envelope{{
			UserID:  event.Swap.ResponderID,
			Message: Message{Type: TypeNewRequest, Data: *event.Swap},
		}}
	case domain.EventSwapUpdated:
		if event.Swap == nil {
			return nil
		}
		msg := Message{Type: TypeSwapUpdate, Data: *event.Swap}
		return []Envelope{
			{UserID: event.Swap.RequesterID, Message: msg},
			{UserID: event.Swap.ResponderID, Message: msg},
		}
	case domain.EventRatingReceived:
		if event.Rating == nil {
			return nil
		}
		return []Envelope{{
			UserID:  event.Rating.RatedID,
			Message: Message{Type: TypeRatingReceived, Data: *event.Rating},
		}}
	default:
		return nil
	}
}
