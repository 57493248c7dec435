package domain

// EventKind names a committed workflow change.
type EventKind string

const (
	// EventSwapCreated is emitted after a new pending request is stored.
	EventSwapCreated EventKind = "swap.created"
	// EventSwapUpdated is emitted after a direct status transition.
	EventSwapUpdated EventKind = "swap.updated"
	// EventRatingReceived is emitted after a rating completes a swap.
	EventRatingReceived EventKind = "rating.received"
)

// Event describes one committed change. Swap is set for swap events and
// Rating for rating events.
type Event struct {
	Kind   EventKind
	Swap   *SwapView
	Rating *RatingView
}

// Publisher receives events after their transaction commits. Implementations
// must not block the caller on delivery.
type Publisher interface {
	Publish(event Event)
}

type discardPublisher struct{}

func (discardPublisher) Publish(Event) {}
