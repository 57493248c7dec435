package notify

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/services/swaps/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/skillswap/internal/services/swaps/notify"

// Sessions is the fan-out surface of the session registry.
type Sessions interface {
	Deliver(userID string, payload []byte) int
	Broadcast(payload []byte) int
}

// Announcement is the payload of a platform-wide message.
type Announcement struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Dispatcher delivers routed messages on background goroutines. Publish
// never blocks on delivery and delivery failures are only logged.
type Dispatcher struct {
	sessions Sessions
	clock    func() time.Time
	tracer   trace.Tracer
	wg       sync.WaitGroup
}

var _ domain.Publisher = (*Dispatcher)(nil)

// NewDispatcher builds a dispatcher over sessions.
func NewDispatcher(sessions Sessions, clock func() time.Time) *Dispatcher {
	if clock == nil {
		clock = time.Now
	}
	return &Dispatcher{
		sessions: sessions,
		clock:    clock,
		tracer:   otel.Tracer(tracerName),
	}
}

// Publish schedules delivery of every message the event routes to.
func (d *Dispatcher) Publish(event domain.Event) {
	if d == nil || d.sessions == nil {
		return
	}
	for _, envelope := range Route(event) {
		d.wg.Add(1)
		go func(envelope Envelope) {
			defer d.wg.Done()
			d.deliver(envelope)
		}(envelope)
	}
}

// Announce schedules a broadcast of text to every connected user.
func (d *Dispatcher) Announce(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.New(apperrors.CodeAnnouncementEmpty, "announcement message is required")
	}
	if d == nil || d.sessions == nil {
		return nil
	}
	msg := Message{
		Type: TypeAnnouncement,
		Data: Announcement{Message: text, CreatedAt: d.clock().UTC()},
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.broadcast(msg)
	}()
	return nil
}

// Wait blocks until every scheduled delivery has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func (d *Dispatcher) deliver(envelope Envelope) {
	_, span := d.tracer.Start(context.Background(), "notify.deliver", trace.WithAttributes(
		attribute.String("message.type", envelope.Message.Type),
		attribute.String("user.id", envelope.UserID),
	))
	defer span.End()

	payload, err := json.Marshal(envelope.Message)
	if err != nil {
		span.RecordError(err)
		log.Printf("notify: encode %s for user %s: %v", envelope.Message.Type, envelope.UserID, err)
		return
	}
	delivered := d.sessions.Deliver(envelope.UserID, payload)
	span.SetAttributes(attribute.Int("connections.delivered", delivered))
}

func (d *Dispatcher) broadcast(msg Message) {
	_, span := d.tracer.Start(context.Background(), "notify.broadcast", trace.WithAttributes(
		attribute.String("message.type", msg.Type),
	))
	defer span.End()

	payload, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		log.Printf("notify: encode %s: %v", msg.Type, err)
		return
	}
	delivered := d.sessions.Broadcast(payload)
	span.SetAttributes(attribute.Int("connections.delivered", delivered))
}
