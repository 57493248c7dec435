package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/id"
	"github.com/louisbranch/skillswap/internal/services/swaps/storage"
)

// MaxMessageLength caps the optional note attached to a swap request, in runes.
const MaxMessageLength = 500

// CreateInput describes a new swap request.
type CreateInput struct {
	ResponderID    string
	OfferedSkillID string
	WantedSkillID  string
	Message        string
}

// Workflow applies swap request lifecycle operations.
type Workflow struct {
	store     Store
	publisher Publisher
	clock     func() time.Time
	newID     func() (string, error)
}

// NewWorkflow constructs the swap workflow. A nil publisher discards events.
func NewWorkflow(store Store, publisher Publisher, clock func() time.Time, newID func() (string, error)) *Workflow {
	if publisher == nil {
		publisher = discardPublisher{}
	}
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Workflow{
		store:     store,
		publisher: publisher,
		clock:     clock,
		newID:     newID,
	}
}

// Create stores a pending swap request from requesterID to input.ResponderID
// and notifies the responder.
func (w *Workflow) Create(ctx context.Context, requesterID string, input CreateInput) (SwapView, error) {
	if w == nil || w.store == nil {
		return SwapView{}, ErrStoreNotConfigured
	}
	requesterID = strings.TrimSpace(requesterID)
	responderID := strings.TrimSpace(input.ResponderID)
	offeredSkillID := strings.TrimSpace(input.OfferedSkillID)
	wantedSkillID := strings.TrimSpace(input.WantedSkillID)
	message := strings.TrimSpace(input.Message)

	if responderID == requesterID {
		return SwapView{}, apperrors.New(apperrors.CodeSwapSelfRequest, "cannot request a swap with yourself")
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return SwapView{}, apperrors.WithMetadata(apperrors.CodeSwapMessageTooLong, "message is too long", map[string]string{
			"max_length": fmt.Sprint(MaxMessageLength),
		})
	}

	if _, err := w.store.GetUser(ctx, requesterID); err != nil {
		return SwapView{}, storeLookup(err, apperrors.CodeNotFound, "requester not found")
	}
	if _, err := w.store.GetUser(ctx, responderID); err != nil {
		return SwapView{}, storeLookup(err, apperrors.CodeSwapResponderNotFound, "responder not found")
	}
	if _, err := w.store.GetSkill(ctx, offeredSkillID); err != nil {
		return SwapView{}, storeLookup(err, apperrors.CodeSwapSkillNotFound, "offered skill not found")
	}
	if _, err := w.store.GetSkill(ctx, wantedSkillID); err != nil {
		return SwapView{}, storeLookup(err, apperrors.CodeSwapSkillNotFound, "wanted skill not found")
	}

	offers, err := w.store.UserOffersSkill(ctx, requesterID, offeredSkillID)
	if err != nil {
		return SwapView{}, fmt.Errorf("check requester skills: %w", err)
	}
	if !offers {
		return SwapView{}, apperrors.New(apperrors.CodeSwapOfferedSkillNotOwned, "you don't offer this skill")
	}
	offers, err = w.store.UserOffersSkill(ctx, responderID, wantedSkillID)
	if err != nil {
		return SwapView{}, fmt.Errorf("check responder skills: %w", err)
	}
	if !offers {
		return SwapView{}, apperrors.New(apperrors.CodeSwapWantedSkillNotOffered, "the other user doesn't offer this skill")
	}

	_, err = w.store.FindPendingSwap(ctx, requesterID, responderID, offeredSkillID, wantedSkillID)
	switch {
	case err == nil:
		return SwapView{}, apperrors.New(apperrors.CodeSwapPendingExists, "a pending request for this swap already exists")
	case !errors.Is(err, storage.ErrNotFound):
		return SwapView{}, fmt.Errorf("check pending swap: %w", err)
	}

	swapID, err := w.newID()
	if err != nil {
		return SwapView{}, err
	}
	now := w.clock().UTC()
	record := storage.SwapRecord{
		ID:             swapID,
		RequesterID:    requesterID,
		ResponderID:    responderID,
		OfferedSkillID: offeredSkillID,
		WantedSkillID:  wantedSkillID,
		Status:         string(StatusPending),
		Message:        message,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// Views are built before writing: a committed change is never reported
	// as failed.
	view, err := newViewBuilder(w.store).swap(ctx, record)
	if err != nil {
		return SwapView{}, err
	}
	if err := w.store.PutSwap(ctx, record); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return SwapView{}, apperrors.Wrap(apperrors.CodeSwapPendingExists, "a pending request for this swap already exists", err)
		}
		return SwapView{}, fmt.Errorf("put swap: %w", err)
	}
	w.publisher.Publish(Event{Kind: EventSwapCreated, Swap: &view})
	return view, nil
}

// Transition applies a direct status change requested by actorID and
// notifies both participants.
func (w *Workflow) Transition(ctx context.Context, actorID string, swapID string, requested Status) (SwapView, error) {
	if w == nil || w.store == nil {
		return SwapView{}, ErrStoreNotConfigured
	}
	actorID = strings.TrimSpace(actorID)

	record, err := w.store.GetSwap(ctx, strings.TrimSpace(swapID))
	if err != nil {
		return SwapView{}, storeLookup(err, apperrors.CodeSwapNotFound, "swap request not found")
	}
	role := RoleOf(record.RequesterID, record.ResponderID, actorID)
	if role == RoleNone {
		return SwapView{}, apperrors.New(apperrors.CodeSwapNotParticipant, "not authorized to update this swap")
	}
	current := Status(record.Status)
	if current != StatusPending {
		return SwapView{}, apperrors.WithMetadata(apperrors.CodeSwapNotPending, "can only update pending swap requests", map[string]string{
			"status": string(current),
		})
	}
	required, ok := RequiredRole(current, requested)
	if !ok {
		return SwapView{}, apperrors.WithMetadata(apperrors.CodeSwapStatusNotAllowed, "invalid status update", map[string]string{
			"status": string(requested),
		})
	}
	if role != required {
		return SwapView{}, apperrors.WithMetadata(apperrors.CodeSwapRoleForbidden, "only the "+required.String()+" can set status "+string(requested), map[string]string{
			"required_role": required.String(),
		})
	}

	now := w.clock().UTC()
	updated := record
	updated.Status = string(requested)
	updated.UpdatedAt = now
	view, err := newViewBuilder(w.store).swap(ctx, updated)
	if err != nil {
		return SwapView{}, err
	}
	if err := w.store.UpdateSwapStatus(ctx, record.ID, string(current), string(requested), now); err != nil {
		switch {
		case errors.Is(err, storage.ErrPreconditionFailed):
			return SwapView{}, apperrors.Wrap(apperrors.CodeSwapNotPending, "can only update pending swap requests", err)
		case errors.Is(err, storage.ErrNotFound):
			return SwapView{}, apperrors.Wrap(apperrors.CodeSwapNotFound, "swap request not found", err)
		default:
			return SwapView{}, fmt.Errorf("update swap status: %w", err)
		}
	}
	w.publisher.Publish(Event{Kind: EventSwapUpdated, Swap: &view})
	return view, nil
}

// Delete removes a pending request. Only the requester may delete.
func (w *Workflow) Delete(ctx context.Context, actorID string, swapID string) error {
	if w == nil || w.store == nil {
		return ErrStoreNotConfigured
	}
	actorID = strings.TrimSpace(actorID)

	record, err := w.store.GetSwap(ctx, strings.TrimSpace(swapID))
	if err != nil {
		return storeLookup(err, apperrors.CodeSwapNotFound, "swap request not found")
	}
	if RoleOf(record.RequesterID, record.ResponderID, actorID) != RoleRequester {
		return apperrors.New(apperrors.CodeSwapRoleForbidden, "only the requester can delete")
	}
	if Status(record.Status) != StatusPending {
		return apperrors.New(apperrors.CodeSwapNotPending, "can only delete pending swap requests")
	}
	if err := w.store.DeleteSwap(ctx, record.ID, string(StatusPending)); err != nil {
		switch {
		case errors.Is(err, storage.ErrPreconditionFailed):
			return apperrors.Wrap(apperrors.CodeSwapNotPending, "can only delete pending swap requests", err)
		case errors.Is(err, storage.ErrNotFound):
			return apperrors.Wrap(apperrors.CodeSwapNotFound, "swap request not found", err)
		default:
			return fmt.Errorf("delete swap: %w", err)
		}
	}
	return nil
}

// MyEntries lists every swap the user takes part in, bucketed by status.
func (w *Workflow) MyEntries(ctx context.Context, userID string) (Entries, error) {
	if w == nil || w.store == nil {
		return Entries{}, ErrStoreNotConfigured
	}
	records, err := w.store.ListSwapsByParticipant(ctx, strings.TrimSpace(userID))
	if err != nil {
		return Entries{}, fmt.Errorf("list swaps: %w", err)
	}

	entries := Entries{
		Pending:   []SwapView{},
		Accepted:  []SwapView{},
		Completed: []SwapView{},
		History:   []SwapView{},
	}
	builder := newViewBuilder(w.store)
	for _, record := range records {
		view, err := builder.swap(ctx, record)
		if err != nil {
			return Entries{}, err
		}
		switch view.Status {
		case StatusPending:
			entries.Pending = append(entries.Pending, view)
		case StatusAccepted:
			entries.Accepted = append(entries.Accepted, view)
		case StatusCompleted:
			entries.Completed = append(entries.Completed, view)
		default:
			entries.History = append(entries.History, view)
		}
	}
	return entries, nil
}
