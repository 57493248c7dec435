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

const (
	MinStars         = 1
	MaxStars         = 5
	MaxCommentLength = 140
)

// SubmitInput describes one rating submission.
type SubmitInput struct {
	SwapID  string
	RatedID string
	Stars   int
	Comment string
}

// RatingGate validates ratings and performs the accepted -> completed
// transition. It is the only path to StatusCompleted.
type RatingGate struct {
	store     Store
	publisher Publisher
	clock     func() time.Time
	newID     func() (string, error)
}

// NewRatingGate constructs the rating gate. A nil publisher discards events.
func NewRatingGate(store Store, publisher Publisher, clock func() time.Time, newID func() (string, error)) *RatingGate {
	if publisher == nil {
		publisher = discardPublisher{}
	}
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &RatingGate{
		store:     store,
		publisher: publisher,
		clock:     clock,
		newID:     newID,
	}
}

// Submit records raterID's rating of input.RatedID for an accepted swap,
// completes the swap and notifies the rated user.
//
// One rating completes the swap; the counterpart cannot rate afterwards.
func (g *RatingGate) Submit(ctx context.Context, raterID string, input SubmitInput) (RatingView, error) {
	if g == nil || g.store == nil {
		return RatingView{}, ErrStoreNotConfigured
	}
	raterID = strings.TrimSpace(raterID)
	ratedID := strings.TrimSpace(input.RatedID)
	comment := strings.TrimSpace(input.Comment)

	swap, err := g.store.GetSwap(ctx, strings.TrimSpace(input.SwapID))
	if err != nil {
		return RatingView{}, storeLookup(err, apperrors.CodeSwapNotFound, "swap request not found")
	}
	if _, err := g.store.GetUser(ctx, ratedID); err != nil {
		return RatingView{}, storeLookup(err, apperrors.CodeRatingUserNotFound, "rated user not found")
	}

	// A repeat by the same rater reports the duplicate even though the first
	// rating already moved the swap out of accepted.
	_, err = g.store.GetRatingBySwapAndRater(ctx, swap.ID, raterID)
	switch {
	case err == nil:
		return RatingView{}, apperrors.New(apperrors.CodeRatingAlreadySubmitted, "you have already rated this swap")
	case !errors.Is(err, storage.ErrNotFound):
		return RatingView{}, fmt.Errorf("check existing rating: %w", err)
	}

	if Status(swap.Status) != StatusAccepted {
		return RatingView{}, apperrors.WithMetadata(apperrors.CodeRatingSwapNotAccepted, "can only rate accepted swaps", map[string]string{
			"status": swap.Status,
		})
	}
	role := RoleOf(swap.RequesterID, swap.ResponderID, raterID)
	if role == RoleNone {
		return RatingView{}, apperrors.New(apperrors.CodeRatingNotParticipant, "not authorized to rate this swap")
	}
	if ratedID == raterID {
		return RatingView{}, apperrors.New(apperrors.CodeRatingSelf, "cannot rate yourself")
	}
	counterpart := swap.ResponderID
	if role == RoleResponder {
		counterpart = swap.RequesterID
	}
	if ratedID != counterpart {
		return RatingView{}, apperrors.New(apperrors.CodeRatingNotCounterpart, "can only rate the other participant of the swap")
	}
	if input.Stars < MinStars || input.Stars > MaxStars {
		return RatingView{}, apperrors.WithMetadata(apperrors.CodeRatingStarsOutOfRange, "stars must be between 1 and 5", map[string]string{
			"stars": fmt.Sprint(input.Stars),
		})
	}
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return RatingView{}, apperrors.WithMetadata(apperrors.CodeRatingCommentTooLong, "comment is too long", map[string]string{
			"max_length": fmt.Sprint(MaxCommentLength),
		})
	}

	ratingID, err := g.newID()
	if err != nil {
		return RatingView{}, err
	}
	now := g.clock().UTC()
	record := storage.RatingRecord{
		ID:        ratingID,
		SwapID:    swap.ID,
		RaterID:   raterID,
		RatedID:   ratedID,
		Stars:     input.Stars,
		Comment:   comment,
		CreatedAt: now,
	}
	view, err := newViewBuilder(g.store).rating(ctx, record)
	if err != nil {
		return RatingView{}, err
	}
	if err := g.store.PutRatingAndCompleteSwap(ctx, record, now); err != nil {
		switch {
		case errors.Is(err, storage.ErrPreconditionFailed):
			return RatingView{}, apperrors.Wrap(apperrors.CodeRatingSwapNotAccepted, "can only rate accepted swaps", err)
		case errors.Is(err, storage.ErrConflict):
			return RatingView{}, apperrors.Wrap(apperrors.CodeRatingAlreadySubmitted, "this swap has already been rated", err)
		case errors.Is(err, storage.ErrNotFound):
			return RatingView{}, apperrors.Wrap(apperrors.CodeSwapNotFound, "swap request not found", err)
		default:
			return RatingView{}, fmt.Errorf("put rating: %w", err)
		}
	}
	g.publisher.Publish(Event{Kind: EventRatingReceived, Rating: &view})
	return view, nil
}

// RatingsFor lists the ratings userID has received, newest first.
func (g *RatingGate) RatingsFor(ctx context.Context, userID string) ([]RatingView, error) {
	if g == nil || g.store == nil {
		return nil, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if _, err := g.store.GetUser(ctx, userID); err != nil {
		return nil, storeLookup(err, apperrors.CodeRatingUserNotFound, "user not found")
	}
	records, err := g.store.ListRatingsByRated(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}

	builder := newViewBuilder(g.store)
	views := make([]RatingView, 0, len(records))
	for _, record := range records {
		view, err := builder.rating(ctx, record)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}
