package domain

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/services/swaps/storage"
)

func acceptedSwap(t *testing.T, workflow *Workflow) SwapView {
	t.Helper()
	swap := createSwap(t, workflow)
	view, err := workflow.Transition(context.Background(), "bob", swap.ID, StatusAccepted)
	if err != nil {
		t.Fatalf("accept swap: %v", err)
	}
	return view
}

func TestSubmitCompletesSwapAndNotifiesRated(t *testing.T) {
	t.Parallel()

	store, publisher, workflow, gate := newTestWorld()
	swap := acceptedSwap(t, workflow)

	rating, err := gate.Submit(context.Background(), "alice", SubmitInput{
		SwapID:  swap.ID,
		RatedID: "bob",
		Stars:   5,
		Comment: "  Patient mentor  ",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rating.ID != "rating-1" || rating.Stars != 5 || rating.Comment != "Patient mentor" {
		t.Fatalf("unexpected rating: %+v", rating)
	}
	if rating.RaterName != "Alice" || rating.RatedName != "Bob" {
		t.Fatalf("names = %q/%q, want Alice/Bob", rating.RaterName, rating.RatedName)
	}

	stored, err := store.GetSwap(context.Background(), swap.ID)
	if err != nil {
		t.Fatalf("get swap: %v", err)
	}
	if stored.Status != string(StatusCompleted) {
		t.Fatalf("swap status = %q, want completed", stored.Status)
	}

	event := publisher.last()
	if event.Kind != EventRatingReceived || event.Rating == nil || event.Rating.RatedID != "bob" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestSubmitSecondRating(t *testing.T) {
	t.Parallel()

	_, _, workflow, gate := newTestWorld()
	swap := acceptedSwap(t, workflow)
	ctx := context.Background()

	if _, err := gate.Submit(ctx, "alice", SubmitInput{SwapID: swap.ID, RatedID: "bob", Stars: 5}); err != nil {
		t.Fatalf("first rating: %v", err)
	}

	_, err := gate.Submit(ctx, "alice", SubmitInput{SwapID: swap.ID, RatedID: "bob", Stars: 4})
	assertKind(t, err, apperrors.CodeConflict)
	assertCode(t, err, apperrors.CodeRatingAlreadySubmitted)

	// The counterpart finds the swap already completed.
	_, err = gate.Submit(ctx, "bob", SubmitInput{SwapID: swap.ID, RatedID: "alice", Stars: 4})
	assertKind(t, err, apperrors.CodeInvalidState)
	assertCode(t, err, apperrors.CodeRatingSwapNotAccepted)
}

func TestSubmitValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rater    string
		input    func(swapID string) SubmitInput
		wantKind apperrors.Code
		wantCode apperrors.Code
	}{
		{
			name:     "missing swap",
			rater:    "alice",
			input:    func(string) SubmitInput { return SubmitInput{SwapID: "missing", RatedID: "bob", Stars: 5} },
			wantKind: apperrors.CodeNotFound,
			wantCode: apperrors.CodeSwapNotFound,
		},
		{
			name:     "missing rated user",
			rater:    "alice",
			input:    func(id string) SubmitInput { return SubmitInput{SwapID: id, RatedID: "zoe", Stars: 5} },
			wantKind: apperrors.CodeNotFound,
			wantCode: apperrors.CodeRatingUserNotFound,
		},
		{
			name:     "outsider",
			rater:    "carol",
			input:    func(id string) SubmitInput { return SubmitInput{SwapID: id, RatedID: "bob", Stars: 5} },
			wantKind: apperrors.CodeUnauthorized,
			wantCode: apperrors.CodeRatingNotParticipant,
		},
		{
			name:     "self rating",
			rater:    "alice",
			input:    func(id string) SubmitInput { return SubmitInput{SwapID: id, RatedID: "alice", Stars: 5} },
			wantKind: apperrors.CodePolicyViolation,
			wantCode: apperrors.CodeRatingSelf,
		},
		{
			name:     "rated is not counterpart",
			rater:    "alice",
			input:    func(id string) SubmitInput { return SubmitInput{SwapID: id, RatedID: "carol", Stars: 5} },
			wantKind: apperrors.CodePolicyViolation,
			wantCode: apperrors.CodeRatingNotCounterpart,
		},
		{
			name:     "zero stars",
			rater:    "alice",
			input:    func(id string) SubmitInput { return SubmitInput{SwapID: id, RatedID: "bob", Stars: 0} },
			wantKind: apperrors.CodeInvalidArgument,
			wantCode: apperrors.CodeRatingStarsOutOfRange,
		},
		{
			name:     "six stars",
			rater:    "bob",
			input:    func(id string) SubmitInput { return SubmitInput{SwapID: id, RatedID: "alice", Stars: 6} },
			wantKind: apperrors.CodeInvalidArgument,
			wantCode: apperrors.CodeRatingStarsOutOfRange,
		},
		{
			name:  "comment too long",
			rater: "alice",
			input: func(id string) SubmitInput {
				return SubmitInput{SwapID: id, RatedID: "bob", Stars: 3, Comment: strings.Repeat("x", MaxCommentLength+1)}
			},
			wantKind: apperrors.CodeInvalidArgument,
			wantCode: apperrors.CodeRatingCommentTooLong,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store, _, workflow, gate := newTestWorld()
			swap := acceptedSwap(t, workflow)

			_, err := gate.Submit(context.Background(), tc.rater, tc.input(swap.ID))
			assertKind(t, err, tc.wantKind)
			assertCode(t, err, tc.wantCode)

			stored, getErr := store.GetSwap(context.Background(), swap.ID)
			if getErr != nil {
				t.Fatalf("get swap: %v", getErr)
			}
			if stored.Status != string(StatusAccepted) {
				t.Fatalf("swap status = %q, want accepted", stored.Status)
			}
		})
	}
}

func TestSubmitRequiresAccepted(t *testing.T) {
	t.Parallel()

	_, _, workflow, gate := newTestWorld()
	swap := createSwap(t, workflow)

	_, err := gate.Submit(context.Background(), "alice", SubmitInput{SwapID: swap.ID, RatedID: "bob", Stars: 5})
	assertKind(t, err, apperrors.CodeInvalidState)
}

func TestSubmitStoreRaces(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		storeErr error
		wantKind apperrors.Code
	}{
		{name: "swap moved on", storeErr: storage.ErrPreconditionFailed, wantKind: apperrors.CodeInvalidState},
		{name: "rating inserted concurrently", storeErr: storage.ErrConflict, wantKind: apperrors.CodeConflict},
		{name: "swap deleted", storeErr: storage.ErrNotFound, wantKind: apperrors.CodeNotFound},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store, publisher, workflow, gate := newTestWorld()
			swap := acceptedSwap(t, workflow)
			store.putRatingErr = tc.storeErr

			_, err := gate.Submit(context.Background(), "alice", SubmitInput{SwapID: swap.ID, RatedID: "bob", Stars: 5})
			assertKind(t, err, tc.wantKind)
			for _, kind := range publisher.kinds() {
				if kind == EventRatingReceived {
					t.Fatal("failed submission must not publish")
				}
			}
		})
	}
}

func TestSubmitViewFailureWritesNothing(t *testing.T) {
	t.Parallel()

	store, publisher, workflow, gate := newTestWorld()
	swap := acceptedSwap(t, workflow)
	store.mu.Lock()
	delete(store.users, "alice")
	store.mu.Unlock()

	if _, err := gate.Submit(context.Background(), "alice", SubmitInput{SwapID: swap.ID, RatedID: "bob", Stars: 4}); err == nil {
		t.Fatal("expected view error")
	}
	stored, err := store.GetSwap(context.Background(), swap.ID)
	if err != nil {
		t.Fatalf("get swap: %v", err)
	}
	if stored.Status != string(StatusAccepted) {
		t.Fatalf("status = %q, want accepted", stored.Status)
	}
	if has, _ := store.SwapHasRating(context.Background(), swap.ID); has {
		t.Fatal("expected no stored rating")
	}
	if event := publisher.last(); event.Kind == EventRatingReceived {
		t.Fatalf("unexpected rating event: %+v", event)
	}
}

func TestRatingsFor(t *testing.T) {
	t.Parallel()

	_, _, workflow, gate := newTestWorld()
	ctx := context.Background()
	swap := acceptedSwap(t, workflow)
	if _, err := gate.Submit(ctx, "bob", SubmitInput{SwapID: swap.ID, RatedID: "alice", Stars: 4, Comment: "Fun"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ratings, err := gate.RatingsFor(ctx, "alice")
	if err != nil {
		t.Fatalf("ratings for alice: %v", err)
	}
	if len(ratings) != 1 {
		t.Fatalf("ratings len = %d, want 1", len(ratings))
	}
	if ratings[0].RaterName != "Bob" || ratings[0].RatedName != "Alice" || ratings[0].Stars != 4 {
		t.Fatalf("unexpected rating view: %+v", ratings[0])
	}

	ratings, err = gate.RatingsFor(ctx, "bob")
	if err != nil {
		t.Fatalf("ratings for bob: %v", err)
	}
	if len(ratings) != 0 {
		t.Fatalf("bob ratings len = %d, want 0", len(ratings))
	}

	_, err = gate.RatingsFor(ctx, "zoe")
	assertKind(t, err, apperrors.CodeNotFound)
}

func TestEndToEndWorkflow(t *testing.T) {
	t.Parallel()

	store, publisher, workflow, gate := newTestWorld()
	ctx := context.Background()

	swap := createSwap(t, workflow)
	accepted, err := workflow.Transition(ctx, "bob", swap.ID, StatusAccepted)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Fatalf("status = %q, want accepted", accepted.Status)
	}
	if _, err := gate.Submit(ctx, "alice", SubmitInput{SwapID: swap.ID, RatedID: "bob", Stars: 5}); err != nil {
		t.Fatalf("rate: %v", err)
	}
	stored, err := store.GetSwap(ctx, swap.ID)
	if err != nil {
		t.Fatalf("get swap: %v", err)
	}
	if stored.Status != string(StatusCompleted) {
		t.Fatalf("status = %q, want completed", stored.Status)
	}
	_, err = gate.Submit(ctx, "alice", SubmitInput{SwapID: swap.ID, RatedID: "bob", Stars: 5})
	assertKind(t, err, apperrors.CodeConflict)

	want := []EventKind{EventSwapCreated, EventSwapUpdated, EventRatingReceived}
	got := publisher.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}
