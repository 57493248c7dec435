package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/services/swaps/storage"
)

// Store is the persistence boundary shared by Workflow and RatingGate.
type Store interface {
	GetUser(ctx context.Context, userID string) (storage.UserRecord, error)
	GetSkill(ctx context.Context, skillID string) (storage.SkillRecord, error)
	UserOffersSkill(ctx context.Context, userID string, skillID string) (bool, error)

	PutSwap(ctx context.Context, record storage.SwapRecord) error
	GetSwap(ctx context.Context, swapID string) (storage.SwapRecord, error)
	FindPendingSwap(ctx context.Context, requesterID, responderID, offeredSkillID, wantedSkillID string) (storage.SwapRecord, error)
	ListSwapsByParticipant(ctx context.Context, userID string) ([]storage.SwapRecord, error)
	UpdateSwapStatus(ctx context.Context, swapID string, from string, to string, updatedAt time.Time) error
	DeleteSwap(ctx context.Context, swapID string, status string) error

	GetRatingBySwapAndRater(ctx context.Context, swapID string, raterID string) (storage.RatingRecord, error)
	SwapHasRating(ctx context.Context, swapID string) (bool, error)
	ListRatingsByRated(ctx context.Context, ratedID string) ([]storage.RatingRecord, error)
	PutRatingAndCompleteSwap(ctx context.Context, rating storage.RatingRecord, completedAt time.Time) error
}

// ErrStoreNotConfigured indicates the service is missing persistence wiring.
var ErrStoreNotConfigured = errors.New("swaps store is not configured")

// storeLookup maps a missing record to notFound and wraps anything else.
func storeLookup(err error, notFound apperrors.Code, message string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(notFound, message, err)
	}
	return fmt.Errorf("%s: %w", message, err)
}
