// Package storage defines the persistence contracts for the swaps service.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write violated a uniqueness or reference constraint.
	ErrConflict = errors.New("record conflict")
	// ErrPreconditionFailed indicates a conditional write found the row in another state.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// UserRecord is the subset of a user account the swaps core reads.
type UserRecord struct {
	ID        string
	Name      string
	Email     string
	IsAdmin   bool
	IsBanned  bool
	CreatedAt time.Time
}

// SkillRecord stores one skill catalog entry.
type SkillRecord struct {
	ID          string
	Name        string
	Description string
}

// SwapRecord stores one swap request row.
type SwapRecord struct {
	ID             string
	RequesterID    string
	ResponderID    string
	OfferedSkillID string
	WantedSkillID  string
	Status         string
	Message        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RatingRecord stores one rating left on a swap.
type RatingRecord struct {
	ID        string
	SwapID    string
	RaterID   string
	RatedID   string
	Stars     int
	Comment   string
	CreatedAt time.Time
}

// UserStore reads and seeds user accounts.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (UserRecord, error)
	PutUser(ctx context.Context, record UserRecord) error
}

// SkillStore reads skills and the offered-skill relation.
type SkillStore interface {
	GetSkill(ctx context.Context, skillID string) (SkillRecord, error)
	PutSkill(ctx context.Context, record SkillRecord) error
	UserOffersSkill(ctx context.Context, userID string, skillID string) (bool, error)
	PutOfferedSkill(ctx context.Context, userID string, skillID string) error
}

// SwapStore persists swap requests.
//
// UpdateSwapStatus and DeleteSwap are conditional on the current status and
// return ErrPreconditionFailed when the row exists in any other status.
type SwapStore interface {
	PutSwap(ctx context.Context, record SwapRecord) error
	GetSwap(ctx context.Context, swapID string) (SwapRecord, error)
	FindPendingSwap(ctx context.Context, requesterID, responderID, offeredSkillID, wantedSkillID string) (SwapRecord, error)
	ListSwapsByParticipant(ctx context.Context, userID string) ([]SwapRecord, error)
	UpdateSwapStatus(ctx context.Context, swapID string, from string, to string, updatedAt time.Time) error
	DeleteSwap(ctx context.Context, swapID string, status string) error
}

// RatingStore persists ratings.
type RatingStore interface {
	GetRatingBySwapAndRater(ctx context.Context, swapID string, raterID string) (RatingRecord, error)
	SwapHasRating(ctx context.Context, swapID string) (bool, error)
	ListRatingsByRated(ctx context.Context, ratedID string) ([]RatingRecord, error)
	// PutRatingAndCompleteSwap inserts the rating and moves its swap from
	// accepted to completed in one transaction.
	PutRatingAndCompleteSwap(ctx context.Context, rating RatingRecord, completedAt time.Time) error
}

// Store is the full swaps persistence surface.
type Store interface {
	UserStore
	SkillStore
	SwapStore
	RatingStore
	Close() error
}
