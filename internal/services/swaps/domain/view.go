package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/skillswap/internal/services/swaps/storage"
)

// SkillRef is the embedded display form of a skill.
type SkillRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SwapView is a swap request enriched with participant and skill data.
type SwapView struct {
	ID            string    `json:"id"`
	RequesterID   string    `json:"requester_id"`
	ResponderID   string    `json:"responder_id"`
	RequesterName string    `json:"requester_name"`
	ResponderName string    `json:"responder_name"`
	OfferedSkill  SkillRef  `json:"offered_skill"`
	WantedSkill   SkillRef  `json:"wanted_skill"`
	Status        Status    `json:"status"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	HasRating     bool      `json:"has_rating"`
}

// RatingView is a rating enriched with rater and rated display names.
type RatingView struct {
	ID        string    `json:"id"`
	SwapID    string    `json:"swap_id"`
	RaterID   string    `json:"rater_id"`
	RatedID   string    `json:"rated_id"`
	RaterName string    `json:"rater_name"`
	RatedName string    `json:"rated_name"`
	Stars     int       `json:"stars"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Entries groups a user's swaps by lifecycle bucket, newest first.
type Entries struct {
	Pending   []SwapView `json:"pending"`
	Accepted  []SwapView `json:"accepted"`
	Completed []SwapView `json:"completed"`
	History   []SwapView `json:"history"`
}

// viewBuilder resolves ids to display data, memoizing lookups for the
// lifetime of one operation.
type viewBuilder struct {
	store  Store
	users  map[string]storage.UserRecord
	skills map[string]storage.SkillRecord
}

func newViewBuilder(store Store) *viewBuilder {
	return &viewBuilder{
		store:  store,
		users:  make(map[string]storage.UserRecord),
		skills: make(map[string]storage.SkillRecord),
	}
}

func (b *viewBuilder) user(ctx context.Context, userID string) (storage.UserRecord, error) {
	if user, ok := b.users[userID]; ok {
		return user, nil
	}
	user, err := b.store.GetUser(ctx, userID)
	if err != nil {
		return storage.UserRecord{}, fmt.Errorf("load user %s: %w", userID, err)
	}
	b.users[userID] = user
	return user, nil
}

func (b *viewBuilder) skill(ctx context.Context, skillID string) (storage.SkillRecord, error) {
	if skill, ok := b.skills[skillID]; ok {
		return skill, nil
	}
	skill, err := b.store.GetSkill(ctx, skillID)
	if err != nil {
		return storage.SkillRecord{}, fmt.Errorf("load skill %s: %w", skillID, err)
	}
	b.skills[skillID] = skill
	return skill, nil
}

func (b *viewBuilder) swap(ctx context.Context, record storage.SwapRecord) (SwapView, error) {
	requester, err := b.user(ctx, record.RequesterID)
	if err != nil {
		return SwapView{}, err
	}
	responder, err := b.user(ctx, record.ResponderID)
	if err != nil {
		return SwapView{}, err
	}
	offered, err := b.skill(ctx, record.OfferedSkillID)
	if err != nil {
		return SwapView{}, err
	}
	wanted, err := b.skill(ctx, record.WantedSkillID)
	if err != nil {
		return SwapView{}, err
	}
	hasRating, err := b.store.SwapHasRating(ctx, record.ID)
	if err != nil {
		return SwapView{}, fmt.Errorf("check swap rating: %w", err)
	}
	return SwapView{
		ID:            record.ID,
		RequesterID:   record.RequesterID,
		ResponderID:   record.ResponderID,
		RequesterName: requester.Name,
		ResponderName: responder.Name,
		OfferedSkill:  skillRef(offered),
		WantedSkill:   skillRef(wanted),
		Status:        Status(record.Status),
		Message:       record.Message,
		CreatedAt:     record.CreatedAt,
		HasRating:     hasRating,
	}, nil
}

func (b *viewBuilder) rating(ctx context.Context, record storage.RatingRecord) (RatingView, error) {
	rater, err := b.user(ctx, record.RaterID)
	if err != nil {
		return RatingView{}, err
	}
	rated, err := b.user(ctx, record.RatedID)
	if err != nil {
		return RatingView{}, err
	}
	return RatingView{
		ID:        record.ID,
		SwapID:    record.SwapID,
		RaterID:   record.RaterID,
		RatedID:   record.RatedID,
		RaterName: rater.Name,
		RatedName: rated.Name,
		Stars:     record.Stars,
		Comment:   record.Comment,
		CreatedAt: record.CreatedAt,
	}, nil
}

func skillRef(record storage.SkillRecord) SkillRef {
	return SkillRef{ID: record.ID, Name: record.Name, Description: record.Description}
}
