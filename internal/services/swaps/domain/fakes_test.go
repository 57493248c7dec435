package domain

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/louisbranch/skillswap/internal/services/swaps/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	users   map[string]storage.UserRecord
	skills  map[string]storage.SkillRecord
	offers  map[string]map[string]bool
	swaps   map[string]storage.SwapRecord
	ratings map[string]storage.RatingRecord

	// Hooks that simulate a concurrent writer winning the race.
	putSwapErr   error
	updateErr    error
	putRatingErr error

	// hasRatingErr fails the rating lookup used to build swap views.
	hasRatingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]storage.UserRecord),
		skills:  make(map[string]storage.SkillRecord),
		offers:  make(map[string]map[string]bool),
		swaps:   make(map[string]storage.SwapRecord),
		ratings: make(map[string]storage.RatingRecord),
	}
}

func (s *fakeStore) addUser(id, name string) {
	s.users[id] = storage.UserRecord{ID: id, Name: name, Email: id + "@example.com"}
}

func (s *fakeStore) addSkill(id, name string, owners ...string) {
	s.skills[id] = storage.SkillRecord{ID: id, Name: name}
	for _, owner := range owners {
		if s.offers[owner] == nil {
			s.offers[owner] = make(map[string]bool)
		}
		s.offers[owner][id] = true
	}
}

func (s *fakeStore) GetUser(_ context.Context, userID string) (storage.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return storage.UserRecord{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *fakeStore) GetSkill(_ context.Context, skillID string) (storage.SkillRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skill, ok := s.skills[skillID]
	if !ok {
		return storage.SkillRecord{}, storage.ErrNotFound
	}
	return skill, nil
}

func (s *fakeStore) UserOffersSkill(_ context.Context, userID string, skillID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers[userID][skillID], nil
}

func (s *fakeStore) PutSwap(_ context.Context, record storage.SwapRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putSwapErr != nil {
		return s.putSwapErr
	}
	for _, existing := range s.swaps {
		if existing.Status == "pending" && record.Status == "pending" &&
			existing.RequesterID == record.RequesterID && existing.ResponderID == record.ResponderID &&
			existing.OfferedSkillID == record.OfferedSkillID && existing.WantedSkillID == record.WantedSkillID {
			return storage.ErrConflict
		}
	}
	s.swaps[record.ID] = record
	return nil
}

func (s *fakeStore) GetSwap(_ context.Context, swapID string) (storage.SwapRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	swap, ok := s.swaps[swapID]
	if !ok {
		return storage.SwapRecord{}, storage.ErrNotFound
	}
	return swap, nil
}

func (s *fakeStore) FindPendingSwap(_ context.Context, requesterID, responderID, offeredSkillID, wantedSkillID string) (storage.SwapRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, swap := range s.swaps {
		if swap.Status == "pending" && swap.RequesterID == requesterID && swap.ResponderID == responderID &&
			swap.OfferedSkillID == offeredSkillID && swap.WantedSkillID == wantedSkillID {
			return swap, nil
		}
	}
	return storage.SwapRecord{}, storage.ErrNotFound
}

func (s *fakeStore) ListSwapsByParticipant(_ context.Context, userID string) ([]storage.SwapRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []storage.SwapRecord
	for _, swap := range s.swaps {
		if swap.RequesterID == userID || swap.ResponderID == userID {
			records = append(records, swap)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (s *fakeStore) UpdateSwapStatus(_ context.Context, swapID string, from string, to string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	swap, ok := s.swaps[swapID]
	if !ok {
		return storage.ErrNotFound
	}
	if swap.Status != from {
		return storage.ErrPreconditionFailed
	}
	swap.Status = to
	swap.UpdatedAt = updatedAt
	s.swaps[swapID] = swap
	return nil
}

func (s *fakeStore) DeleteSwap(_ context.Context, swapID string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	swap, ok := s.swaps[swapID]
	if !ok {
		return storage.ErrNotFound
	}
	if swap.Status != status {
		return storage.ErrPreconditionFailed
	}
	delete(s.swaps, swapID)
	return nil
}

func (s *fakeStore) GetRatingBySwapAndRater(_ context.Context, swapID string, raterID string) (storage.RatingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rating := range s.ratings {
		if rating.SwapID == swapID && rating.RaterID == raterID {
			return rating, nil
		}
	}
	return storage.RatingRecord{}, storage.ErrNotFound
}

func (s *fakeStore) SwapHasRating(_ context.Context, swapID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasRatingErr != nil {
		return false, s.hasRatingErr
	}
	for _, rating := range s.ratings {
		if rating.SwapID == swapID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ListRatingsByRated(_ context.Context, ratedID string) ([]storage.RatingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []storage.RatingRecord
	for _, rating := range s.ratings {
		if rating.RatedID == ratedID {
			records = append(records, rating)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (s *fakeStore) PutRatingAndCompleteSwap(_ context.Context, rating storage.RatingRecord, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putRatingErr != nil {
		return s.putRatingErr
	}
	swap, ok := s.swaps[rating.SwapID]
	if !ok {
		return storage.ErrNotFound
	}
	if swap.Status != "accepted" {
		return storage.ErrPreconditionFailed
	}
	for _, existing := range s.ratings {
		if existing.SwapID == rating.SwapID {
			return storage.ErrConflict
		}
	}
	swap.Status = "completed"
	swap.UpdatedAt = completedAt
	s.swaps[swap.ID] = swap
	s.ratings[rating.ID] = rating
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) kinds() []EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]EventKind, 0, len(p.events))
	for _, event := range p.events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

func (p *recordingPublisher) last() Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return Event{}
	}
	return p.events[len(p.events)-1]
}

// sequentialIDs returns swap-1, swap-2, ... style ids.
func sequentialIDs(prefix string) func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n), nil
	}
}

// steppingClock advances one minute per call from start.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Minute)
		return now
	}
}
