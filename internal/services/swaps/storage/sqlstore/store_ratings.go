package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/skillswap/internal/services/swaps/storage"
)

const ratingColumns = `id, swap_id, rater_id, rated_id, stars, comment, created_at`

// GetRatingBySwapAndRater loads the rating one participant left on a swap.
func (s *Store) GetRatingBySwapAndRater(ctx context.Context, swapID string, raterID string) (storage.RatingRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.RatingRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, s.q(`
SELECT `+ratingColumns+`
FROM ratings
WHERE swap_id = ? AND rater_id = ?
`), strings.TrimSpace(swapID), strings.TrimSpace(raterID))
	record, err := scanRating(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RatingRecord{}, storage.ErrNotFound
		}
		return storage.RatingRecord{}, fmt.Errorf("get rating: %w", err)
	}
	return record, nil
}

// SwapHasRating reports whether any rating exists for the swap.
func (s *Store) SwapHasRating(ctx context.Context, swapID string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var found int
	err := s.sqlDB.QueryRowContext(ctx, s.q(`SELECT 1 FROM ratings WHERE swap_id = ?`), strings.TrimSpace(swapID)).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check swap rating: %w", err)
	}
	return true, nil
}

// ListRatingsByRated lists ratings received by a user, newest first.
func (s *Store) ListRatingsByRated(ctx context.Context, ratedID string) ([]storage.RatingRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	ratedID = strings.TrimSpace(ratedID)
	if ratedID == "" {
		return nil, fmt.Errorf("rated user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, s.q(`
SELECT `+ratingColumns+`
FROM ratings
WHERE rated_id = ?
ORDER BY created_at DESC, id DESC
`), ratedID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	records := make([]storage.RatingRecord, 0)
	for rows.Next() {
		record, err := scanRating(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating rows: %w", err)
	}
	return records, nil
}

// PutRatingAndCompleteSwap atomically records a rating and completes its swap.
//
// The swap must still be accepted when the transaction runs; otherwise
// ErrPreconditionFailed is returned and nothing is written.
func (s *Store) PutRatingAndCompleteSwap(ctx context.Context, rating storage.RatingRecord, completedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	normalized, err := normalizeRatingRecord(rating)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rating write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback rating write: %v", cause, rollbackErr)
		}
		return cause
	}

	result, err := tx.ExecContext(ctx, s.q(`
UPDATE swap_requests SET status = 'completed', updated_at = ?
WHERE id = ? AND status = 'accepted'
`), toMillis(completedAt), normalized.SwapID)
	if err != nil {
		return rollbackWith(fmt.Errorf("complete swap: %w", err))
	}
	if err := s.checkConditional(ctx, tx, result, normalized.SwapID); err != nil {
		return rollbackWith(err)
	}
	if err := s.putRatingExec(ctx, tx, normalized); err != nil {
		return rollbackWith(err)
	}
	if err := tx.Commit(); err != nil {
		if isConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("commit rating write: %w", err)
	}
	return nil
}

func (s *Store) putRatingExec(ctx context.Context, execer sqlExecer, record storage.RatingRecord) error {
	_, err := execer.ExecContext(ctx, s.q(`
INSERT INTO ratings (`+ratingColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
`),
		record.ID,
		record.SwapID,
		record.RaterID,
		record.RatedID,
		record.Stars,
		record.Comment,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put rating: %w", err)
	}
	return nil
}

func normalizeRatingRecord(record storage.RatingRecord) (storage.RatingRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.SwapID = strings.TrimSpace(record.SwapID)
	record.RaterID = strings.TrimSpace(record.RaterID)
	record.RatedID = strings.TrimSpace(record.RatedID)
	if record.ID == "" {
		return storage.RatingRecord{}, fmt.Errorf("rating id is required")
	}
	if record.SwapID == "" {
		return storage.RatingRecord{}, fmt.Errorf("rating swap id is required")
	}
	if record.RaterID == "" || record.RatedID == "" {
		return storage.RatingRecord{}, fmt.Errorf("rating participants are required")
	}
	if record.CreatedAt.IsZero() {
		return storage.RatingRecord{}, fmt.Errorf("rating created_at is required")
	}
	return record, nil
}

func scanRating(scan scanner) (storage.RatingRecord, error) {
	var record storage.RatingRecord
	var createdAt int64
	if err := scan(
		&record.ID,
		&record.SwapID,
		&record.RaterID,
		&record.RatedID,
		&record.Stars,
		&record.Comment,
		&createdAt,
	); err != nil {
		return storage.RatingRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}
