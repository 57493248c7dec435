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

const swapColumns = `id, requester_id, responder_id, offered_skill_id, wanted_skill_id, status, message, created_at, updated_at`

// PutSwap inserts one new swap request.
func (s *Store) PutSwap(ctx context.Context, record storage.SwapRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	normalized, err := normalizeSwapRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, s.q(`
INSERT INTO swap_requests (`+swapColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`),
		normalized.ID,
		normalized.RequesterID,
		normalized.ResponderID,
		normalized.OfferedSkillID,
		normalized.WantedSkillID,
		normalized.Status,
		normalized.Message,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put swap: %w", err)
	}
	return nil
}

// GetSwap loads one swap request.
func (s *Store) GetSwap(ctx context.Context, swapID string) (storage.SwapRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SwapRecord{}, err
	}
	return getSwap(ctx, s.sqlDB, s.q(`SELECT `+swapColumns+` FROM swap_requests WHERE id = ?`), strings.TrimSpace(swapID))
}

// FindPendingSwap loads the pending request for one participant/skill tuple.
func (s *Store) FindPendingSwap(ctx context.Context, requesterID, responderID, offeredSkillID, wantedSkillID string) (storage.SwapRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SwapRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, s.q(`
SELECT `+swapColumns+`
FROM swap_requests
WHERE requester_id = ? AND responder_id = ? AND offered_skill_id = ? AND wanted_skill_id = ? AND status = 'pending'
`), requesterID, responderID, offeredSkillID, wantedSkillID)
	record, err := scanSwap(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SwapRecord{}, storage.ErrNotFound
		}
		return storage.SwapRecord{}, fmt.Errorf("find pending swap: %w", err)
	}
	return record, nil
}

// ListSwapsByParticipant lists swaps the user sent or received, newest first.
func (s *Store) ListSwapsByParticipant(ctx context.Context, userID string) ([]storage.SwapRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, s.q(`
SELECT `+swapColumns+`
FROM swap_requests
WHERE requester_id = ? OR responder_id = ?
ORDER BY created_at DESC, id DESC
`), userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list swaps: %w", err)
	}
	defer rows.Close()

	records := make([]storage.SwapRecord, 0)
	for rows.Next() {
		record, err := scanSwap(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan swap row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap rows: %w", err)
	}
	return records, nil
}

// UpdateSwapStatus moves a swap from one status to another.
func (s *Store) UpdateSwapStatus(ctx context.Context, swapID string, from string, to string, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	swapID = strings.TrimSpace(swapID)
	if swapID == "" {
		return storage.ErrNotFound
	}

	result, err := s.sqlDB.ExecContext(ctx, s.q(`
UPDATE swap_requests SET status = ?, updated_at = ?
WHERE id = ? AND status = ?
`), to, toMillis(updatedAt), swapID, from)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("update swap status: %w", err)
	}
	return s.checkConditional(ctx, s.sqlDB, result, swapID)
}

// DeleteSwap removes a swap that is still in the given status.
func (s *Store) DeleteSwap(ctx context.Context, swapID string, status string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	swapID = strings.TrimSpace(swapID)
	if swapID == "" {
		return storage.ErrNotFound
	}

	result, err := s.sqlDB.ExecContext(ctx, s.q(`DELETE FROM swap_requests WHERE id = ? AND status = ?`), swapID, status)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("delete swap: %w", err)
	}
	return s.checkConditional(ctx, s.sqlDB, result, swapID)
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// checkConditional turns a zero-row conditional write into ErrNotFound or
// ErrPreconditionFailed.
func (s *Store) checkConditional(ctx context.Context, queryer rowQueryer, result sql.Result, swapID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := getSwap(ctx, queryer, s.q(`SELECT `+swapColumns+` FROM swap_requests WHERE id = ?`), swapID); err != nil {
		return err
	}
	return storage.ErrPreconditionFailed
}

func getSwap(ctx context.Context, queryer rowQueryer, query string, swapID string) (storage.SwapRecord, error) {
	if swapID == "" {
		return storage.SwapRecord{}, storage.ErrNotFound
	}
	record, err := scanSwap(queryer.QueryRowContext(ctx, query, swapID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SwapRecord{}, storage.ErrNotFound
		}
		return storage.SwapRecord{}, fmt.Errorf("get swap: %w", err)
	}
	return record, nil
}

func normalizeSwapRecord(record storage.SwapRecord) (storage.SwapRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.RequesterID = strings.TrimSpace(record.RequesterID)
	record.ResponderID = strings.TrimSpace(record.ResponderID)
	record.OfferedSkillID = strings.TrimSpace(record.OfferedSkillID)
	record.WantedSkillID = strings.TrimSpace(record.WantedSkillID)
	record.Status = strings.TrimSpace(record.Status)
	if record.ID == "" {
		return storage.SwapRecord{}, fmt.Errorf("swap id is required")
	}
	if record.RequesterID == "" || record.ResponderID == "" {
		return storage.SwapRecord{}, fmt.Errorf("swap participants are required")
	}
	if record.OfferedSkillID == "" || record.WantedSkillID == "" {
		return storage.SwapRecord{}, fmt.Errorf("swap skills are required")
	}
	if record.Status == "" {
		return storage.SwapRecord{}, fmt.Errorf("swap status is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.SwapRecord{}, fmt.Errorf("swap created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	return record, nil
}

func scanSwap(scan scanner) (storage.SwapRecord, error) {
	var record storage.SwapRecord
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.RequesterID,
		&record.ResponderID,
		&record.OfferedSkillID,
		&record.WantedSkillID,
		&record.Status,
		&record.Message,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.SwapRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
