package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/skillswap/internal/services/swaps/storage"
)

// GetUser loads one user account.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.UserRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.UserRecord{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.UserRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, s.q(`
SELECT id, name, email, is_admin, is_banned, created_at
FROM users
WHERE id = ?
`), userID)
	var record storage.UserRecord
	var createdAt int64
	if err := row.Scan(&record.ID, &record.Name, &record.Email, &record.IsAdmin, &record.IsBanned, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UserRecord{}, storage.ErrNotFound
		}
		return storage.UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// PutUser inserts or replaces one user account.
func (s *Store) PutUser(ctx context.Context, record storage.UserRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	record.Name = strings.TrimSpace(record.Name)
	record.Email = strings.TrimSpace(record.Email)
	if record.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if record.Name == "" {
		return fmt.Errorf("user name is required")
	}
	if record.Email == "" {
		return fmt.Errorf("user email is required")
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("user created_at is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, s.q(`
INSERT INTO users (id, name, email, is_admin, is_banned, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	email = excluded.email,
	is_admin = excluded.is_admin,
	is_banned = excluded.is_banned
`),
		record.ID,
		record.Name,
		record.Email,
		record.IsAdmin,
		record.IsBanned,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetSkill loads one skill.
func (s *Store) GetSkill(ctx context.Context, skillID string) (storage.SkillRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SkillRecord{}, err
	}
	skillID = strings.TrimSpace(skillID)
	if skillID == "" {
		return storage.SkillRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, s.q(`SELECT id, name, description FROM skills WHERE id = ?`), skillID)
	var record storage.SkillRecord
	if err := row.Scan(&record.ID, &record.Name, &record.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SkillRecord{}, storage.ErrNotFound
		}
		return storage.SkillRecord{}, fmt.Errorf("get skill: %w", err)
	}
	return record, nil
}

// PutSkill inserts or replaces one skill.
func (s *Store) PutSkill(ctx context.Context, record storage.SkillRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	record.Name = strings.TrimSpace(record.Name)
	if record.ID == "" {
		return fmt.Errorf("skill id is required")
	}
	if record.Name == "" {
		return fmt.Errorf("skill name is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, s.q(`
INSERT INTO skills (id, name, description)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	description = excluded.description
`), record.ID, record.Name, record.Description)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put skill: %w", err)
	}
	return nil
}

// UserOffersSkill reports whether the user lists the skill as offered.
func (s *Store) UserOffersSkill(ctx context.Context, userID string, skillID string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var found int
	err := s.sqlDB.QueryRowContext(ctx, s.q(`
SELECT 1 FROM user_offered_skills WHERE user_id = ? AND skill_id = ?
`), strings.TrimSpace(userID), strings.TrimSpace(skillID)).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check offered skill: %w", err)
	}
	return true, nil
}

// PutOfferedSkill adds a skill to the user's offered set. Repeats are no-ops.
func (s *Store) PutOfferedSkill(ctx context.Context, userID string, skillID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	skillID = strings.TrimSpace(skillID)
	if userID == "" || skillID == "" {
		return fmt.Errorf("user id and skill id are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, s.q(`
INSERT INTO user_offered_skills (user_id, skill_id)
VALUES (?, ?)
ON CONFLICT(user_id, skill_id) DO NOTHING
`), userID, skillID)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put offered skill: %w", err)
	}
	return nil
}
