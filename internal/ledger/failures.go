package ledger

import (
	"fmt"
	"time"
)

// RecordApprovalFailure stores a terminal approval failure for manual
// remediation. The matching pending_joins row is left in place by the
// caller.
func (s *Store) RecordApprovalFailure(userID, communityID int64, reason string) error {
	_, err := s.db.Exec(`
		INSERT INTO approval_failures (user_id, community_id, reason, failed_at)
		VALUES (?, ?, ?, ?)
	`, userID, communityID, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record approval failure (%d, %d): %w", userID, communityID, err)
	}
	return nil
}

// ListApprovalFailures returns recorded terminal failures, newest first.
func (s *Store) ListApprovalFailures(limit int) ([]ApprovalFailure, error) {
	query := `
		SELECT id, user_id, community_id, reason, failed_at FROM approval_failures
		ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []ApprovalFailure
	for rows.Next() {
		var f ApprovalFailure
		if err := rows.Scan(&f.ID, &f.UserID, &f.CommunityID, &f.Reason, &f.FailedAt); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
