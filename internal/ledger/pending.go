package ledger

import (
	"fmt"
	"time"
)

// AddPendingJoin records a deferred join request. A repeat request for
// the same (user, community) pair replaces the timestamp instead of
// adding a second row.
func (s *Store) AddPendingJoin(userID, communityID int64) error {
	_, err := s.db.Exec(`
		INSERT INTO pending_joins (user_id, community_id, requested_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, community_id) DO UPDATE SET requested_at = excluded.requested_at
	`, userID, communityID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add pending join (%d, %d): %w", userID, communityID, err)
	}
	return nil
}

// ListPendingByUser returns the user's deferred joins in insertion order.
func (s *Store) ListPendingByUser(userID int64) ([]PendingJoin, error) {
	rows, err := s.db.Query(`
		SELECT user_id, community_id, requested_at FROM pending_joins
		WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingJoin
	for rows.Next() {
		var p PendingJoin
		if err := rows.Scan(&p.UserID, &p.CommunityID, &p.RequestedAt); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// RemovePendingJoin deletes a deferred join. Removing an absent pair is
// a no-op.
func (s *Store) RemovePendingJoin(userID, communityID int64) error {
	_, err := s.db.Exec(`DELETE FROM pending_joins WHERE user_id = ? AND community_id = ?`, userID, communityID)
	if err != nil {
		return fmt.Errorf("remove pending join (%d, %d): %w", userID, communityID, err)
	}
	return nil
}

// ListPendingJoins returns deferred joins across all users, oldest first.
func (s *Store) ListPendingJoins(limit int) ([]PendingJoin, error) {
	query := `SELECT user_id, community_id, requested_at FROM pending_joins ORDER BY id`
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

	var pending []PendingJoin
	for rows.Next() {
		var p PendingJoin
		if err := rows.Scan(&p.UserID, &p.CommunityID, &p.RequestedAt); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// UsersWithPending returns the distinct user IDs that still have
// deferred joins, in first-request order. The sweep walks this list.
func (s *Store) UsersWithPending() ([]int64, error) {
	rows, err := s.db.Query(`SELECT user_id FROM pending_joins GROUP BY user_id ORDER BY MIN(id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountPendingJoins returns the total number of deferred joins.
func (s *Store) CountPendingJoins() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pending_joins`).Scan(&n)
	return n, err
}
