package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUserNotFound is returned by GetUser for unknown user IDs.
var ErrUserNotFound = errors.New("ledger: user not found")

// UpsertUser records a sighting of userID. It creates the row on first
// sight (consent false, tag defaulting to "organic") and otherwise
// refreshes last_seen_at. A non-empty displayName always replaces the
// stored one. The acquisition tag follows first-non-empty-wins: once a
// real campaign tag is recorded, later sightings never change it, and
// an organic sighting never erases a campaign tag.
func (s *Store) UpsertUser(userID int64, displayName, acquisitionTag string) (*User, error) {
	tag := strings.TrimSpace(acquisitionTag)
	if tag == "" {
		tag = TagOrganic
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO users (user_id, display_name, acquisition_tag, consent_granted, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = CASE
				WHEN excluded.display_name != '' THEN excluded.display_name
				ELSE users.display_name
			END,
			acquisition_tag = CASE
				WHEN users.acquisition_tag = ? AND excluded.acquisition_tag != ? THEN excluded.acquisition_tag
				ELSE users.acquisition_tag
			END,
			last_seen_at = excluded.last_seen_at
	`, userID, strings.TrimSpace(displayName), tag, now, now, TagOrganic, TagOrganic)
	if err != nil {
		return nil, fmt.Errorf("upsert user %d: %w", userID, err)
	}
	return s.GetUser(userID)
}

// GrantConsent flips consent_granted to true. The bool reports whether
// this call performed the transition; a repeat grant returns false.
// Consent never reverts.
func (s *Store) GrantConsent(userID int64) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE users SET consent_granted = 1, consent_at = ?
		WHERE user_id = ? AND consent_granted = 0
	`, time.Now().UTC(), userID)
	if err != nil {
		return false, fmt.Errorf("grant consent for %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsConsented reports whether userID has accepted the pledge. Unknown
// users are not consented.
func (s *Store) IsConsented(userID int64) (bool, error) {
	var granted bool
	err := s.db.QueryRow(`SELECT consent_granted FROM users WHERE user_id = ?`, userID).Scan(&granted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return granted, nil
}

// GetUser returns the ledger row for userID.
func (s *Store) GetUser(userID int64) (*User, error) {
	row := s.db.QueryRow(`
		SELECT user_id, display_name, acquisition_tag, consent_granted, consent_at, first_seen_at, last_seen_at
		FROM users WHERE user_id = ?
	`, userID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ListUsers returns users ordered by first sighting, newest first.
func (s *Store) ListUsers(limit, offset int) ([]User, error) {
	query := `
		SELECT user_id, display_name, acquisition_tag, consent_granted, consent_at, first_seen_at, last_seen_at
		FROM users ORDER BY first_seen_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Stats aggregates ledger counts for the status and ops surfaces.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{TagBreakdown: map[string]int{}}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&st.TotalUsers); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE consent_granted = 1`).Scan(&st.ConsentedUsers); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pending_joins`).Scan(&st.PendingJoins); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT acquisition_tag, COUNT(*) FROM users GROUP BY acquisition_tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		var n int
		if err := rows.Scan(&tag, &n); err != nil {
			return nil, err
		}
		st.TagBreakdown[tag] = n
	}
	return st, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (*User, error) {
	var u User
	var consentAt sql.NullTime
	if err := r.Scan(&u.UserID, &u.DisplayName, &u.AcquisitionTag, &u.ConsentGranted, &consentAt, &u.FirstSeenAt, &u.LastSeenAt); err != nil {
		return nil, err
	}
	if consentAt.Valid {
		t := consentAt.Time
		u.ConsentAt = &t
	}
	return &u, nil
}
