package ledger

import (
	"time"
)

// TagOrganic is the sentinel acquisition tag recorded when a user is
// first seen without a campaign deep link. A real campaign tag, once
// recorded, is never overwritten by a later organic sighting.
const TagOrganic = "organic"

// User is a row in the consent ledger.
type User struct {
	UserID         int64      `json:"user_id"`
	DisplayName    string     `json:"display_name"`
	AcquisitionTag string     `json:"acquisition_tag"`
	ConsentGranted bool       `json:"consent_granted"`
	ConsentAt      *time.Time `json:"consent_at,omitempty"`
	FirstSeenAt    time.Time  `json:"first_seen_at"`
	LastSeenAt     time.Time  `json:"last_seen_at"`
}

// PendingJoin is a deferred join request awaiting the user's consent.
// At most one row exists per (user, community) pair.
type PendingJoin struct {
	UserID      int64     `json:"user_id"`
	CommunityID int64     `json:"community_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// ApprovalFailure records a permanently failed approval attempt so an
// operator can remediate it by hand. The pending row it refers to is
// kept alongside it.
type ApprovalFailure struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CommunityID int64     `json:"community_id"`
	Reason      string    `json:"reason"`
	FailedAt    time.Time `json:"failed_at"`
}

// Stats summarises the ledger for the status/ops surfaces.
type Stats struct {
	TotalUsers     int            `json:"total_users"`
	ConsentedUsers int            `json:"consented_users"`
	PendingJoins   int            `json:"pending_joins"`
	TagBreakdown   map[string]int `json:"tag_breakdown"`
}

const Schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id INTEGER PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	acquisition_tag TEXT NOT NULL DEFAULT 'organic',
	consent_granted BOOLEAN NOT NULL DEFAULT 0,
	consent_at DATETIME,
	first_seen_at DATETIME NOT NULL,
	last_seen_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_consent ON users(consent_granted);
CREATE INDEX IF NOT EXISTS idx_users_tag ON users(acquisition_tag);

CREATE TABLE IF NOT EXISTS pending_joins (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	community_id INTEGER NOT NULL,
	requested_at DATETIME NOT NULL,
	UNIQUE(user_id, community_id)
);

CREATE INDEX IF NOT EXISTS idx_pending_user ON pending_joins(user_id);

CREATE TABLE IF NOT EXISTS approval_failures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	community_id INTEGER NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	failed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_failures_user ON approval_failures(user_id);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at DATETIME
);
`
