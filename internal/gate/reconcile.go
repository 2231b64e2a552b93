package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pledgegate/pledgegate/internal/audit"
	"github.com/pledgegate/pledgegate/internal/telegram"
)

// Report summarizes one reconciliation pass for a single user.
// Communities are listed under the outcome their approval attempt hit.
type Report struct {
	UserID          int64   `json:"user_id"`
	Approved        []int64 `json:"approved,omitempty"`
	AlreadyResolved []int64 `json:"already_resolved,omitempty"`
	Transient       []int64 `json:"transient,omitempty"`
	Permanent       []int64 `json:"permanent,omitempty"`
}

// Drained reports whether every pending join was cleared.
func (r *Report) Drained() bool {
	return len(r.Transient) == 0 && len(r.Permanent) == 0
}

func (r *Report) Total() int {
	return len(r.Approved) + len(r.AlreadyResolved) + len(r.Transient) + len(r.Permanent)
}

// Reconcile drains the user's pending joins, attempting approval for
// each. Entries that succeed or turn out already resolved are removed;
// transient failures stay for the next trigger; permanent failures stay
// and are surfaced to operators. A failure on one community never
// blocks the others.
func (e *Engine) Reconcile(ctx context.Context, userID int64) (*Report, error) {
	pending, err := e.store.ListPendingByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list pending joins: %w", err)
	}
	report := &Report{UserID: userID}
	for _, pj := range pending {
		communityID := pj.CommunityID
		err := e.gateway.ApproveJoinRequest(ctx, communityID, userID)
		switch {
		case err == nil:
			if err := e.store.RemovePendingJoin(userID, communityID); err != nil {
				return report, fmt.Errorf("remove pending join: %w", err)
			}
			report.Approved = append(report.Approved, communityID)
			e.metrics.IncApproval(outcomeApproved)
			e.audit.Emit(ctx, audit.Event{Kind: audit.EventJoinApproved, UserID: userID, CommunityID: communityID})
			slog.Info("Deferred join approved", "user_id", userID, "community_id", communityID)
		case telegram.IsAlreadyResolved(err):
			if err := e.store.RemovePendingJoin(userID, communityID); err != nil {
				return report, fmt.Errorf("remove pending join: %w", err)
			}
			report.AlreadyResolved = append(report.AlreadyResolved, communityID)
			e.metrics.IncApproval(outcomeAlreadyResolved)
			slog.Info("Deferred join already resolved", "user_id", userID, "community_id", communityID)
		case telegram.IsPermanent(err):
			report.Permanent = append(report.Permanent, communityID)
			e.recordPermanentFailure(ctx, userID, communityID, err)
		default:
			report.Transient = append(report.Transient, communityID)
			e.metrics.IncApproval(outcomeTransient)
			slog.Warn("Deferred join approval failed, will retry", "user_id", userID, "community_id", communityID, "error", err)
		}
	}
	e.metrics.IncReconcilePass()
	e.updatePendingGauge()
	return report, nil
}

// Sweep reconciles every consented user that still has pending joins.
// It never runs on its own; operators invoke it after fixing whatever
// made approvals fail. Unconsented users' entries are left untouched.
func (e *Engine) Sweep(ctx context.Context) ([]Report, error) {
	users, err := e.store.UsersWithPending()
	if err != nil {
		return nil, fmt.Errorf("list users with pending joins: %w", err)
	}
	var reports []Report
	for _, userID := range users {
		consented, err := e.store.IsConsented(userID)
		if err != nil {
			return reports, fmt.Errorf("read consent: %w", err)
		}
		if !consented {
			continue
		}
		rep, err := e.Reconcile(ctx, userID)
		if err != nil {
			return reports, err
		}
		reports = append(reports, *rep)
	}
	e.audit.Emit(ctx, audit.Event{Kind: audit.EventSweepCompleted, Detail: fmt.Sprintf("users=%d", len(reports))})
	slog.Info("Sweep completed", "users", len(reports))
	return reports, nil
}
