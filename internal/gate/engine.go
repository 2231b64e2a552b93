// Package gate implements the pledge-gated join approval engine: it
// consumes platform updates, defers join requests until the requester
// has accepted the safety pledge, and approves deferred requests once
// consent is recorded.
package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pledgegate/pledgegate/internal/audit"
	"github.com/pledgegate/pledgegate/internal/config"
	"github.com/pledgegate/pledgegate/internal/ledger"
	"github.com/pledgegate/pledgegate/internal/menu"
	"github.com/pledgegate/pledgegate/internal/metrics"
	"github.com/pledgegate/pledgegate/internal/notify"
	"github.com/pledgegate/pledgegate/internal/telegram"
)

// Approval outcomes, used for metrics labels and reconcile reports.
const (
	outcomeApproved        = "approved"
	outcomeAlreadyResolved = "already_resolved"
	outcomeTransient       = "transient"
	outcomePermanent       = "permanent"
)

// Engine holds the gate's state machine. All mutation goes through the
// ledger, so handlers stay idempotent under redelivered updates.
type Engine struct {
	cfg     config.EngineConfig
	store   *ledger.Store
	gateway Gateway
	metrics *metrics.Metrics
	audit   *audit.Publisher
	alerts  *notify.Notifier
}

func NewEngine(cfg config.EngineConfig, store *ledger.Store, gw Gateway, m *metrics.Metrics, aud *audit.Publisher, alerts *notify.Notifier) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   store,
		gateway: gw,
		metrics: m,
		audit:   aud,
		alerts:  alerts,
	}
}

// Handle classifies one update and runs the matching handler. Handler
// errors are returned to the dispatcher, which logs and moves on.
func (e *Engine) Handle(ctx context.Context, u telegram.Update) error {
	kind := Classify(u)
	e.metrics.IncUpdate(kind)

	var err error
	switch kind {
	case KindMessage:
		err = e.handleMessage(ctx, u.Message)
	case KindInteraction:
		err = e.handleInteraction(ctx, u.CallbackQuery)
	case KindJoinRequest:
		err = e.handleJoinRequest(ctx, u.ChatJoinRequest)
	default:
		slog.Warn("Unclassifiable update dropped", "update_id", u.UpdateID)
	}
	if err != nil {
		e.metrics.IncHandlerFailure(kind)
	}
	return err
}

// handleMessage processes direct messages to the bot. Group chatter is
// not gate traffic and is ignored.
func (e *Engine) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg.From == nil || msg.From.IsBot {
		return nil
	}
	if msg.Chat.Type != "private" {
		return nil
	}
	userID := msg.From.ID
	tag, isStart := menu.ParseStartPayload(msg.Text)
	user, err := e.store.UpsertUser(userID, msg.From.DisplayName(), tag)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	if isStart && tag != "" {
		slog.Info("Start with campaign tag", "user_id", userID, "tag", tag, "recorded_tag", user.AcquisitionTag)
	}
	if !user.ConsentGranted {
		// Every DM before consent re-shows the pledge.
		return e.sendPledge(ctx, userID)
	}
	if isStart {
		if _, err := e.gateway.SendMessage(ctx, userID, menu.AlreadyConsentedText, menu.WelcomeKeyboard()); err != nil {
			return fmt.Errorf("send menu: %w", err)
		}
	}
	return nil
}

// handleInteraction processes inline keyboard presses.
func (e *Engine) handleInteraction(ctx context.Context, cb *telegram.CallbackQuery) error {
	userID := cb.From.ID
	if _, err := e.store.UpsertUser(userID, cb.From.DisplayName(), ""); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	// Reply where the menu lives; falls back to the DM.
	chatID := userID
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}

	switch cb.Data {
	case menu.CallbackPledgeAgree:
		return e.handlePledgeAgree(ctx, cb, chatID)
	case menu.CallbackShowRules:
		e.ackInteraction(ctx, cb.ID, "")
		return e.forwardContent(ctx, chatID, e.cfg.RulesMessageIDs)
	case menu.CallbackShowGuides:
		e.ackInteraction(ctx, cb.ID, "")
		return e.forwardContent(ctx, chatID, e.cfg.ResourceMessageIDs)
	default:
		slog.Warn("Unknown callback ignored", "user_id", userID, "data", cb.Data)
		e.ackInteraction(ctx, cb.ID, "")
		return nil
	}
}

// handlePledgeAgree records consent and drains the user's deferred
// joins. A replayed press does not transition state again but still
// runs a reconciliation pass, giving users a self-service retry for
// approvals that failed transiently.
func (e *Engine) handlePledgeAgree(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) error {
	userID := cb.From.ID
	granted, err := e.store.GrantConsent(userID)
	if err != nil {
		return fmt.Errorf("grant consent: %w", err)
	}
	if granted {
		slog.Info("Consent granted", "user_id", userID)
		e.audit.Emit(ctx, audit.Event{Kind: audit.EventConsentGranted, UserID: userID})
		e.ackInteraction(ctx, cb.ID, menu.PledgeAckToast)
		// Consent is durable at this point; a failed welcome message
		// must not block reconciliation.
		if _, err := e.gateway.SendMessage(ctx, chatID, menu.WelcomeText, menu.WelcomeKeyboard()); err != nil {
			slog.Warn("Welcome message failed", "user_id", userID, "error", err)
		}
	} else {
		e.ackInteraction(ctx, cb.ID, menu.PledgeAckToast)
	}
	if _, err := e.Reconcile(ctx, userID); err != nil {
		return fmt.Errorf("reconcile after consent: %w", err)
	}
	return nil
}

// handleJoinRequest branches on consent: approve directly when already
// consented, otherwise park the request and prompt for the pledge.
func (e *Engine) handleJoinRequest(ctx context.Context, jr *telegram.ChatJoinRequest) error {
	userID, communityID := jr.From.ID, jr.Chat.ID
	if !e.gated(communityID) {
		slog.Debug("Join request outside gated communities", "user_id", userID, "community_id", communityID)
		return nil
	}
	if _, err := e.store.UpsertUser(userID, jr.From.DisplayName(), ""); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	consented, err := e.store.IsConsented(userID)
	if err != nil {
		return fmt.Errorf("read consent: %w", err)
	}

	if consented {
		err := e.gateway.ApproveJoinRequest(ctx, communityID, userID)
		switch {
		case err == nil:
			e.metrics.IncApproval(outcomeApproved)
			e.audit.Emit(ctx, audit.Event{Kind: audit.EventJoinApproved, UserID: userID, CommunityID: communityID})
			slog.Info("Join request approved", "user_id", userID, "community_id", communityID)
			return nil
		case telegram.IsAlreadyResolved(err):
			e.metrics.IncApproval(outcomeAlreadyResolved)
			return nil
		default:
			// Safety net: park the request so a later pass can finish
			// the job.
			if addErr := e.store.AddPendingJoin(userID, communityID); addErr != nil {
				return fmt.Errorf("park failed approval: %w", addErr)
			}
			e.updatePendingGauge()
			if telegram.IsPermanent(err) {
				e.recordPermanentFailure(ctx, userID, communityID, err)
			} else {
				e.metrics.IncApproval(outcomeTransient)
			}
			return fmt.Errorf("approve join: %w", err)
		}
	}

	// Defer until the pledge is accepted.
	if err := e.store.AddPendingJoin(userID, communityID); err != nil {
		return fmt.Errorf("add pending join: %w", err)
	}
	e.updatePendingGauge()
	e.audit.Emit(ctx, audit.Event{Kind: audit.EventJoinDeferred, UserID: userID, CommunityID: communityID})
	slog.Info("Join request deferred", "user_id", userID, "community_id", communityID)
	if err := e.sendPledge(ctx, userID); err != nil {
		// Expected for users who never opened the bot; they get the
		// pledge on their first /start instead.
		slog.Warn("Pledge prompt undeliverable", "user_id", userID, "error", err)
	}
	return nil
}

func (e *Engine) sendPledge(ctx context.Context, userID int64) error {
	if _, err := e.gateway.SendMessage(ctx, userID, menu.PledgeText, menu.PledgeKeyboard()); err != nil {
		return fmt.Errorf("send pledge prompt: %w", err)
	}
	return nil
}

func (e *Engine) forwardContent(ctx context.Context, chatID int64, messageIDs []int) error {
	if e.cfg.ContentChannelID == 0 || len(messageIDs) == 0 {
		return nil
	}
	if err := e.gateway.CopyMessages(ctx, chatID, e.cfg.ContentChannelID, messageIDs); err != nil {
		return fmt.Errorf("copy content: %w", err)
	}
	return nil
}

func (e *Engine) ackInteraction(ctx context.Context, callbackID, text string) {
	if err := e.gateway.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		slog.Warn("Interaction ack failed", "callback_id", callbackID, "error", err)
	}
}

func (e *Engine) recordPermanentFailure(ctx context.Context, userID, communityID int64, cause error) {
	e.metrics.IncApproval(outcomePermanent)
	if err := e.store.RecordApprovalFailure(userID, communityID, cause.Error()); err != nil {
		slog.Error("Approval failure not recorded", "user_id", userID, "community_id", communityID, "error", err)
	}
	e.audit.Emit(ctx, audit.Event{
		Kind:        audit.EventApprovalFailed,
		UserID:      userID,
		CommunityID: communityID,
		Detail:      cause.Error(),
	})
	e.alerts.PermanentFailure(ctx, userID, communityID, cause.Error())
	slog.Error("Join approval permanently failed", "user_id", userID, "community_id", communityID, "error", cause)
}

func (e *Engine) updatePendingGauge() {
	if n, err := e.store.CountPendingJoins(); err == nil {
		e.metrics.SetPendingJoins(n)
	}
}

func (e *Engine) gated(communityID int64) bool {
	if len(e.cfg.Communities) == 0 {
		return true
	}
	for _, id := range e.cfg.Communities {
		if id == communityID {
			return true
		}
	}
	return false
}
