// Package audit publishes gate decisions to a Kafka topic so that
// compliance tooling can replay who was approved, when, and why.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/pledgegate/pledgegate/internal/config"
)

// Event kinds emitted by the gate.
const (
	EventConsentGranted = "consent_granted"
	EventJoinDeferred   = "join_deferred"
	EventJoinApproved   = "join_approved"
	EventApprovalFailed = "approval_failed"
	EventSweepCompleted = "sweep_completed"
)

// Event is one audit record.
type Event struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	At          time.Time `json:"at"`
	UserID      int64     `json:"user_id,omitempty"`
	CommunityID int64     `json:"community_id,omitempty"`
	Tag         string    `json:"tag,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes audit events. A disabled config yields a no-op
// publisher, so callers emit unconditionally.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(cfg config.AuditConfig) *Publisher {
	if !cfg.Enabled || strings.TrimSpace(cfg.Brokers) == "" {
		return &Publisher{}
	}
	brokers := strings.Split(cfg.Brokers, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}}
}

// Emit publishes one event. Publishing is best effort; a failed write
// is logged and dropped so the gate never stalls on the audit path.
// Messages are keyed by user so per-user order survives partitioning.
func (p *Publisher) Emit(ctx context.Context, ev Event) {
	if p == nil || p.writer == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("Audit event marshal failed", "kind", ev.Kind, "error", err)
		return
	}
	msg := kafka.Message{
		Key:     []byte(strconv.FormatInt(ev.UserID, 10)),
		Value:   value,
		Headers: []kafka.Header{{Key: "schema", Value: []byte("pledgegate.audit.v1")}},
		Time:    ev.At,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Warn("Audit publish failed", "kind", ev.Kind, "error", err)
	}
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
