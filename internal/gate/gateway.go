package gate

import (
	"context"
	"time"

	"github.com/pledgegate/pledgegate/internal/telegram"
)

// Feed is the inbound update stream. Pulls are long polls; the returned
// offset is where the next pull should start. Delivery is at least
// once, so everything downstream of a Feed must tolerate duplicates.
type Feed interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, int64, error)
}

// Gateway is the outbound platform surface the engine drives. It is
// the subset of the Bot API client the gate actually calls, so tests
// can fake it.
type Gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) (*telegram.Message, error)
	CopyMessages(ctx context.Context, chatID, fromChatID int64, messageIDs []int) error
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
}
