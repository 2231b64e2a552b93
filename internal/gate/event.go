package gate

import "github.com/pledgegate/pledgegate/internal/telegram"

// Update kinds produced by Classify. Every update maps to exactly one.
const (
	KindMessage     = "message"
	KindInteraction = "interaction"
	KindJoinRequest = "join_request"
	KindUnknown     = "unknown"
)

// Classify routes an update on its shape. Join requests win over the
// other variants because they are the events the gate exists for.
func Classify(u telegram.Update) string {
	switch {
	case u.ChatJoinRequest != nil:
		return KindJoinRequest
	case u.CallbackQuery != nil:
		return KindInteraction
	case u.Message != nil:
		return KindMessage
	default:
		return KindUnknown
	}
}
