// Package menu holds the bot-facing texts, inline keyboards, and
// callback identifiers for the pledge flow.
package menu

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pledgegate/pledgegate/internal/telegram"
)

// Callback data carried by inline keyboard buttons. Kept short because
// Telegram caps callback data at 64 bytes.
const (
	CallbackPledgeAgree = "pledge:agree"
	CallbackShowRules   = "menu:rules"
	CallbackShowGuides  = "menu:guides"
)

const PledgeText = "Before joining the Support Group, confirm:\n\n" +
	"✅ I will not DM members for 'help'\n" +
	"✅ I will never share OTP / PIN / passwords\n" +
	"✅ I will follow only official posts from this bot/channel\n\n" +
	"Press I Agree to continue."

const WelcomeText = "You're all set. Your pending join requests are being processed.\n\n" +
	"Use the buttons below anytime."

const AlreadyConsentedText = "You've already confirmed the pledge. Nothing else to do."

// PledgeAckToast shows as a toast when the agree button is pressed.
const PledgeAckToast = "Pledge recorded ✅"

func PledgeKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{{Text: "I Agree ✅", CallbackData: CallbackPledgeAgree}},
	}}
}

func WelcomeKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{
			{Text: "📋 Group Rules", CallbackData: CallbackShowRules},
			{Text: "📚 Safety Guides", CallbackData: CallbackShowGuides},
		},
	}}
}

// Deep-link payloads are limited to 64 characters of this alphabet by
// the platform; anything else is treated as absent.
var startPayloadPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidTag reports whether tag can travel as a deep-link payload.
func ValidTag(tag string) bool {
	return startPayloadPattern.MatchString(tag)
}

// ParseStartPayload extracts the acquisition tag from a /start command.
// "/start" alone and malformed payloads yield an empty tag.
func ParseStartPayload(text string) (tag string, isStart bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", false
	}
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	if cmd != "/start" {
		return "", false
	}
	if len(fields) < 2 {
		return "", true
	}
	payload := fields[1]
	if !startPayloadPattern.MatchString(payload) {
		return "", true
	}
	return payload, true
}

// DeepLink builds the t.me URL that seeds a campaign tag via /start.
func DeepLink(botUsername, tag string) string {
	botUsername = strings.TrimPrefix(strings.TrimSpace(botUsername), "@")
	if strings.TrimSpace(tag) == "" {
		return fmt.Sprintf("https://t.me/%s", botUsername)
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, strings.TrimSpace(tag))
}
