// Package config provides configuration types and loading for pledgegate.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Telegram, Store, Engine, Audit, Notify, Ops, Logging.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Store    StoreConfig    `json:"store"`
	Engine   EngineConfig   `json:"engine"`
	Audit    AuditConfig    `json:"audit"`
	Notify   NotifyConfig   `json:"notify"`
	Ops      OpsConfig      `json:"ops"`
	Logging  LoggingConfig  `json:"logging"`
}

// ---------------------------------------------------------------------------
// Telegram – Bot API connection
// ---------------------------------------------------------------------------

// TelegramConfig configures the Bot API connection.
type TelegramConfig struct {
	Token          string        `json:"token" envconfig:"TOKEN"`
	APIBaseURL     string        `json:"apiBaseUrl,omitempty" envconfig:"API_BASE_URL"`
	PollTimeout    time.Duration `json:"pollTimeout" envconfig:"POLL_TIMEOUT"`
	RequestTimeout time.Duration `json:"requestTimeout" envconfig:"REQUEST_TIMEOUT"`
}

// ---------------------------------------------------------------------------
// Store – ledger database location
// ---------------------------------------------------------------------------

// StoreConfig configures the SQLite ledger.
type StoreConfig struct {
	Path string `json:"path" envconfig:"PATH"`
}

// ---------------------------------------------------------------------------
// Engine – join gating behaviour
// ---------------------------------------------------------------------------

// EngineConfig configures the approval engine and its menu content.
type EngineConfig struct {
	// BotUsername is used for t.me deep links. Filled from getMe at
	// startup when empty.
	BotUsername string `json:"botUsername" envconfig:"BOT_USERNAME"`
	// Communities restricts which chats the engine gates. Empty means
	// every chat the bot receives join requests for.
	Communities []int64 `json:"communities"`
	// ContentChannelID is the broadcast channel that rules/resource
	// posts are copied from.
	ContentChannelID   int64 `json:"contentChannelId" envconfig:"CONTENT_CHANNEL_ID"`
	RulesMessageIDs    []int `json:"rulesMessageIds"`
	ResourceMessageIDs []int `json:"resourceMessageIds"`
}

// ---------------------------------------------------------------------------
// Audit – Kafka decision trail
// ---------------------------------------------------------------------------

// AuditConfig configures the optional Kafka audit publisher.
type AuditConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	Brokers string `json:"brokers" envconfig:"BROKERS"`
	Topic   string `json:"topic" envconfig:"TOPIC"`
}

// ---------------------------------------------------------------------------
// Notify – operator alerting
// ---------------------------------------------------------------------------

// NotifyConfig configures where permanent approval failures are surfaced.
type NotifyConfig struct {
	SlackWebhookURL string `json:"slackWebhookUrl" envconfig:"SLACK_WEBHOOK_URL"`
}

// ---------------------------------------------------------------------------
// Ops – local HTTP server (health, metrics, sweep)
// ---------------------------------------------------------------------------

// OpsConfig configures the local ops HTTP server.
type OpsConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	Host    string `json:"host" envconfig:"HOST"`
	Port    int    `json:"port" envconfig:"PORT"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	Level string `json:"level" envconfig:"LEVEL"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			APIBaseURL:     "https://api.telegram.org",
			PollTimeout:    50 * time.Second,
			RequestTimeout: 65 * time.Second,
		},
		Store: StoreConfig{
			Path: "~/.pledgegate/pledgegate.db",
		},
		Audit: AuditConfig{
			Enabled: false,
			Topic:   "pledgegate.audit",
		},
		Ops: OpsConfig{
			Enabled: true,
			Host:    "127.0.0.1", // Secure default
			Port:    18890,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
