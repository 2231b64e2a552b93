package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pledgegate/pledgegate/internal/audit"
	"github.com/pledgegate/pledgegate/internal/config"
	"github.com/pledgegate/pledgegate/internal/gate"
	"github.com/pledgegate/pledgegate/internal/ledger"
	"github.com/pledgegate/pledgegate/internal/metrics"
	"github.com/pledgegate/pledgegate/internal/notify"
	"github.com/pledgegate/pledgegate/internal/ops"
	"github.com/pledgegate/pledgegate/internal/telegram"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the join approval engine",
	Run:   runEngine,
}

var runSignalNotify = signal.Notify
var runSignalStop = signal.Stop

func runEngine(cmd *cobra.Command, args []string) {
	printHeader("🛡️ PledgeGate Engine")
	fmt.Println("Starting PledgeGate...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.Logging)

	if cfg.Telegram.Token == "" {
		fmt.Println("Error: no bot token configured. Set telegram.token or TELEGRAM_BOT_TOKEN.")
		os.Exit(1)
	}

	// 2. Open Ledger
	store, err := ledger.Open(cfg.Store.Path)
	if err != nil {
		fmt.Printf("Ledger error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 3. Telegram client. The HTTP timeout must outlive the server-side
	// long poll, which Load already guarantees.
	client := telegram.NewClient(
		&http.Client{Timeout: cfg.Telegram.RequestTimeout},
		cfg.Telegram.APIBaseURL,
		cfg.Telegram.Token,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	me, err := client.GetMe(ctx)
	if err != nil {
		fmt.Printf("Telegram error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Engine.BotUsername == "" {
		cfg.Engine.BotUsername = me.Username
	}
	fmt.Printf("Bot: @%s (token %s)\n", me.Username, maskSecret(cfg.Telegram.Token))

	// 4. Setup components
	m := metrics.New()
	auditPub := audit.NewPublisher(cfg.Audit)
	defer auditPub.Close()
	alerts := notify.NewNotifier(cfg.Notify)

	engine := gate.NewEngine(cfg.Engine, store, client, m, auditPub, alerts)
	dispatcher := gate.NewDispatcher(client, engine, store, m, cfg.Telegram.PollTimeout)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	runSignalNotify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer runSignalStop(sigChan)

	// 5. Start Ops Server
	if cfg.Ops.Enabled {
		opsSrv := ops.NewServer(cfg.Ops, store, engine)
		go func() {
			if err := opsSrv.Run(ctx); err != nil {
				slog.Error("Ops server failed", "error", err)
			}
		}()
	}

	// 6. Start Dispatcher
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := dispatcher.Run(ctx); err != nil {
			slog.Error("Dispatcher stopped", "error", err)
		}
	}()

	fmt.Println("PledgeGate running. Press Ctrl+C to stop.")
	<-sigChan

	fmt.Println("Shutting down...")
	cancel()
	<-done
}

func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
