package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pledgegate/pledgegate/internal/audit"
	"github.com/pledgegate/pledgegate/internal/config"
	"github.com/pledgegate/pledgegate/internal/gate"
	"github.com/pledgegate/pledgegate/internal/ledger"
	"github.com/pledgegate/pledgegate/internal/notify"
	"github.com/pledgegate/pledgegate/internal/telegram"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reconcile deferred joins for all consented users",
	Long:  "Walks the pending queue and retries approval for every consented user.\nUseful after an outage or a permissions fix.",
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	printHeader("🧹 PledgeGate Sweep")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.Logging)
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("no bot token configured")
	}

	store, err := ledger.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	client := telegram.NewClient(
		&http.Client{Timeout: cfg.Telegram.RequestTimeout},
		cfg.Telegram.APIBaseURL,
		cfg.Telegram.Token,
	)
	auditPub := audit.NewPublisher(cfg.Audit)
	defer auditPub.Close()

	engine := gate.NewEngine(cfg.Engine, store, client, nil, auditPub, notify.NewNotifier(cfg.Notify))

	reports, err := engine.Sweep(context.Background())
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	if len(reports) == 0 {
		fmt.Println("Nothing to reconcile.")
		return nil
	}

	for _, r := range reports {
		fmt.Printf("User %d: %d approved, %d already resolved, %d transient, %d permanent\n",
			r.UserID, len(r.Approved), len(r.AlreadyResolved), len(r.Transient), len(r.Permanent))
	}
	fmt.Printf("Swept %d user(s).\n", len(reports))
	return nil
}
