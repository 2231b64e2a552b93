package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pledgegate/pledgegate/internal/config"
	"github.com/pledgegate/pledgegate/internal/ledger"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ PledgeGate Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 PledgeGate Status")
		fmt.Printf("Version: %s\n", version)

		// Check config
		configPath, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Println("Config:  ✓ Found (" + configPath + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (run 'pledgegate init' first)")
			}
		} else {
			fmt.Println("Config:  ? Unable to resolve path")
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Config:  ? Unable to load (" + err.Error() + ")")
			return
		}

		// Check bot token presence
		if cfg.Telegram.Token != "" {
			fmt.Println("Token:   ✓ Found (" + maskSecret(cfg.Telegram.Token) + ")")
		} else {
			fmt.Println("Token:   ✗ Not found")
		}

		// Check ledger
		store, err := ledger.Open(cfg.Store.Path)
		if err != nil {
			fmt.Println("Ledger:  ✗ Unreachable (" + err.Error() + ")")
			return
		}
		defer store.Close()
		fmt.Println("Ledger:  ✓ " + cfg.Store.Path)

		if stats, err := store.Stats(); err == nil {
			fmt.Printf("Users:   %d total, %d consented\n", stats.TotalUsers, stats.ConsentedUsers)
			fmt.Printf("Pending: %d deferred join(s)\n", stats.PendingJoins)
		}
		if cursor, err := store.GetSetting("update_cursor"); err == nil {
			fmt.Println("Cursor:  " + cursor)
		} else {
			fmt.Println("Cursor:  none (fresh start)")
		}

		if cfg.Audit.Enabled {
			fmt.Println("Audit:   ✓ Kafka (" + cfg.Audit.Brokers + ")")
		} else {
			fmt.Println("Audit:   ✗ Disabled")
		}

		fmt.Println("Status:  Ready")
	},
}
