package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pledgegate/pledgegate/internal/config"
	"github.com/pledgegate/pledgegate/internal/ledger"
)

var (
	usersLimit        int
	usersExportFormat string
	usersExportOut    string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect and export the consent ledger",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known users",
	RunE:  runUsersList,
}

var usersStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger aggregates",
	RunE:  runUsersStats,
}

var usersExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export users as JSON or CSV",
	RunE:  runUsersExport,
}

func init() {
	usersListCmd.Flags().IntVar(&usersLimit, "limit", 50, "Maximum rows to print (0 = all)")
	usersExportCmd.Flags().StringVar(&usersExportFormat, "format", "json", "Export format: json or csv")
	usersExportCmd.Flags().StringVar(&usersExportOut, "out", "", "Output file (default stdout)")
	usersCmd.AddCommand(usersListCmd, usersStatsCmd, usersExportCmd)
}

func openLedger() (*ledger.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := ledger.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return store, nil
}

func runUsersList(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	users, err := store.ListUsers(usersLimit, 0)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users recorded yet.")
		return nil
	}

	fmt.Printf("%-12s %-20s %-16s %-8s %s\n", "USER", "NAME", "TAG", "CONSENT", "LAST SEEN")
	for _, u := range users {
		consent := "✗"
		if u.ConsentGranted {
			consent = "✓"
		}
		fmt.Printf("%-12d %-20s %-16s %-8s %s\n",
			u.UserID, truncate(u.DisplayName, 20), truncate(u.AcquisitionTag, 16),
			consent, u.LastSeenAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runUsersStats(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return err
	}
	printHeader("📊 Ledger Stats")
	fmt.Printf("Users:     %d\n", stats.TotalUsers)
	fmt.Printf("Consented: %d\n", stats.ConsentedUsers)
	fmt.Printf("Pending:   %d deferred join(s)\n", stats.PendingJoins)
	if len(stats.TagBreakdown) > 0 {
		fmt.Println("Tags:")
		for tag, n := range stats.TagBreakdown {
			fmt.Printf("  %-16s %d\n", tag, n)
		}
	}
	return nil
}

func runUsersExport(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	out := os.Stdout
	if usersExportOut != "" {
		f, err := os.Create(usersExportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := store.ExportUsers(out, usersExportFormat); err != nil {
		return err
	}
	if usersExportOut != "" {
		fmt.Printf("Exported to %s\n", usersExportOut)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
