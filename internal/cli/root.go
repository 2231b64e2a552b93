package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/pledgegate/pledgegate/internal/cli.version=1.2.3"
	version = "0.4.1"
	logo    = "\n" +
		"  ____  _          _\n" +
		" |  _ \\| | ___  __| | __ _  ___\n" +
		" | |_) | |/ _ \\/ _` |/ _` |/ _ \\\n" +
		" |  __/| |  __/ (_| | (_| |  __/\n" +
		" |_|   |_|\\___|\\__,_|\\__, |\\___|\n" +
		"   ____       _      |___/\n" +
		"  / ___| __ _| |_ ___\n" +
		" | |  _ / _` | __/ _ \\\n" +
		" | |_| | (_| | ||  __/\n" +
		"  \\____|\\__,_|\\__\\___|\n"
)

var rootCmd = &cobra.Command{
	Use:   "pledgegate",
	Short: "PledgeGate - Consent-gated join approvals for Telegram communities",
	Long:  color.CyanString(logo) + "\nHolds chat join requests until the requester accepts the safety pledge.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(linkCmd)
}
