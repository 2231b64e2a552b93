package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pledgegate/pledgegate/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	printHeader("⚙️ PledgeGate Init")

	path, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}

	if err := config.Save(config.DefaultConfig()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Config written to %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set telegram.token (or export TELEGRAM_BOT_TOKEN)")
	fmt.Println("  2. Add your community chat IDs under engine.communities")
	fmt.Println("  3. Start the engine with 'pledgegate run'")
	return nil
}
