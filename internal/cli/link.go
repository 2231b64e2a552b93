package cli

import (
	"context"
	"fmt"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/pledgegate/pledgegate/internal/config"
	"github.com/pledgegate/pledgegate/internal/menu"
	"github.com/pledgegate/pledgegate/internal/telegram"
)

var linkQRPath string

var linkCmd = &cobra.Command{
	Use:   "link [tag]",
	Short: "Generate a campaign deep link (optionally as a QR code)",
	Long:  "Builds a t.me deep link that seeds the given acquisition tag when a\nuser first opens the bot. Without a tag the plain bot link is printed.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLink,
}

func init() {
	linkCmd.Flags().StringVar(&linkQRPath, "qr", "", "Also write the link as a QR code PNG to this path")
}

func runLink(cmd *cobra.Command, args []string) error {
	tag := ""
	if len(args) == 1 {
		tag = args[0]
	}
	if tag != "" && !menu.ValidTag(tag) {
		return fmt.Errorf("invalid tag %q: use 1-64 characters of A-Z a-z 0-9 _ -", tag)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	username := cfg.Engine.BotUsername
	if username == "" {
		if cfg.Telegram.Token == "" {
			return fmt.Errorf("bot username unknown: set engine.botUsername or a bot token")
		}
		client := telegram.NewClient(
			&http.Client{Timeout: cfg.Telegram.RequestTimeout},
			cfg.Telegram.APIBaseURL,
			cfg.Telegram.Token,
		)
		me, err := client.GetMe(context.Background())
		if err != nil {
			return fmt.Errorf("resolve bot username: %w", err)
		}
		username = me.Username
	}

	link := menu.DeepLink(username, tag)
	fmt.Println(link)

	if linkQRPath != "" {
		if err := qrcode.WriteFile(link, qrcode.Medium, 512, linkQRPath); err != nil {
			return fmt.Errorf("write qr code: %w", err)
		}
		fmt.Printf("🖼️  QR code saved to: %s\n", linkQRPath)
	}
	return nil
}
