package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/reviewdeck/internal/review"
	"github.com/dshills/reviewdeck/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over a local HTTP API",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		overrides := buildOverrides()
		if flagAddr != "" {
			overrides["addr"] = flagAddr
		}
		cfg, err := loadConfig(overrides)
		if err != nil {
			fail(err)
			return
		}

		a, err := newApp(cfg)
		if err != nil {
			fail(err)
			return
		}
		defer a.Close()

		tracker := review.NewTracker()
		refresh := func(ctx context.Context) (*review.Result, error) {
			return a.runCycle(ctx, tracker)
		}

		srv := server.New(ctx, tracker, refresh, a.log)
		if err := srv.Listen(ctx, cfg.Server.Addr); err != nil {
			fail(err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8765)")
	serveCmd.Flags().BoolVar(&flagNoBrowser, "no-browser", false, "Never open a browser tab for login")
}
