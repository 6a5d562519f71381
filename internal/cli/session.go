package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/reviewdeck/internal/cache"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved login sessions",
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget all saved login sessions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(nil)
		if err != nil {
			fail(err)
			return
		}
		c, err := cache.New(true, cfg.Session.Dir, cfg.Session.TTLSeconds)
		if err != nil {
			fail(fmt.Errorf("opening session store: %w", err))
			return
		}
		n, err := c.Clear()
		if err != nil {
			fail(fmt.Errorf("clearing sessions: %w", err))
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d session(s).\n", n)
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show saved login sessions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(nil)
		if err != nil {
			fail(err)
			return
		}
		c, err := cache.New(cfg.Session.Enabled, cfg.Session.Dir, cfg.Session.TTLSeconds)
		if err != nil {
			fail(fmt.Errorf("opening session store: %w", err))
			return
		}
		if !c.Enabled() {
			fmt.Fprintln(cmd.OutOrStdout(), "Session persistence is disabled.")
			return
		}
		stats, err := c.GetStats()
		if err != nil {
			fail(fmt.Errorf("reading session store: %w", err))
			return
		}
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			fail(err)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	},
}

func init() {
	sessionCmd.AddCommand(sessionClearCmd)
	sessionCmd.AddCommand(sessionShowCmd)
}
