package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/config"
	"github.com/dshills/reviewdeck/internal/redact"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage reviewdeck configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path, created, err := config.Init()
		if err != nil {
			fail(fmt.Errorf("writing config: %w", err))
			return
		}
		if !created {
			fmt.Fprintf(cmd.ErrOrStderr(), "Config file already exists at %s\n", path)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config file created at %s\n", path)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Keys: " + strings.Join(config.Keys, ", "),
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadFile()
		if err != nil {
			fail(apperrors.Config("", err))
			return
		}
		if err := config.SetField(&cfg, args[0], args[1]); err != nil {
			fail(apperrors.Config("", err))
			return
		}
		if err := config.Save(cfg); err != nil {
			fail(fmt.Errorf("saving config: %w", err))
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], redact.Secrets(args[1]))
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(nil)
		if err != nil {
			fail(err)
			return
		}
		text, err := renderConfig(cfg)
		if err != nil {
			fail(err)
			return
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
	},
}

// renderConfig encodes cfg as TOML with credentials masked.
func renderConfig(cfg config.Config) (string, error) {
	cfg.Store.DatabaseURL = redact.Secrets(cfg.Store.DatabaseURL)
	cfg.Events.NATSURL = redact.Secrets(cfg.Events.NATSURL)
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return buf.String(), nil
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}
