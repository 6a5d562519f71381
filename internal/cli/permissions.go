package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Manage access to the configured review servers",
}

var permissionsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Show which site origins still need permission",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, a *app) error {
			sites, err := a.sites(ctx)
			if err != nil {
				return err
			}
			missing := a.gate.Missing(sites)
			out := cmd.OutOrStdout()
			for _, o := range a.gate.Granted() {
				fmt.Fprintf(out, "granted  %s\n", o)
			}
			for _, o := range missing {
				fmt.Fprintf(out, "missing  %s\n", o)
			}
			if len(missing) > 0 {
				exitCode = ExitAuthError
			}
			return nil
		})
	},
}

var permissionsGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Allow access to every configured site",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, a *app) error {
			sites, err := a.sites(ctx)
			if err != nil {
				return err
			}
			if err := a.gate.Grant(ctx, sites); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Granted %d origin(s).\n", len(a.gate.Granted()))
			return nil
		})
	},
}

var permissionsRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Withdraw access to every configured site",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, a *app) error {
			sites, err := a.sites(ctx)
			if err != nil {
				return err
			}
			if err := a.gate.Revoke(ctx, sites); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Permissions revoked.")
			return nil
		})
	},
}

func init() {
	permissionsCmd.AddCommand(permissionsCheckCmd)
	permissionsCmd.AddCommand(permissionsGrantCmd)
	permissionsCmd.AddCommand(permissionsRevokeCmd)
}
