package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/output"
)

// Fetch flags
var (
	flagFormat    string
	flagOut       string
	flagTimeout   int
	flagNoBrowser bool
)

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagTimeout > 0 {
		m["timeout"] = strconv.Itoa(flagTimeout)
	}
	if flagNoBrowser {
		m["browser"] = "false"
	}
	return m
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch all sites and print the dashboard",
	Long: "Fetch runs one cycle over every configured site and prints the changes grouped into " +
		"incoming, outgoing, CC'ed, pending and recently submitted reviews. Sites that need a " +
		"login open a browser tab; finish the login there and the fetch continues.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		runFetch(ctx)
	},
}

func runFetch(ctx context.Context) {
	cfg, err := loadConfig(buildOverrides())
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

	res, err := a.runCycle(ctx)
	if err != nil {
		if apperrors.IsPermissionDenied(err) {
			sites, _ := a.sites(ctx)
			missing := a.gate.Missing(sites)
			fmt.Fprintln(os.Stderr, "reviewdeck needs permission to contact:")
			for _, o := range missing {
				fmt.Fprintf(os.Stderr, "  %s\n", o)
			}
			fmt.Fprintln(os.Stderr, "Run `reviewdeck permissions grant` to allow access.")
			exitCode = ExitAuthError
			return
		}
		fail(err)
		return
	}

	opts := output.Options{Color: flagOut == "" && output.ShouldUseColor()}
	if err := output.WriteResult(ctx, res, cfg.Format, flagOut, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if res.Failed() > 0 {
		exitCode = ExitSiteFailed
	}
}

func init() {
	fetchCmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown)")
	fetchCmd.Flags().StringVar(&flagOut, "out", "", "Output file path or s3://bucket/key (default: stdout)")
	fetchCmd.Flags().IntVar(&flagTimeout, "timeout", 0, "HTTP request timeout in seconds")
	fetchCmd.Flags().BoolVar(&flagNoBrowser, "no-browser", false, "Never open a browser tab for login")
}
