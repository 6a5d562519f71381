package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/config"
	"github.com/dshills/reviewdeck/internal/review"
)

var (
	flagSiteType string
	flagPreset   string
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Manage the review servers on the dashboard",
}

var sitesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sites",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, a *app) error {
			sites, err := a.sites(ctx)
			if err != nil {
				return err
			}
			if len(sites) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sites configured.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LABEL\tTYPE\tURL")
			for _, s := range sites {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Label, s.Type, s.URL)
			}
			return tw.Flush()
		})
	},
}

var sitesAddCmd = &cobra.Command{
	Use:   "add [label] [url]",
	Short: "Add a site, or a preset with --preset",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		site, err := siteFromArgs(args, flagSiteType, flagPreset)
		if err != nil {
			fail(err)
			return
		}
		withApp(func(ctx context.Context, a *app) error {
			if err := addSite(ctx, a, site); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s %s)\n", site.Label, site.Type, site.URL)
			return nil
		})
	},
}

var sitesRemoveCmd = &cobra.Command{
	Use:   "remove <label>",
	Short: "Remove a site",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, a *app) error {
			if err := removeSite(ctx, a, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		})
	},
}

var sitesPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List built-in site presets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LABEL\tNAME\tTYPE\tURL")
		for _, p := range config.Presets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Site.Label, p.Name, p.Site.Type, p.Site.URL)
		}
		_ = tw.Flush()
	},
}

// siteFromArgs builds the site to add from positional arguments or a preset.
func siteFromArgs(args []string, siteType, preset string) (review.Site, error) {
	if preset != "" {
		if len(args) > 0 {
			return review.Site{}, apperrors.Config("", errors.New("--preset takes no arguments"))
		}
		p, ok := config.PresetByLabel(preset)
		if !ok {
			return review.Site{}, apperrors.Config("", fmt.Errorf("unknown preset %q; see `reviewdeck sites presets`", preset))
		}
		return p.Site, nil
	}

	site := review.Site{Type: review.SiteType(siteType)}
	switch len(args) {
	case 0:
		return review.Site{}, apperrors.Config("", errors.New("a label is required"))
	case 1:
		site.Label = args[0]
	default:
		site.Label, site.URL = args[0], args[1]
	}
	site = site.Normalize()
	if err := config.ValidateSite(site); err != nil {
		return review.Site{}, apperrors.Config(site.Label, err)
	}
	return site, nil
}

func addSite(ctx context.Context, a *app, site review.Site) error {
	if a.store != nil {
		return a.store.AddSite(ctx, site)
	}
	cfg, err := config.LoadFile()
	if err != nil {
		return apperrors.Config("", err)
	}
	if err := config.AddSite(&cfg, site); err != nil {
		return apperrors.Config(site.Label, err)
	}
	return config.Save(cfg)
}

func removeSite(ctx context.Context, a *app, label string) error {
	if a.store != nil {
		return a.store.RemoveSite(ctx, label)
	}
	cfg, err := config.LoadFile()
	if err != nil {
		return apperrors.Config("", err)
	}
	if err := config.RemoveSite(&cfg, label); err != nil {
		return apperrors.Config(label, err)
	}
	return config.Save(cfg)
}

// withApp loads the configuration, builds the app and runs fn, reporting
// any error through fail.
func withApp(fn func(ctx context.Context, a *app) error) {
	cfg, err := loadConfig(nil)
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
	if err := fn(context.Background(), a); err != nil {
		fail(err)
	}
}

func init() {
	sitesAddCmd.Flags().StringVar(&flagSiteType, "type", string(review.SiteTypeGerrit), "Site type (gerrit, rietveld, demo)")
	sitesAddCmd.Flags().StringVar(&flagPreset, "preset", "", "Add a built-in preset by label")

	sitesCmd.AddCommand(sitesListCmd)
	sitesCmd.AddCommand(sitesAddCmd)
	sitesCmd.AddCommand(sitesRemoveCmd)
	sitesCmd.AddCommand(sitesPresetsCmd)
}
