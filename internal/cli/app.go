package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/backends"
	"github.com/dshills/reviewdeck/internal/browser"
	"github.com/dshills/reviewdeck/internal/cache"
	"github.com/dshills/reviewdeck/internal/config"
	"github.com/dshills/reviewdeck/internal/events"
	"github.com/dshills/reviewdeck/internal/logging"
	"github.com/dshills/reviewdeck/internal/permission"
	"github.com/dshills/reviewdeck/internal/review"
	"github.com/dshills/reviewdeck/internal/session"
	"github.com/dshills/reviewdeck/internal/store/postgres"
	"github.com/dshills/reviewdeck/internal/transport"
)

// app holds the collaborators shared by the commands of one process.
type app struct {
	cfg       config.Config
	log       *zap.SugaredLogger
	client    *transport.Client
	sessions  *cache.Cache
	browser   *browser.Controller
	gate      *permission.Gate
	publisher events.Publisher
	store     *postgres.SiteStore
}

func loadConfig(overrides map[string]string) (config.Config, error) {
	if flagLogLevel != "" {
		if overrides == nil {
			overrides = map[string]string{}
		}
		overrides["logLevel"] = flagLogLevel
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return cfg, apperrors.Config("", err)
	}
	return cfg, nil
}

func newApp(cfg config.Config) (*app, error) {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, apperrors.Config("", err)
	}
	a := &app{cfg: cfg, log: log}

	jar, err := transport.NewJar()
	if err != nil {
		return nil, err
	}
	a.client, err = transport.New(jar, time.Duration(cfg.TimeoutSeconds)*time.Second, log)
	if err != nil {
		return nil, err
	}

	a.sessions, err = cache.New(cfg.Session.Enabled, cfg.Session.Dir, cfg.Session.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	if cfg.Browser.Enabled {
		a.browser = browser.New(browser.Options{ExecPath: cfg.Browser.ExecPath}, a.client, log)
	}

	a.gate = permission.NewGate(cfg.Permissions.Origins, persistOrigins)

	a.publisher, err = events.New(cfg.Events.NATSURL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connecting event stream: %w", err)
	}

	if cfg.Store.DatabaseURL != "" {
		a.store, err = postgres.New(cfg.Store.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening site store: %w", err)
		}
	}
	return a, nil
}

// persistOrigins writes granted origins back to the config file.
func persistOrigins(origins []string) error {
	cfg, err := config.LoadFile()
	if err != nil {
		return err
	}
	cfg.Permissions.Origins = origins
	return config.Save(cfg)
}

// Close releases the browser, event stream and database connection.
func (a *app) Close() {
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			a.log.Warnw("closing browser", "error", err)
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warnw("closing event stream", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warnw("closing site store", "error", err)
		}
	}
	_ = a.log.Sync()
}

// sites returns the configured sites, from PostgreSQL when a database is
// configured and from the config file otherwise.
func (a *app) sites(ctx context.Context) ([]review.Site, error) {
	if a.store != nil {
		return a.store.ListSites(ctx)
	}
	return a.cfg.Sites, nil
}

func (a *app) tabs() session.TabController {
	if a.browser == nil {
		return nil
	}
	return a.browser
}

func (a *app) factory(cycle *review.Cycle, site review.Site) (review.Fetcher, error) {
	return backends.New(site, backends.Deps{
		Client:       a.client,
		Tabs:         a.tabs(),
		Sessions:     a.sessions,
		Clock:        cycle.Now,
		PollInterval: time.Duration(a.cfg.Browser.PollIntervalMs) * time.Millisecond,
		Log:          cycle.Log,
	})
}

// runCycle reads the sites and runs one fetch cycle over them. The event
// stream observer is always attached in addition to extra.
func (a *app) runCycle(ctx context.Context, extra ...review.Observer) (*review.Result, error) {
	sites, err := a.sites(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading sites: %w", err)
	}
	if len(sites) == 0 {
		return nil, apperrors.Config("", errors.New("no sites configured; add one with `reviewdeck sites add`"))
	}

	cycle, err := review.NewCycle(nil, a.log)
	if err != nil {
		return nil, err
	}

	observers := review.Observers{events.NewObserver(a.publisher, a.log)}
	observers = append(observers, extra...)

	return review.NewAggregator(a.factory, a.gate, observers).Run(ctx, cycle, sites)
}
