package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/review"
)

// DefaultPollInterval is how often the login tab is inspected.
const DefaultPollInterval = 100 * time.Millisecond

// Strategy holds the backend-specific steps of the login state machine.
type Strategy struct {
	// Site is the site label used in errors and logs.
	Site string

	// Probe performs the authenticated "who am I" request.
	Probe func(ctx context.Context) (review.Identity, error)

	// AutoLogin issues a navigation request to the login endpoint without
	// reading the response. Nil when the server has no silent login.
	AutoLogin func(ctx context.Context) error

	// LoginURL returns the page the interactive tab should open.
	LoginURL func(ctx context.Context) (string, error)

	// IsLanding reports whether a path, other than the root, is a page the
	// server redirects to after a successful login. May be nil.
	IsLanding func(path string) bool
}

// Resolver drives the probe, auto-login and manual-login states for one site.
type Resolver struct {
	strategy     Strategy
	tabs         TabController
	log          *zap.SugaredLogger
	pollInterval time.Duration
}

// NewResolver creates a Resolver. tabs may be nil, in which case interactive
// login is unavailable and the resolver fails with AuthRequired instead.
func NewResolver(strategy Strategy, tabs TabController, log *zap.SugaredLogger) *Resolver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Resolver{
		strategy:     strategy,
		tabs:         tabs,
		log:          log,
		pollInterval: DefaultPollInterval,
	}
}

// SetPollInterval overrides DefaultPollInterval.
func (r *Resolver) SetPollInterval(d time.Duration) {
	if d > 0 {
		r.pollInterval = d
	}
}

// Resolve returns the user's identity, logging in first if needed.
func (r *Resolver) Resolve(ctx context.Context) (review.Identity, error) {
	id, err := r.probe(ctx)
	if err == nil {
		return id, nil
	}
	r.log.Debugw("identity probe failed", "site", r.strategy.Site, "error", err)
	return r.Relogin(ctx)
}

// Relogin skips the initial probe and runs the recovery states directly. It
// is used when a data request came back as a login page mid-fetch.
func (r *Resolver) Relogin(ctx context.Context) (review.Identity, error) {
	if r.strategy.AutoLogin != nil {
		if err := r.strategy.AutoLogin(ctx); err != nil {
			r.log.Debugw("auto-login request failed", "site", r.strategy.Site, "error", err)
		} else if id, err := r.probe(ctx); err == nil {
			r.log.Infow("auto-login succeeded", "site", r.strategy.Site)
			return id, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.manualLogin(ctx)
}

func (r *Resolver) probe(ctx context.Context) (review.Identity, error) {
	id, err := r.strategy.Probe(ctx)
	if err != nil {
		if apperrors.CodeOf(err) != "" {
			return "", err
		}
		return "", apperrors.AuthRequired(r.strategy.Site, err)
	}
	if strings.TrimSpace(string(id)) == "" {
		return "", apperrors.AuthRequired(r.strategy.Site, errors.New("empty identity"))
	}
	return id, nil
}

func (r *Resolver) manualLogin(ctx context.Context) (review.Identity, error) {
	if r.tabs == nil {
		return "", apperrors.AuthRequired(r.strategy.Site, errors.New("interactive login is not available"))
	}
	loginURL, err := r.strategy.LoginURL(ctx)
	if err != nil {
		return "", fmt.Errorf("finding login page: %w", err)
	}

	r.log.Infow("opening login tab", "site", r.strategy.Site, "url", loginURL)
	h, err := r.tabs.OpenTab(ctx, loginURL)
	if err != nil {
		return "", fmt.Errorf("opening login tab: %w", err)
	}

	if err := r.waitForLanding(ctx, h); err != nil {
		if !apperrors.IsLoginAbandoned(err) {
			// The user didn't close the tab, so it is still ours.
			if cerr := r.tabs.CloseTab(context.WithoutCancel(ctx), h); cerr != nil {
				r.log.Warnw("closing login tab", "site", r.strategy.Site, "error", cerr)
			}
		}
		return "", err
	}

	r.log.Infow("login success", "site", r.strategy.Site)
	if err := r.tabs.CloseTab(ctx, h); err != nil {
		r.log.Warnw("closing login tab", "site", r.strategy.Site, "error", err)
	}
	return r.probe(ctx)
}

// waitForLanding polls the tab until it reaches a landing page or is closed.
func (r *Resolver) waitForLanding(ctx context.Context, h TabHandle) error {
	for {
		info, err := r.tabs.Tab(ctx, h)
		if err != nil {
			return fmt.Errorf("inspecting login tab: %w", err)
		}
		if info == nil {
			return apperrors.LoginAbandoned(r.strategy.Site)
		}
		if r.isLanding(info.URL) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

func (r *Resolver) isLanding(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if u.Path == "" || u.Path == "/" {
		return true
	}
	return r.strategy.IsLanding != nil && r.strategy.IsLanding(u.Path)
}
