package backends

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/cache"
	"github.com/dshills/reviewdeck/internal/review"
	"github.com/dshills/reviewdeck/internal/session"
	"github.com/dshills/reviewdeck/internal/transport"
)

// ErrUnknownSiteType is wrapped by the Config error New returns for a site
// whose type has no backend.
var ErrUnknownSiteType = errors.New("unknown site type")

// Backend fetches the current user's changes from one site.
type Backend interface {
	Fetch(ctx context.Context) ([]review.Change, error)
	Site() review.Site
}

// Deps are the collaborators shared by all backends of a cycle.
type Deps struct {
	// Client performs HTTP requests with the shared cookie jar.
	Client *transport.Client
	// Tabs opens interactive login tabs. Nil disables manual login.
	Tabs session.TabController
	// Sessions persists cookies between runs. May be nil.
	Sessions *cache.Cache
	// Clock returns the cycle's notion of now. Defaults to time.Now.
	Clock func() time.Time
	// PollInterval overrides session.DefaultPollInterval when positive.
	PollInterval time.Duration
	Log          *zap.SugaredLogger
}

func (d Deps) withDefaults() (Deps, error) {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	if d.Client == nil {
		c, err := transport.New(nil, transport.DefaultTimeout, d.Log)
		if err != nil {
			return d, err
		}
		d.Client = c
	}
	return d, nil
}

// New creates a backend for site by its type.
func New(site review.Site, deps Deps) (Backend, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, apperrors.Config(site.Label, err)
	}
	switch site.Type {
	case review.SiteTypeGerrit, review.SiteTypeRietveld:
		if err := checkSiteURL(site.URL); err != nil {
			return nil, apperrors.Config(site.Label, err)
		}
		if site.Type == review.SiteTypeGerrit {
			return NewGerrit(site, deps), nil
		}
		return NewRietveld(site, deps), nil
	case review.SiteTypeDemo:
		return NewDemo(site, deps.Clock), nil
	default:
		return nil, apperrors.Config(site.Label, fmt.Errorf("%w: %q", ErrUnknownSiteType, site.Type))
	}
}

// checkSiteURL requires an absolute http(s) URL with a host.
func checkSiteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing site url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("site url %q must be an absolute http or https url", raw)
	}
	return nil
}

// loginFetcher runs a fetch behind the session resolver and persists the
// session cookies it ends up with.
type loginFetcher struct {
	site     review.Site
	client   *transport.Client
	sessions *cache.Cache
	resolver *session.Resolver
	log      *zap.SugaredLogger
}

func newLoginFetcher(site review.Site, deps Deps, strategy session.Strategy) *loginFetcher {
	r := session.NewResolver(strategy, deps.Tabs, deps.Log)
	r.SetPollInterval(deps.PollInterval)
	return &loginFetcher{
		site:     site,
		client:   deps.Client,
		sessions: deps.Sessions,
		resolver: r,
		log:      deps.Log,
	}
}

// run resolves the identity and calls fetch. If fetch reports AuthRequired
// the session is renewed and fetch runs once more; a second AuthRequired is
// returned as-is.
func (l *loginFetcher) run(ctx context.Context, fetch func(ctx context.Context, me review.Identity) ([]review.Change, error)) ([]review.Change, error) {
	l.restore()

	me, err := l.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	l.persist()

	changes, err := fetch(ctx, me)
	if err == nil {
		return changes, nil
	}
	if !apperrors.IsAuthRequired(err) {
		return nil, err
	}

	l.log.Infow("session expired during fetch, logging in again", "site", l.site.Label)
	me, err = l.resolver.Relogin(ctx)
	if err != nil {
		return nil, err
	}
	l.persist()
	return fetch(ctx, me)
}

func (l *loginFetcher) restore() {
	if l.sessions == nil {
		return
	}
	if cookies, ok := l.sessions.Get(l.site.URL); ok {
		l.client.SetCookies(l.site.URL, cookies)
	}
}

func (l *loginFetcher) persist() {
	if l.sessions == nil {
		return
	}
	cookies := l.client.Cookies(l.site.URL)
	if len(cookies) == 0 {
		return
	}
	if err := l.sessions.Put(l.site.URL, cookies); err != nil {
		l.log.Warnw("saving session cookies", "site", l.site.Label, "error", err)
	}
}

// serverTimeLayout matches the timestamps of both Gerrit and Rietveld, which
// are UTC without a zone designator and with optional fractional seconds.
const serverTimeLayout = "2006-01-02 15:04:05.999999999"

// parseServerTime returns s as milliseconds since the epoch, or 0 if s is
// not a server timestamp.
func parseServerTime(s string) int64 {
	t, err := time.ParseInLocation(serverTimeLayout, s, time.UTC)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
