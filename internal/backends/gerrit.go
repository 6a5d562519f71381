package backends

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/reviewdeck/internal/review"
	"github.com/dshills/reviewdeck/internal/session"
	"github.com/dshills/reviewdeck/internal/transport"
)

// Gerrit fetches changes from a Gerrit server's REST API.
type Gerrit struct {
	site   review.Site
	client *transport.Client
	login  *loginFetcher
	log    *zap.SugaredLogger
}

// NewGerrit creates a Gerrit backend. deps must have a Client.
func NewGerrit(site review.Site, deps Deps) *Gerrit {
	g := &Gerrit{
		site:   site,
		client: deps.Client,
		log:    deps.Log,
	}
	g.login = newLoginFetcher(site, deps, session.Strategy{
		Site:      site.Label,
		Probe:     g.selfAddress,
		AutoLogin: g.autoLogin,
		LoginURL:  func(context.Context) (string, error) { return g.site.URL + "/login/", nil },
		IsLanding: func(path string) bool { return strings.HasPrefix(path, "/dashboard/") },
	})
	return g
}

func (g *Gerrit) Site() review.Site { return g.site }

func (g *Gerrit) Fetch(ctx context.Context) ([]review.Change, error) {
	return g.login.run(ctx, g.fetchAll)
}

func (g *Gerrit) selfAddress(ctx context.Context) (review.Identity, error) {
	var acct gerritAccount
	if err := g.client.FetchJSON(ctx, g.site.Label, g.site.URL+"/accounts/self", true, &acct); err != nil {
		return "", err
	}
	if acct.Email == "" {
		return "", errors.New("account has no email address")
	}
	return review.Identity(acct.Email), nil
}

// autoLogin visits the login endpoint; servers with single sign-on set the
// session cookie on the redirect chain without user interaction.
func (g *Gerrit) autoLogin(ctx context.Context) error {
	return g.client.Navigate(ctx, g.site.Label, g.site.URL+"/login/")
}

// changesURL builds a single request carrying all three dashboard queries.
func (g *Gerrit) changesURL(me review.Identity) string {
	queries := []string{
		fmt.Sprintf("is:open owner:%s", me),
		fmt.Sprintf("is:open reviewer:%s -owner:%s", me, me),
		fmt.Sprintf("is:merged owner:%s limit:20", me),
	}
	var b strings.Builder
	b.WriteString(g.site.URL)
	b.WriteString("/changes/?o=DETAILED_ACCOUNTS&o=REVIEWED&o=DETAILED_LABELS")
	for _, q := range queries {
		b.WriteString("&q=")
		b.WriteString(url.QueryEscape(q))
	}
	return b.String()
}

func (g *Gerrit) fetchAll(ctx context.Context, me review.Identity) ([]review.Change, error) {
	var data [][]gerritChange
	if err := g.client.FetchJSON(ctx, g.site.Label, g.changesURL(me), true, &data); err != nil {
		return nil, err
	}

	var changes []review.Change
	for _, entries := range data {
		for _, e := range entries {
			changes = append(changes, g.parseEntry(e, me))
		}
	}
	g.log.Debugw("gerrit changes parsed", "site", g.site.Label, "queries", len(data), "changes", len(changes))
	return changes, nil
}

func (g *Gerrit) parseEntry(e gerritChange, me review.Identity) review.Change {
	return review.Change{
		Owned: e.Owner.Email == string(me),
		// Gerrit has no CC list, so every change here is one we review.
		Reviewing:  true,
		Subject:    e.Subject,
		URL:        g.site.URL + "/#/c/" + strconv.Itoa(e.Number),
		Status:     gerritStatus(e),
		Repository: fmt.Sprintf("%s: %s (%s)", g.site.Label, e.Project, e.Branch),
		OwnerName:  e.Owner.Name,
		Updated:    parseServerTime(e.Updated),
	}
}

func gerritStatus(e gerritChange) review.Status {
	switch e.Status {
	case "NEW", "DRAFT":
		if e.Submittable {
			return review.StatusApproved
		}
		for _, acct := range e.Labels["Code-Review"].All {
			if acct.AccountID != e.Owner.AccountID {
				return review.StatusReviewing
			}
		}
		return review.StatusPending
	case "SUBMITTED", "MERGED":
		return review.StatusSubmitted
	case "ABANDONED":
		return review.StatusAbandoned
	default:
		return review.StatusUnknown
	}
}

type gerritAccount struct {
	AccountID int    `json:"_account_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

type gerritLabel struct {
	All []gerritAccount `json:"all"`
}

type gerritChange struct {
	Number      int                    `json:"_number"`
	Project     string                 `json:"project"`
	Branch      string                 `json:"branch"`
	Subject     string                 `json:"subject"`
	Status      string                 `json:"status"`
	Submittable bool                   `json:"submittable"`
	Updated     string                 `json:"updated"`
	Owner       gerritAccount          `json:"owner"`
	Labels      map[string]gerritLabel `json:"labels"`
}
