package backends

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/review"
	"github.com/dshills/reviewdeck/internal/session"
	"github.com/dshills/reviewdeck/internal/transport"
)

// RietveldEntryLimit is the page size of every search. The API accepts up
// to 1000, but servers fail with a 500 well before that.
const RietveldEntryLimit = 300

// committedMarker appears in the description of issues that landed. It only
// counts after some description text, never at the very start.
const committedMarker = "\nCommitted: "

// Rietveld fetches issues from a Rietveld server's JSON search API.
type Rietveld struct {
	site   review.Site
	client *transport.Client
	login  *loginFetcher
	log    *zap.SugaredLogger
}

// NewRietveld creates a Rietveld backend. deps must have a Client.
func NewRietveld(site review.Site, deps Deps) *Rietveld {
	r := &Rietveld{
		site:   site,
		client: deps.Client,
		log:    deps.Log,
	}
	r.login = newLoginFetcher(site, deps, session.Strategy{
		Site:     site.Label,
		Probe:    r.selfAddress,
		LoginURL: r.signInURL,
	})
	return r
}

func (r *Rietveld) Site() review.Site { return r.site }

func (r *Rietveld) Fetch(ctx context.Context) ([]review.Change, error) {
	return r.login.run(ctx, r.fetchAll)
}

func (r *Rietveld) landingPage(ctx context.Context) (*goquery.Document, error) {
	text, err := r.client.FetchText(ctx, r.site.Label, r.site.URL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, apperrors.AuthRequired(r.site.Label, fmt.Errorf("parsing landing page: %w", err))
	}
	return doc, nil
}

// selfAddress reads the signed-in address from the account banner of the
// landing page.
func (r *Rietveld) selfAddress(ctx context.Context) (review.Identity, error) {
	doc, err := r.landingPage(ctx)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(doc.Find("body > div[align=right] > b").Text())
	if len(fields) == 0 {
		return "", errors.New("not logged in")
	}
	return review.Identity(fields[0]), nil
}

func (r *Rietveld) signInURL(ctx context.Context) (string, error) {
	doc, err := r.landingPage(ctx)
	if err != nil {
		return "", err
	}
	href, ok := doc.Find(`a:contains("Sign in")`).First().Attr("href")
	if !ok || href == "" {
		return "", apperrors.AuthRequired(r.site.Label, errors.New("no sign-in link on landing page"))
	}
	base, err := url.Parse(r.site.URL + "/")
	if err != nil {
		return "", apperrors.Config(r.site.Label, fmt.Errorf("parsing site url: %w", err))
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", apperrors.AuthRequired(r.site.Label, fmt.Errorf("parsing sign-in link: %w", err))
	}
	return base.ResolveReference(ref).String(), nil
}

// fetchAll runs the four searches concurrently and merges their results,
// keeping the first change seen for each URL.
func (r *Rietveld) fetchAll(ctx context.Context, me review.Identity) ([]review.Change, error) {
	addr := url.QueryEscape(string(me))
	params := []string{
		"owner=" + addr + "&closed=False",
		"reviewer=" + addr + "&closed=False",
		"cc=" + addr + "&closed=False",
		"owner=" + addr + "&closed=True",
	}

	results := make([][]review.Change, len(params))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range params {
		g.Go(func() error {
			changes, err := r.search(gctx, p, me)
			if err != nil {
				return err
			}
			results[i] = changes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	changes := dedupByURL(results)
	r.log.Debugw("rietveld issues merged", "site", r.site.Label, "changes", len(changes))
	return changes, nil
}

func dedupByURL(groups [][]review.Change) []review.Change {
	seen := make(map[string]bool)
	var all []review.Change
	for _, changes := range groups {
		for _, c := range changes {
			if seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			all = append(all, c)
		}
	}
	return all
}

// search runs one query. Open issues, and closed ones without reviewers,
// are refetched individually since only the issue API returns messages.
func (r *Rietveld) search(ctx context.Context, param string, me review.Identity) ([]review.Change, error) {
	u := fmt.Sprintf("%s/search?format=json&limit=%d&%s", r.site.URL, RietveldEntryLimit, param)
	var res rietveldSearch
	if err := r.client.FetchJSON(ctx, r.site.Label, u, false, &res); err != nil {
		return nil, err
	}
	if res.Results == nil {
		return nil, apperrors.AuthRequired(r.site.Label, errors.New("search response has no results"))
	}

	entries := *res.Results
	changes := make([]review.Change, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range entries {
		if entry.Closed && len(entry.Reviewers) > 0 {
			changes[i] = r.parseEntry(entry, me)
			continue
		}
		g.Go(func() error {
			full, err := r.fetchOne(gctx, entry.Issue)
			if err != nil {
				return err
			}
			changes[i] = r.parseEntry(full, me)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return changes, nil
}

func (r *Rietveld) fetchOne(ctx context.Context, issue int64) (rietveldIssue, error) {
	var entry rietveldIssue
	u := r.site.URL + "/api/" + strconv.FormatInt(issue, 10) + "?messages=True"
	err := r.client.FetchJSON(ctx, r.site.Label, u, false, &entry)
	return entry, err
}

func (r *Rietveld) parseEntry(e rietveldIssue, me review.Identity) review.Change {
	return review.Change{
		Owned:      e.OwnerEmail == string(me),
		Reviewing:  slices.Contains(e.Reviewers, string(me)),
		Subject:    e.Subject,
		URL:        r.site.URL + "/" + strconv.FormatInt(e.Issue, 10) + "/",
		Status:     rietveldStatus(e),
		Repository: r.site.Label + ": " + e.Project,
		OwnerName:  e.Owner,
		Updated:    parseServerTime(e.Modified),
	}
}

func rietveldStatus(e rietveldIssue) review.Status {
	if e.Closed {
		if strings.Index(e.Description, committedMarker) > 0 {
			return review.StatusSubmitted
		}
		return review.StatusAbandoned
	}
	if len(e.Reviewers) == 0 {
		return review.StatusPending
	}

	// The latest verdict of each sender wins.
	verdicts := make(map[string]bool)
	for _, m := range e.Messages {
		switch {
		case m.Disapproval:
			verdicts[m.Sender] = false
		case m.Approval:
			verdicts[m.Sender] = true
		}
	}
	for _, approved := range verdicts {
		if approved {
			return review.StatusApproved
		}
	}
	return review.StatusReviewing
}

type rietveldSearch struct {
	Results *[]rietveldIssue `json:"results"`
}

type rietveldMessage struct {
	Sender      string `json:"sender"`
	Approval    bool   `json:"approval"`
	Disapproval bool   `json:"disapproval"`
}

type rietveldIssue struct {
	Issue       int64             `json:"issue"`
	Subject     string            `json:"subject"`
	Description string            `json:"description"`
	Project     string            `json:"project"`
	Owner       string            `json:"owner"`
	OwnerEmail  string            `json:"owner_email"`
	Reviewers   []string          `json:"reviewers"`
	Closed      bool              `json:"closed"`
	Modified    string            `json:"modified"`
	Messages    []rietveldMessage `json:"messages"`
}
