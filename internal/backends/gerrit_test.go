package backends

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/cache"
	"github.com/dshills/reviewdeck/internal/review"
	"github.com/dshills/reviewdeck/internal/transport"
)

const gerritChangesBody = `)]}'
[[{"_number":101,"project":"chromium/src","branch":"main","subject":"Owned under review","status":"NEW",
   "updated":"2024-03-09 10:00:00.000000000","owner":{"_account_id":1,"name":"Me","email":"me@example.com"},
   "labels":{"Code-Review":{"all":[{"_account_id":1},{"_account_id":2}]}}}],
 [{"_number":102,"project":"chromium/src","branch":"main","subject":"Theirs","status":"NEW","submittable":true,
   "updated":"2024-03-09 11:00:00.000000000","owner":{"_account_id":2,"name":"Other","email":"other@example.com"}}],
 [{"_number":103,"project":"infra","branch":"master","subject":"Landed","status":"MERGED",
   "updated":"2024-03-08 09:30:00.500000000","owner":{"_account_id":1,"name":"Me","email":"me@example.com"}}]]`

// gerritServer fakes a Gerrit server whose session cookie is set by /login/.
type gerritServer struct {
	*httptest.Server
	logins  atomic.Int32
	changes atomic.Int32
	// loginPages is how many /changes/ requests answer with a login page.
	loginPages int32
	// noLogin makes /login/ refuse to set a session.
	noLogin bool
}

func newGerritServer(t *testing.T) *gerritServer {
	t.Helper()
	gs := &gerritServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/login/", func(w http.ResponseWriter, r *http.Request) {
		gs.logins.Add(1)
		if !gs.noLogin {
			http.SetCookie(w, &http.Cookie{Name: "GerritAccount", Value: "session", Path: "/"})
		}
		http.Redirect(w, r, "/", http.StatusFound)
	})
	mux.HandleFunc("/accounts/self", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("GerritAccount"); err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, ")]}'\n{\"_account_id\":1,\"email\":\"me@example.com\"}")
	})
	mux.HandleFunc("/changes/", func(w http.ResponseWriter, r *http.Request) {
		n := gs.changes.Add(1)
		if n <= gs.loginPages {
			fmt.Fprint(w, "<html><body>Sign in</body></html>")
			return
		}
		q := r.URL.Query()["q"]
		want := []string{
			"is:open owner:me@example.com",
			"is:open reviewer:me@example.com -owner:me@example.com",
			"is:merged owner:me@example.com limit:20",
		}
		if fmt.Sprint(q) != fmt.Sprint(want) {
			t.Errorf("queries = %q, want %q", q, want)
		}
		fmt.Fprint(w, gerritChangesBody)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>home</html>")
	})
	gs.Server = httptest.NewServer(mux)
	t.Cleanup(gs.Close)
	return gs
}

func testClient(t *testing.T) *transport.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return transport.NewWithHTTPClient(&http.Client{Jar: jar, Timeout: 5 * time.Second}, nil)
}

func TestGerrit_Fetch(t *testing.T) {
	srv := newGerritServer(t)
	site := review.Site{Label: "chromium", URL: srv.URL, Type: review.SiteTypeGerrit}

	g := NewGerrit(site, Deps{Client: testClient(t)}.mustDefaults(t))
	changes, err := g.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3", len(changes))
	}
	if srv.logins.Load() != 1 {
		t.Errorf("auto-login requests = %d, want 1", srv.logins.Load())
	}

	first := changes[0]
	if !first.Owned || !first.Reviewing {
		t.Errorf("first change owned=%v reviewing=%v", first.Owned, first.Reviewing)
	}
	if first.Status != review.StatusReviewing {
		t.Errorf("first status = %s, want Reviewing", first.Status)
	}
	if first.URL != srv.URL+"/#/c/101" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Repository != "chromium: chromium/src (main)" {
		t.Errorf("Repository = %q", first.Repository)
	}
	if first.OwnerName != "Me" {
		t.Errorf("OwnerName = %q", first.OwnerName)
	}
	wantUpdated := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC).UnixMilli()
	if first.Updated != wantUpdated {
		t.Errorf("Updated = %d, want %d", first.Updated, wantUpdated)
	}

	if changes[1].Owned || changes[1].Status != review.StatusApproved {
		t.Errorf("second change = %+v", changes[1])
	}
	if changes[2].Status != review.StatusSubmitted {
		t.Errorf("third status = %s, want Submitted", changes[2].Status)
	}
	if changes[2].Updated != time.Date(2024, 3, 8, 9, 30, 0, 500e6, time.UTC).UnixMilli() {
		t.Errorf("third Updated = %d", changes[2].Updated)
	}
}

func TestGerrit_ReloginOnceMidFetch(t *testing.T) {
	srv := newGerritServer(t)
	srv.loginPages = 1
	site := review.Site{Label: "g", URL: srv.URL, Type: review.SiteTypeGerrit}

	changes, err := NewGerrit(site, Deps{Client: testClient(t)}.mustDefaults(t)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(changes) != 3 {
		t.Errorf("got %d changes, want 3", len(changes))
	}
	if srv.changes.Load() != 2 {
		t.Errorf("changes requests = %d, want 2", srv.changes.Load())
	}
	if srv.logins.Load() != 2 {
		t.Errorf("login requests = %d, want 2", srv.logins.Load())
	}
}

func TestGerrit_SecondLoginPageIsTerminal(t *testing.T) {
	srv := newGerritServer(t)
	srv.loginPages = 100
	site := review.Site{Label: "g", URL: srv.URL, Type: review.SiteTypeGerrit}

	_, err := NewGerrit(site, Deps{Client: testClient(t)}.mustDefaults(t)).Fetch(context.Background())
	if !apperrors.IsAuthRequired(err) {
		t.Fatalf("err = %v, want AuthRequired", err)
	}
	if srv.changes.Load() != 2 {
		t.Errorf("changes requests = %d, want 2", srv.changes.Load())
	}
}

func TestGerrit_NoSessionWithoutTabs(t *testing.T) {
	srv := newGerritServer(t)
	srv.noLogin = true
	site := review.Site{Label: "g", URL: srv.URL, Type: review.SiteTypeGerrit}

	_, err := NewGerrit(site, Deps{Client: testClient(t)}.mustDefaults(t)).Fetch(context.Background())
	if !apperrors.IsAuthRequired(err) {
		t.Fatalf("err = %v, want AuthRequired", err)
	}
	if srv.changes.Load() != 0 {
		t.Errorf("changes fetched without identity")
	}
}

func TestGerrit_SessionCookiesPersisted(t *testing.T) {
	srv := newGerritServer(t)
	site := review.Site{Label: "g", URL: srv.URL, Type: review.SiteTypeGerrit}
	sessions, err := cache.New(true, t.TempDir(), 3600)
	if err != nil {
		t.Fatal(err)
	}

	deps := Deps{Client: testClient(t), Sessions: sessions}.mustDefaults(t)
	if _, err := NewGerrit(site, deps).Fetch(context.Background()); err != nil {
		t.Fatalf("first Fetch error: %v", err)
	}
	if _, ok := sessions.Get(srv.URL); !ok {
		t.Fatal("session cookies not saved")
	}

	// A fresh jar picks the session up from the store.
	deps = Deps{Client: testClient(t), Sessions: sessions}.mustDefaults(t)
	if _, err := NewGerrit(site, deps).Fetch(context.Background()); err != nil {
		t.Fatalf("second Fetch error: %v", err)
	}
	if srv.logins.Load() != 1 {
		t.Errorf("login requests = %d, want 1", srv.logins.Load())
	}
}

func TestGerritStatus(t *testing.T) {
	owner := gerritAccount{AccountID: 7}
	tests := []struct {
		name string
		e    gerritChange
		want review.Status
	}{
		{"new no labels", gerritChange{Status: "NEW", Owner: owner}, review.StatusPending},
		{"new owner vote only", gerritChange{Status: "NEW", Owner: owner,
			Labels: map[string]gerritLabel{"Code-Review": {All: []gerritAccount{{AccountID: 7}}}}}, review.StatusPending},
		{"draft other reviewer", gerritChange{Status: "DRAFT", Owner: owner,
			Labels: map[string]gerritLabel{"Code-Review": {All: []gerritAccount{{AccountID: 8}}}}}, review.StatusReviewing},
		{"other label ignored", gerritChange{Status: "NEW", Owner: owner,
			Labels: map[string]gerritLabel{"Verified": {All: []gerritAccount{{AccountID: 8}}}}}, review.StatusPending},
		{"submittable", gerritChange{Status: "NEW", Submittable: true, Owner: owner}, review.StatusApproved},
		{"submitted", gerritChange{Status: "SUBMITTED"}, review.StatusSubmitted},
		{"merged", gerritChange{Status: "MERGED"}, review.StatusSubmitted},
		{"abandoned", gerritChange{Status: "ABANDONED"}, review.StatusAbandoned},
		{"other", gerritChange{Status: "WIP"}, review.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gerritStatus(tt.e); got != tt.want {
				t.Errorf("gerritStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseServerTime(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"2024-03-09 10:00:00.000000000", time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC).UnixMilli()},
		{"2016-06-10 09:21:07.123456", time.Date(2016, 6, 10, 9, 21, 7, 123456000, time.UTC).UnixMilli()},
		{"2016-06-10 09:21:07", time.Date(2016, 6, 10, 9, 21, 7, 0, time.UTC).UnixMilli()},
		{"yesterday", 0},
	}
	for _, tt := range tests {
		if got := parseServerTime(tt.in); got != tt.want {
			t.Errorf("parseServerTime(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func (d Deps) mustDefaults(t *testing.T) Deps {
	t.Helper()
	d, err := d.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults: %v", err)
	}
	return d
}
