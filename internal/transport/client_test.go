package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/reviewdeck/internal/apperrors"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(nil, 0, nil)
	require.NoError(t, err)
	return c
}

func TestStripXSSIPrefix(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"gerrit prefix", ")]}'\n{\"email\":\"me@example.com\"}", `{"email":"me@example.com"}`},
		{"no newline", `{"a":1}`, `{"a":1}`},
		{"only first line dropped", "x\n[1]\n", "[1]\n"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripXSSIPrefix(tt.input))
		})
	}
}

func TestFetchJSON_StripsPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(")]}'\n{\"email\":\"me@example.com\"}"))
	}))
	defer server.Close()

	var out struct {
		Email string `json:"email"`
	}
	err := newTestClient(t).FetchJSON(context.Background(), "s", server.URL, true, &out)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", out.Email)
}

func TestFetchJSON_LoginPageIsAuthRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>Sign in</body></html>"))
	}))
	defer server.Close()

	var out map[string]any
	err := newTestClient(t).FetchJSON(context.Background(), "s", server.URL, false, &out)
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthRequired(err), "got %v", err)
}

func TestFetchText_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   apperrors.Code
	}{
		{http.StatusUnauthorized, apperrors.CodeAuthRequired},
		{http.StatusForbidden, apperrors.CodeAuthRequired},
		{http.StatusInternalServerError, apperrors.CodeTransport},
		{http.StatusNotFound, apperrors.CodeTransport},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newTestClient(t).FetchText(context.Background(), "s", server.URL)
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.CodeOf(err))
		})
	}
}

func TestFetchText_ConnectionRefusedIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(t).FetchText(context.Background(), "s", url)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTransport, apperrors.CodeOf(err))
}

func TestNavigate_StoresCookiesAndDiscardsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login/":
			http.SetCookie(w, &http.Cookie{Name: "GerritAccount", Value: "abc", Path: "/"})
			http.Redirect(w, r, "/", http.StatusFound)
		default:
			w.Write([]byte("<html>landing</html>"))
		}
	}))
	defer server.Close()

	c := newTestClient(t)
	require.NoError(t, c.Navigate(context.Background(), "s", server.URL+"/login/"))

	cookies := c.Cookies(server.URL)
	require.Len(t, cookies, 1)
	assert.Equal(t, "GerritAccount", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
}

func TestCookiesAreAttached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("SID")
		if err != nil || ck.Value != "s3cr3t" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(t)
	c.SetCookies(server.URL, []*http.Cookie{{Name: "SID", Value: "s3cr3t", Path: "/"}})

	var out map[string]any
	require.NoError(t, c.FetchJSON(context.Background(), "s", server.URL+"/x", false, &out))
}

func TestFetchText_ThrottledIsNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			hits := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits++
				if hits == 1 {
					w.WriteHeader(status)
					return
				}
				_, _ = w.Write([]byte(`{"ok":true}`))
			}))
			defer srv.Close()

			var v map[string]bool
			err := newTestClient(t).FetchJSON(context.Background(), "s", srv.URL, false, &v)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeTransport, apperrors.CodeOf(err))
			assert.Equal(t, 1, hits)
		})
	}
}
