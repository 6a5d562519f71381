package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/redact"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 60 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 32 << 20

// Client issues GET requests with ambient cookie attachment.
type Client struct {
	httpCli *http.Client
	jar     http.CookieJar
	log     *zap.SugaredLogger
}

// NewJar returns a cookie jar using the public suffix list.
func NewJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return jar, nil
}

// New creates a Client around jar. A nil jar gets a fresh one.
func New(jar http.CookieJar, timeout time.Duration, log *zap.SugaredLogger) (*Client, error) {
	if jar == nil {
		j, err := NewJar()
		if err != nil {
			return nil, err
		}
		jar = j
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		httpCli: &http.Client{Timeout: timeout, Jar: jar},
		jar:     jar,
		log:     log,
	}, nil
}

// NewWithHTTPClient wraps an existing http.Client; its Jar is used as the
// cookie jar. Intended for tests pointing at httptest servers.
func NewWithHTTPClient(c *http.Client, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{httpCli: c, jar: c.Jar, log: log}
}

// Jar returns the client's cookie jar.
func (c *Client) Jar() http.CookieJar { return c.jar }

// FetchText GETs rawURL once and returns the body. Statuses 401 and 403 map
// to AuthRequired, any other non-2xx status to a Transport error.
func (c *Client) FetchText(ctx context.Context, site, rawURL string) (string, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperrors.Config(site, fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return "", apperrors.Transport(site, fmt.Errorf("sending request: %w", redactErr(err)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", apperrors.Transport(site, fmt.Errorf("reading response: %w", err))
	}

	c.log.Debugw("http",
		"site", site,
		"url", redact.Emails(rawURL),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", apperrors.AuthRequired(site, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.Transport(site, fmt.Errorf("server error (status %d): %s", resp.StatusCode, truncate(string(body), 200)))
	}
	return string(body), nil
}

// FetchJSON GETs rawURL and decodes the body into v. With stripPrefix the
// first line of the body (an anti-JSON-hijacking prefix such as ")]}'") is
// removed before decoding. A body that does not decode is AuthRequired.
func (c *Client) FetchJSON(ctx context.Context, site, rawURL string, stripPrefix bool, v any) error {
	text, err := c.FetchText(ctx, site, rawURL)
	if err != nil {
		return err
	}
	return DecodeJSON(site, text, stripPrefix, v)
}

// DecodeJSON decodes text into v; see FetchJSON.
func DecodeJSON(site, text string, stripPrefix bool, v any) error {
	if stripPrefix {
		text = StripXSSIPrefix(text)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return apperrors.AuthRequired(site, fmt.Errorf("parsing response: %w", err))
	}
	return nil
}

// Navigate requests rawURL following redirects, and discards the response.
// Only the side effects on the cookie jar matter.
func (c *Client) Navigate(ctx context.Context, site, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return apperrors.Config(site, fmt.Errorf("creating request: %w", err))
	}
	resp, err := c.httpCli.Do(req)
	if err != nil {
		return apperrors.Transport(site, fmt.Errorf("navigating: %w", redactErr(err)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()
	return nil
}

// StripXSSIPrefix drops everything up to and including the first newline.
// Text without a newline is returned unchanged.
func StripXSSIPrefix(text string) string {
	return text[strings.IndexByte(text, '\n')+1:]
}

// Cookies returns the jar's cookies for rawURL.
func (c *Client) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil || c.jar == nil {
		return nil
	}
	return c.jar.Cookies(u)
}

// SetCookies stores cookies for rawURL in the jar.
func (c *Client) SetCookies(rawURL string, cookies []*http.Cookie) {
	u, err := url.Parse(rawURL)
	if err != nil || c.jar == nil || len(cookies) == 0 {
		return
	}
	c.jar.SetCookies(u, cookies)
}

func redactErr(err error) error {
	return errors.New(redact.Emails(err.Error()))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
