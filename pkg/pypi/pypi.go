// Package pypi queries a PEP 503 "simple" package index.
package pypi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mchmarny/scirank/pkg/net"
	"github.com/mchmarny/scirank/pkg/resolve"
	"golang.org/x/time/rate"
)

const (
	// DefaultURL is the public PyPI simple index.
	DefaultURL = "https://pypi.org/simple/"

	defaultRequestsPerSecond = 5
)

// ErrNotFound is returned by Files when the index has no such project.
var ErrNotFound = errors.New("package not found in index")

// File is one distribution listed for a project.
type File struct {
	Name           string `json:"name" yaml:"name"`
	URL            string `json:"url" yaml:"url"`
	RequiresPython string `json:"requires_python,omitempty" yaml:"requiresPython,omitempty"`
	Yanked         bool   `json:"yanked,omitempty" yaml:"yanked,omitempty"`
}

// Client is a rate limited simple index client. It is safe for concurrent use.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for index requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRate limits index requests per second; rps <= 0 disables limiting.
func WithRate(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// New creates a client for the index at base (DefaultURL when empty).
func New(base string, opts ...Option) *Client {
	if base == "" {
		base = DefaultURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	c := &Client{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ProjectURL returns the index page of pkg.
func (c *Client) ProjectURL(pkg string) string {
	return c.base + resolve.Normalize(pkg) + "/"
}

// Files lists the distributions published for pkg.
func (c *Client) Files(ctx context.Context, pkg string) ([]File, error) {
	if strings.TrimSpace(pkg) == "" {
		return nil, errors.New("package name is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	u := c.ProjectURL(pkg)
	resp, err := net.Get(ctx, c.http, u, "text/html")
	if err != nil {
		if errors.Is(err, net.ErrorURLNotFound) {
			return nil, fmt.Errorf("%s: %w", pkg, ErrNotFound)
		}
		return nil, fmt.Errorf("querying index for %s: %w", pkg, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing index page for %s: %w", pkg, err)
	}

	list := make([]File, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		_, yanked := s.Attr("data-yanked")
		rp, _ := s.Attr("data-requires-python")
		list = append(list, File{
			Name:           strings.TrimSpace(s.Text()),
			URL:            resolveHref(resp.Request.URL, href),
			RequiresPython: rp,
			Yanked:         yanked,
		})
	})

	slog.Debug("index files", "package", pkg, "count", len(list))
	return list, nil
}

// Exists reports whether pkg has at least one installable (non-yanked)
// distribution. A missing project is not an error.
func (c *Client) Exists(ctx context.Context, pkg string) (bool, error) {
	files, err := c.Files(ctx, pkg)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	for _, f := range files {
		if !f.Yanked {
			return true, nil
		}
	}
	return false, nil
}

func resolveHref(page *url.URL, href string) string {
	u, err := page.Parse(href)
	if err != nil {
		return href
	}
	return u.String()
}
