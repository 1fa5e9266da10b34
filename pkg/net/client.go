package net

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/oauth2"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60

	// UserAgent identifies scirank on outbound requests.
	UserAgent = "scirank (+https://github.com/mchmarny/scirank)"
)

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       timeoutInSeconds * time.Second,
		DisableKeepAlives:     false,
		ResponseHeaderTimeout: time.Duration(timeoutInSeconds) * time.Second,
	}
}

// GetHTTPClient returns a plain client with a cookie jar and sane timeouts.
func GetHTTPClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("error creating cookie jar: %w", err)
	}

	return &http.Client{
		Jar:       jar,
		Transport: newTransport(),
		Timeout:   time.Duration(timeoutInSeconds) * time.Second,
	}, nil
}

// GetOAuthClient returns a client that sends token on every request.
// An empty token yields an unauthenticated client.
func GetOAuthClient(ctx context.Context, token string) *http.Client {
	if token == "" {
		return &http.Client{
			Transport: newTransport(),
			Timeout:   time.Duration(timeoutInSeconds) * time.Second,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			TokenType:   "token",
			AccessToken: token,
		},
	)

	return oauth2.NewClient(ctx, ts)
}
