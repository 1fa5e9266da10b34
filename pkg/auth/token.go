// Package auth implements the GitHub OAuth device flow.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mchmarny/scirank/pkg/net"
)

const (
	// DefaultBaseURL is the GitHub web host serving the device flow.
	DefaultBaseURL = "https://github.com"

	deviceCodePath  = "/login/device/code"
	accessTokenPath = "/login/oauth/access_token"
	grantType       = "urn:ietf:params:oauth:grant-type:device_code"

	defaultInterval = 5
	slowDownStep    = 5
)

// intervalUnit scales the server supplied polling intervals.
var intervalUnit = time.Second

// Device flow error codes.
// https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/authorizing-oauth-apps#error-codes-for-the-device-flow
var (
	ErrAuthorizationPending = errors.New("authorization pending")
	ErrSlowDown             = errors.New("polling too fast")
	ErrExpiredToken         = errors.New("device code expired")
	ErrAccessDenied         = errors.New("authorization denied by user")
	ErrUnsupportedGrant     = errors.New("unsupported grant type")
	ErrIncorrectClient      = errors.New("incorrect client credentials")
	ErrIncorrectDeviceCode  = errors.New("incorrect device code")
	ErrDeviceFlowDisabled   = errors.New("device flow disabled for this app")

	errorCodes = map[string]error{
		"authorization_pending":        ErrAuthorizationPending,
		"slow_down":                    ErrSlowDown,
		"expired_token":                ErrExpiredToken,
		"access_denied":                ErrAccessDenied,
		"unsupported_grant_type":       ErrUnsupportedGrant,
		"incorrect_client_credentials": ErrIncorrectClient,
		"incorrect_device_code":        ErrIncorrectDeviceCode,
		"device_flow_disabled":         ErrDeviceFlowDisabled,
	}
)

type DeviceCode struct {
	// The device verification code is 40 characters and used to verify the device.
	DeviceCode string `json:"device_code,omitempty"`
	// The user verification code is displayed on the device so the user
	// can enter the code in a browser.
	UserCode string `json:"user_code,omitempty"`
	// The verification URL where users need to enter the user_code
	VerificationURL string `json:"verification_uri,omitempty"`
	// The number of seconds before the device_code and user_code expire.
	ExpiresInSec int `json:"expires_in,omitempty"`
	// The minimum number of seconds between access token requests.
	Interval int `json:"interval,omitempty"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	Scope       string `json:"scope,omitempty"`

	Error       string `json:"error,omitempty"`
	Description string `json:"error_description,omitempty"`
	Interval    int    `json:"interval,omitempty"`
}

// Client runs the device flow against one host.
type Client struct {
	ClientID string
	BaseURL  string
	HTTP     *http.Client
}

// NewClient returns a client for github.com.
func NewClient(clientID string) (*Client, error) {
	if clientID == "" {
		return nil, errors.New("clientID is required")
	}
	hc, err := net.GetHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get http client: %w", err)
	}
	return &Client{ClientID: clientID, BaseURL: DefaultBaseURL, HTTP: hc}, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(c.BaseURL, "/")+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", net.UserAgent)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body := ""
		if b, err := io.ReadAll(res.Body); err == nil {
			body = string(b)
		}
		return fmt.Errorf("unexpected response: %s - %s - %s", res.Status, path, body)
	}

	if err := json.NewDecoder(res.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetDeviceCode starts the flow. An empty scope requests read-only public
// access.
func (c *Client) GetDeviceCode(ctx context.Context, scope string) (*DeviceCode, error) {
	if c.ClientID == "" {
		return nil, errors.New("clientID is required")
	}

	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("scope", scope)

	var dc DeviceCode
	if err := c.post(ctx, deviceCodePath, form, &dc); err != nil {
		return nil, fmt.Errorf("failed to get device code: %w", err)
	}
	if dc.DeviceCode == "" {
		return nil, errors.New("empty device code in response")
	}
	return &dc, nil
}

// GetToken makes one access token request. Device flow error codes are
// returned as the matching sentinel error.
func (c *Client) GetToken(ctx context.Context, code *DeviceCode) (*AccessTokenResponse, error) {
	if c.ClientID == "" {
		return nil, errors.New("clientID is required")
	}
	if code == nil {
		return nil, errors.New("device code is nil")
	}

	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("device_code", code.DeviceCode)
	form.Set("grant_type", grantType)

	var t AccessTokenResponse
	if err := c.post(ctx, accessTokenPath, form, &t); err != nil {
		return nil, err
	}

	if t.Error != "" {
		if known, ok := errorCodes[t.Error]; ok {
			return &t, known
		}
		return &t, fmt.Errorf("device flow error %s: %s", t.Error, t.Description)
	}

	if t.AccessToken == "" {
		return nil, errors.New("access token is empty")
	}
	return &t, nil
}

// PollToken requests the token until the user authorizes the device, the
// code expires or ctx is done. slow_down responses lengthen the interval.
func (c *Client) PollToken(ctx context.Context, code *DeviceCode) (*AccessTokenResponse, error) {
	if code == nil {
		return nil, errors.New("device code is nil")
	}

	interval := time.Duration(code.Interval) * intervalUnit
	if interval <= 0 {
		interval = defaultInterval * intervalUnit
	}

	if code.ExpiresInSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(code.ExpiresInSec)*intervalUnit)
		defer cancel()
	}

	for {
		t, err := c.GetToken(ctx, code)
		switch {
		case err == nil:
			return t, nil
		case errors.Is(err, ErrAuthorizationPending):
		case errors.Is(err, ErrSlowDown):
			interval += slowDownStep * intervalUnit
			if t != nil && t.Interval > 0 {
				interval = time.Duration(t.Interval) * intervalUnit
			}
			slog.Debug("slowing down token polling", "interval", interval)
		default:
			if ctx.Err() != nil {
				return nil, pollErr(ctx)
			}
			return nil, err
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, pollErr(ctx)
		case <-timer.C:
		}
	}
}

func pollErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrExpiredToken
	}
	return ctx.Err()
}
