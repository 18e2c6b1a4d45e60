package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mchmarny/pulse/pkg/net"
)

const (
	deviceCodeURL = "https://github.com/login/device/code"
	accessCodeURL = "https://github.com/login/oauth/access_token"
	deviceScopes  = "" // public read-only access is all the auditor needs
	grantType     = "urn:ietf:params:oauth:grant-type:device_code"

	defaultIntervalSec = 5
	slowDownStepSec    = 5

	errPending  = "authorization_pending"
	errSlowDown = "slow_down"
	errExpired  = "expired_token"
	errDenied   = "access_denied"
)

var (
	ErrExpired = errors.New("device code expired before authorization completed")
	ErrDenied  = errors.New("authorization denied by user")
)

// DeviceCode is the response to the device code request.
type DeviceCode struct {
	DeviceCode      string `json:"device_code,omitempty"`
	UserCode        string `json:"user_code,omitempty"`
	VerificationURL string `json:"verification_uri,omitempty"`
	// Seconds until both codes expire (GitHub default is 900).
	ExpiresInSec int `json:"expires_in,omitempty"`
	// Minimum seconds between token polls.
	Interval int `json:"interval,omitempty"`
}

// AccessTokenResponse is the response of a token poll. While the user has
// not yet completed the browser step Error is set and AccessToken is empty.
type AccessTokenResponse struct {
	AccessToken      string `json:"access_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	Scope            string `json:"scope,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Flow runs the GitHub OAuth device authorization flow.
type Flow struct {
	clientID  string
	client    *http.Client
	codeURL   string
	tokenURL  string
	pollUnit  time.Duration
	clockFunc func() time.Time
}

// NewFlow creates a device flow for the given OAuth app client ID.
func NewFlow(clientID string, client *http.Client) (*Flow, error) {
	if clientID == "" {
		return nil, errors.New("clientID is required")
	}
	if client == nil {
		c, err := net.GetHTTPClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get http client: %w", err)
		}
		client = c
	}
	return &Flow{
		clientID:  clientID,
		client:    client,
		codeURL:   deviceCodeURL,
		tokenURL:  accessCodeURL,
		pollUnit:  time.Second,
		clockFunc: time.Now,
	}, nil
}

// GetDeviceCode requests a new device and user code pair.
func (f *Flow) GetDeviceCode(ctx context.Context) (*DeviceCode, error) {
	form := url.Values{
		"client_id": {f.clientID},
		"scope":     {deviceScopes},
	}

	var dc DeviceCode
	if err := net.PostForm(ctx, f.client, f.codeURL, form, &dc); err != nil {
		return nil, fmt.Errorf("failed to get device code: %w", err)
	}
	if dc.DeviceCode == "" {
		return nil, errors.New("device code response is empty")
	}
	return &dc, nil
}

// WaitForToken polls until the user authorizes the device, the code
// expires, or ctx is cancelled.
func (f *Flow) WaitForToken(ctx context.Context, code *DeviceCode) (*AccessTokenResponse, error) {
	if code == nil {
		return nil, errors.New("device code is nil")
	}

	interval := code.Interval
	if interval <= 0 {
		interval = defaultIntervalSec
	}
	expiresAt := f.clockFunc().Add(time.Duration(code.ExpiresInSec) * f.pollUnit)

	form := url.Values{
		"client_id":   {f.clientID},
		"device_code": {code.DeviceCode},
		"grant_type":  {grantType},
	}

	for {
		if code.ExpiresInSec > 0 && f.clockFunc().After(expiresAt) {
			return nil, ErrExpired
		}

		if err := sleep(ctx, time.Duration(interval)*f.pollUnit); err != nil {
			return nil, err
		}

		var t AccessTokenResponse
		if err := net.PostForm(ctx, f.client, f.tokenURL, form, &t); err != nil {
			return nil, fmt.Errorf("failed to poll for token: %w", err)
		}

		switch t.Error {
		case "":
			if t.AccessToken == "" {
				return nil, errors.New("access token is empty")
			}
			return &t, nil
		case errPending:
			slog.Debug("waiting for device authorization")
		case errSlowDown:
			interval += slowDownStepSec
			slog.Debug("slowing down token polling", "interval", interval)
		case errExpired:
			return nil, ErrExpired
		case errDenied:
			return nil, ErrDenied
		default:
			return nil, fmt.Errorf("token request failed: %s - %s", t.Error, t.ErrorDescription)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
