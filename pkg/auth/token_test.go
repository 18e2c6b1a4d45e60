package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlow(t *testing.T, h http.HandlerFunc) *Flow {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	f, err := NewFlow("test-client", srv.Client())
	require.NoError(t, err)
	f.codeURL = srv.URL + "/code"
	f.tokenURL = srv.URL + "/token"
	f.pollUnit = time.Millisecond
	return f
}

func TestNewFlow_EmptyClientID(t *testing.T) {
	_, err := NewFlow("", nil)
	assert.Error(t, err)
}

func TestWaitForToken_NilCode(t *testing.T) {
	f, err := NewFlow("test-client", nil)
	require.NoError(t, err)
	_, err = f.WaitForToken(context.Background(), nil)
	assert.Error(t, err)
}

func TestGetDeviceCode(t *testing.T) {
	f := testFlow(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "test-client", r.PostForm.Get("client_id"))
		_, _ = w.Write([]byte(`{"device_code":"dc_test","user_code":"ABCD-1234","verification_uri":"https://github.com/login/device","expires_in":900,"interval":5}`))
	})

	dc, err := f.GetDeviceCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dc_test", dc.DeviceCode)
	assert.Equal(t, "ABCD-1234", dc.UserCode)
	assert.Equal(t, "https://github.com/login/device", dc.VerificationURL)
	assert.Equal(t, 900, dc.ExpiresInSec)
	assert.Equal(t, 5, dc.Interval)
}

func TestWaitForToken_PendingThenGranted(t *testing.T) {
	var polls atomic.Int32
	f := testFlow(t, func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		resp := AccessTokenResponse{Error: errPending}
		if n == 2 {
			resp = AccessTokenResponse{Error: errSlowDown}
		}
		if n >= 3 {
			resp = AccessTokenResponse{AccessToken: "gho_test123", TokenType: "bearer"}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	tok, err := f.WaitForToken(context.Background(), &DeviceCode{DeviceCode: "dc", Interval: 1, ExpiresInSec: 10000})
	require.NoError(t, err)
	assert.Equal(t, "gho_test123", tok.AccessToken)
	assert.Equal(t, int32(3), polls.Load())
}

func TestWaitForToken_Denied(t *testing.T) {
	f := testFlow(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AccessTokenResponse{Error: errDenied})
	})

	_, err := f.WaitForToken(context.Background(), &DeviceCode{DeviceCode: "dc", Interval: 1})
	assert.ErrorIs(t, err, ErrDenied)
}

func TestWaitForToken_Expired(t *testing.T) {
	f := testFlow(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AccessTokenResponse{Error: errExpired})
	})

	_, err := f.WaitForToken(context.Background(), &DeviceCode{DeviceCode: "dc", Interval: 1})
	assert.ErrorIs(t, err, ErrExpired)
}

func TestWaitForToken_Cancelled(t *testing.T) {
	f := testFlow(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AccessTokenResponse{Error: errPending})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.WaitForToken(ctx, &DeviceCode{DeviceCode: "dc", Interval: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAccessTokenResponse_Unmarshal(t *testing.T) {
	raw := `{"access_token":"gho_test123","token_type":"bearer","scope":""}`
	var atr AccessTokenResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &atr))
	assert.Equal(t, "gho_test123", atr.AccessToken)
	assert.Equal(t, "bearer", atr.TokenType)
	assert.Empty(t, atr.Error)
}
