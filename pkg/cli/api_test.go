package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mchmarny/pulse/pkg/audit"
	"github.com/mchmarny/pulse/pkg/basket"
	"github.com/mchmarny/pulse/pkg/config"
	"github.com/mchmarny/pulse/pkg/data"
	"github.com/mchmarny/pulse/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*server, *httptest.Server) {
	t.Helper()
	ctx := context.Background()
	dir := setupTestDir(t)

	c, err := config.ReadOrCreate(dir)
	require.NoError(t, err)

	store, err := data.Open(ctx, data.DriverSQLite, filepath.Join(dir, data.DataFileName))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &appConfig{
		Dir:    dir,
		Path:   filepath.Join(dir, config.FileName),
		Config: c,
		Store:  store,
		Format: formatJSON,

		FileStore: c.Store,
	}
	c.Store.DSN = filepath.Join(dir, data.DataFileName)

	srv, err := newServer(ctx, cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func doRequest(t *testing.T, method, url string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestHealthHandler(t *testing.T) {
	_, ts := newTestServer(t)
	code, body := doRequest(t, http.MethodGet, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status": "ok"}`, body)
}

func TestAssessHandler(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := doRequest(t, http.MethodGet, ts.URL+"/api/assess?r=acme/widget")
	require.Equal(t, http.StatusOK, code, body)
	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	require.True(t, r.OK())
	assert.Equal(t, 100, r.Assessment.Score)

	code, _ = doRequest(t, http.MethodGet, ts.URL+"/api/assess")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, http.MethodGet, ts.URL+"/api/assess?r=not+a+repo")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = doRequest(t, http.MethodGet, ts.URL+"/api/assess?r=acme/missing")
	assert.Equal(t, http.StatusNotFound, code)
	var e apiError
	require.NoError(t, json.Unmarshal([]byte(body), &e))
	assert.Contains(t, e.Message, "could not assess")
}

func TestCompareHandler(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := doRequest(t, http.MethodGet, ts.URL+"/api/compare?r=acme/widget&r=acme/gadget&r=acme/missing")
	require.Equal(t, http.StatusOK, code, body)
	var list []*report.Report
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list, 3)
	assert.True(t, list[0].OK())
	assert.True(t, list[1].OK())
	assert.False(t, list[2].OK())

	code, _ = doRequest(t, http.MethodGet, ts.URL+"/api/compare?r=acme/widget")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReportHandler(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := doRequest(t, http.MethodGet, ts.URL+"/api/report?r=acme/widget&f=md")
	require.Equal(t, http.StatusOK, code, body)
	assert.Contains(t, body, "# acme/widget")

	code, body = doRequest(t, http.MethodGet, ts.URL+"/api/report?r=acme/widget&r=acme/gadget&f=markdown")
	require.Equal(t, http.StatusOK, code, body)
	assert.Contains(t, body, "acme/gadget")

	code, body = doRequest(t, http.MethodGet, ts.URL+"/api/report?r=acme/widget&f=prom")
	require.Equal(t, http.StatusOK, code, body)
	assert.Contains(t, body, `pulse_vitality_score{repo="acme/widget"} 100`)

	code, _ = doRequest(t, http.MethodGet, ts.URL+"/api/report?r=acme/widget&f=yaml")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, http.MethodGet, ts.URL+"/api/report")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSearchHandler(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := doRequest(t, http.MethodGet, ts.URL+"/api/search?q=widget&limit=1")
	require.Equal(t, http.StatusOK, code, body)
	var list []*data.Repo
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "acme/widget", list[0].FullName)

	code, _ = doRequest(t, http.MethodGet, ts.URL+"/api/search?q=widget&limit=zero")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHistoryHandler(t *testing.T) {
	_, ts := newTestServer(t)

	code, _ := doRequest(t, http.MethodGet, ts.URL+"/api/assess?r=acme/widget")
	require.Equal(t, http.StatusOK, code)

	code, body := doRequest(t, http.MethodGet, ts.URL+"/api/history?r=ACME/Widget")
	require.Equal(t, http.StatusOK, code, body)
	var list []*data.AssessmentRecord
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "acme/widget", list[0].Assessment.Repo.FullName)

	code, _ = doRequest(t, http.MethodGet, ts.URL+"/api/history?r=bad")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBasketHandlers(t *testing.T) {
	_, ts := newTestServer(t)
	u := ts.URL + "/api/basket"

	code, body := doRequest(t, http.MethodPost, u+"?r=acme/widget")
	require.Equal(t, http.StatusOK, code, body)

	code, body = doRequest(t, http.MethodPost, u+"?r=acme/widget")
	assert.Equal(t, http.StatusConflict, code)
	var change basketChange
	require.NoError(t, json.Unmarshal([]byte(body), &change))
	assert.False(t, change.Changed)

	code, _ = doRequest(t, http.MethodPost, u+"?r=acme/missing")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = doRequest(t, http.MethodPost, u)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = doRequest(t, http.MethodGet, u)
	require.Equal(t, http.StatusOK, code)
	var items []basket.Item
	require.NoError(t, json.Unmarshal([]byte(body), &items))
	require.Len(t, items, 1)

	code, _ = doRequest(t, http.MethodDelete, u+"?r=acme/gadget")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = doRequest(t, http.MethodDelete, u+"?r=acme/widget")
	assert.Equal(t, http.StatusOK, code)

	_, _ = doRequest(t, http.MethodPost, u+"?r=acme/gadget")
	code, body = doRequest(t, http.MethodDelete, u)
	require.Equal(t, http.StatusOK, code)
	change = basketChange{}
	require.NoError(t, json.Unmarshal([]byte(body), &change))
	assert.Empty(t, change.Items)
}

func TestServerReload(t *testing.T) {
	srv, _ := newTestServer(t)
	_, before := srv.current()

	c := config.Default()
	c.GitHub.CommitWindowDays = 90
	srv.reload(context.Background(), &appConfig{Config: config.Default(), Dir: t.TempDir()}, c)

	_, after := srv.current()
	assert.NotSame(t, before, after)
}

func TestStoreChanged(t *testing.T) {
	dir := t.TempDir()
	cfg := &appConfig{Dir: dir, Config: config.Default()}
	cfg.FileStore = cfg.Config.Store
	cfg.Config.Store.DSN = filepath.Join(dir, data.DataFileName)

	reloaded := config.Default()
	reloaded.GitHub.CommitWindowDays = 60
	assert.False(t, storeChanged(cfg, reloaded), "default sqlite path is not a change")

	reloaded.Store.DSN = "/tmp/other.db"
	assert.True(t, storeChanged(cfg, reloaded))

	reloaded = config.Default()
	reloaded.Store = config.Store{Driver: config.DriverPostgres, DSN: "postgres://localhost/pulse"}
	assert.True(t, storeChanged(cfg, reloaded))
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", audit.ErrInvalidRef), http.StatusBadRequest},
		{fmt.Errorf("x: %w", audit.ErrComparisonSize), http.StatusBadRequest},
		{fmt.Errorf("x: %w", data.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", data.ErrRateLimited), http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}
