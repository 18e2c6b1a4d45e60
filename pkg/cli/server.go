package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/mchmarny/pulse/pkg/audit"
	"github.com/mchmarny/pulse/pkg/basket"
	"github.com/mchmarny/pulse/pkg/config"
	"github.com/mchmarny/pulse/pkg/data"
	urfave "github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080

	portFlagName      = "port"
	noBrowserFlagName = "no-browser"
)

func newServerCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local HTTP server with the JSON API",
		Action:  cmdStartServer,
		Flags: []urfave.Flag{
			&urfave.IntFlag{
				Name:  portFlagName,
				Usage: "Port on which the server will listen",
				Value: serverPortDefault,
			},
			&urfave.BoolFlag{
				Name:    noBrowserFlagName,
				Aliases: []string{"nb"},
				Usage:   "Do not open browser automatically",
			},
		},
	}
}

// repoFinder looks up repositories without assessing them.
type repoFinder interface {
	SearchRepositories(ctx context.Context, query string, limit int) ([]*data.Repo, error)
	GetRepo(ctx context.Context, owner, repo string) (*data.Repo, error)
}

// server holds the API dependencies. The auditor and finder are replaced
// when the config file changes.
type server struct {
	mu      sync.RWMutex
	auditor *audit.Auditor
	finder  repoFinder
	store   *data.Store
	basket  *basket.Basket
}

func (s *server) current() (*audit.Auditor, repoFinder) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auditor, s.finder
}

func (s *server) swap(a *audit.Auditor, f repoFinder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditor = a
	s.finder = f
}

func newServer(ctx context.Context, cfg *appConfig) (*server, error) {
	a, p, err := newAuditor(ctx, cfg, true)
	if err != nil {
		return nil, err
	}

	b, err := openBasket(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &server{
		auditor: a,
		finder:  p,
		store:   cfg.Store,
		basket:  b,
	}, nil
}

// reload applies GitHub settings from a changed config. Store settings
// only take effect on restart.
func (s *server) reload(ctx context.Context, cfg *appConfig, c *config.Config) {
	if storeChanged(cfg, c) {
		slog.Warn("store settings changed, restart the server to apply them")
	}

	next := *cfg
	nextConfig := *cfg.Config
	nextConfig.GitHub = c.GitHub
	next.Config = &nextConfig

	a, p, err := newAuditor(ctx, &next, true)
	if err != nil {
		slog.Error("failed to apply config change", "error", err)
		return
	}
	s.swap(a, p)
	slog.Info("github settings reloaded",
		"commit_window_days", c.GitHub.CommitWindowDays,
		"issue_sample_size", c.GitHub.IssueSampleSize,
	)
}

// storeChanged compares file contents only, so defaults and flag overrides
// applied at startup do not count as a change.
func storeChanged(cfg *appConfig, c *config.Config) bool {
	return c.Store != cfg.FileStore
}

func cmdStartServer(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)
	port := cmd.Int(portFlagName)
	address := fmt.Sprintf("127.0.0.1:%d", port)

	srv, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}

	s := &http.Server{
		Addr:           address,
		Handler:        srv.routes(),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		err := config.Watch(watchCtx, cfg.Path, func(c *config.Config) {
			srv.reload(watchCtx, cfg, c)
		})
		if err != nil {
			slog.Error("config watch stopped", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	url := fmt.Sprintf("http://%s", address)
	slog.Info("server started", "address", url)

	if !cmd.Bool(noBrowserFlagName) {
		openBrowser(url + "/healthz")
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func openBrowser(url string) {
	var cmd string
	args := make([]string, 0, 1)

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "linux":
		cmd = "xdg-open"
	default: // windows
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	}

	args = append(args, url)
	if err := exec.Command(cmd, args...).Start(); err != nil {
		slog.Error("failed to open browser", "error", err)
	}
}
