package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/pulse/pkg/auth"
	"github.com/mchmarny/pulse/pkg/net"
	urfave "github.com/urfave/cli/v3"
	"github.com/zalando/go-keyring"
)

const (
	clientIDEnvVar = "PULSE_GITHUB_CLIENT_ID"
	tokenFileName  = "github_token"
	tokenEnvVar    = "GITHUB_TOKEN"
	keyringService = "pulse"
	keyringUser    = "github_token"
	tokenFileMode  = 0600
)

func newAuthCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Authenticate to GitHub to obtain an access token",
		Action:          cmdInitAuthFlow,
	}
}

func cmdInitAuthFlow(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)
	w := writer(cmd)

	client, err := net.GetHTTPClient()
	if err != nil {
		return fmt.Errorf("creating http client: %w", err)
	}

	clientID := cfg.Config.GitHub.ClientID
	if v := os.Getenv(clientIDEnvVar); v != "" {
		clientID = v
	}
	if clientID == "" {
		return fmt.Errorf("github oauth app client id required: set github.client_id in %s or %s", cfg.Path, clientIDEnvVar)
	}

	flow, err := auth.NewFlow(clientID, client)
	if err != nil {
		return fmt.Errorf("creating auth flow: %w", err)
	}

	code, err := flow.GetDeviceCode(ctx)
	if err != nil {
		return fmt.Errorf("getting device code: %w", err)
	}

	fmt.Fprintf(w, "1). Copy this code: %s\n", code.UserCode)
	fmt.Fprintf(w, "2). Navigate to this URL in your browser to authenticate: %s\n", code.VerificationURL)
	fmt.Fprintln(w, "3). Waiting for authorization...")

	token, err := flow.WaitForToken(ctx, code)
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	where, err := saveGitHubToken(cfg.Dir, token.AccessToken)
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Fprintf(w, "Token saved to %s\n", where)
	return nil
}

// saveGitHubToken stores the token in the OS keychain, or in a file in dir
// when no keychain is available. It returns where the token was saved.
func saveGitHubToken(dir, token string) (string, error) {
	if token == "" {
		return "", errors.New("token is empty")
	}

	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		p := filepath.Join(dir, tokenFileName)
		if err := os.WriteFile(p, []byte(token), tokenFileMode); err != nil {
			return "", fmt.Errorf("writing token file %s: %w", p, err)
		}
		return p, nil
	}

	// the keychain copy supersedes any file copy
	os.Remove(filepath.Join(dir, tokenFileName))

	return "OS keychain", nil
}

// getGitHubToken returns the token from the environment, the keychain or
// the token file, in that order. An empty token is not an error.
func getGitHubToken(dir string) string {
	if v := strings.TrimSpace(os.Getenv(tokenEnvVar)); v != "" {
		return v
	}

	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token
	}

	b, err := os.ReadFile(filepath.Join(dir, tokenFileName))
	if err != nil {
		slog.Debug("no github token found, using unauthenticated access")
		return ""
	}
	return strings.TrimSpace(string(b))
}
