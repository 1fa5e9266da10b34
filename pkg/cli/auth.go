package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/scirank/pkg/auth"
	"github.com/urfave/cli/v3"
	"github.com/zalando/go-keyring"
)

const (
	clientID       = "f1b500ebdf533aa8a3e2"
	tokenFileName  = "github_token"
	keyringService = "scirank"
	keyringUser    = "github_token"
	tokenFileMode  = 0600
)

func tokenFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    flagToken,
		Usage:   "GitHub access token (default: keychain, then token file)",
		Sources: cli.EnvVars("GITHUB_TOKEN", "GITHUB_ACCESS_TOKEN"),
	}
}

func newAuthCmd() *cli.Command {
	return &cli.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Authenticate to GitHub to obtain an access token",
		Action:          cmdInitAuthFlow,
	}
}

func cmdInitAuthFlow(ctx context.Context, cmd *cli.Command) error {
	c, err := auth.NewClient(clientID)
	if err != nil {
		return err
	}

	code, err := c.GetDeviceCode(ctx, "")
	if err != nil {
		return fmt.Errorf("getting device code: %w", err)
	}

	w := stdout(cmd)
	fmt.Fprintf(w, "1). Copy this code: %s\n", code.UserCode)
	fmt.Fprintf(w, "2). Navigate to this URL in your browser to authenticate: %s\n", code.VerificationURL)
	fmt.Fprint(w, "3). Waiting for authorization...\n")

	token, err := c.PollToken(ctx, code)
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	where, err := saveGitHubToken(getConfig(cmd).HomeDir, token.AccessToken)
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Fprintf(w, "Token saved to %s\n", where)
	return nil
}

// saveGitHubToken stores token in the OS keychain, falling back to a file
// in dir. It returns where the token went.
func saveGitHubToken(dir, token string) (string, error) {
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		p := filepath.Join(dir, tokenFileName)
		if err := os.WriteFile(p, []byte(token), tokenFileMode); err != nil {
			return "", fmt.Errorf("writing token file %s: %w", p, err)
		}
		return p, nil
	}

	// drop the file copy so the keychain is the only source
	if err := os.Remove(filepath.Join(dir, tokenFileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("removing token file", "error", err)
	}
	return "OS keychain", nil
}

// getGitHubToken resolves the token from the flag or environment, then the
// keychain, then the token file in dir. An empty token is not an error;
// GitHub allows unauthenticated requests at a lower rate.
func getGitHubToken(cmd *cli.Command, dir string) string {
	if t := strings.TrimSpace(cmd.String(flagToken)); t != "" {
		return t
	}

	if t, err := keyring.Get(keyringService, keyringUser); err == nil && t != "" {
		return strings.TrimSpace(t)
	}

	b, err := os.ReadFile(filepath.Join(dir, tokenFileName))
	if err != nil {
		slog.Warn("no GitHub token found, run auth or set GITHUB_TOKEN; using unauthenticated requests")
		return ""
	}
	return strings.TrimSpace(string(b))
}
