package artifact

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// RemoteClient stages per-student clue files on an external code-hosting
// remote. It is best-effort only: failures are logged by callers and never
// block challenge progress.
type RemoteClient struct {
	apiBase string
	repo    string // "owner/name"
	client  *http.Client
	enabled bool
}

// NewRemoteClient creates a client for the remote artifact host. When the
// base URL or token is unset the client is disabled and every call is a
// logged no-op, mirroring a deployment without the legacy integration.
func NewRemoteClient(apiBase, repo, token string) *RemoteClient {
	if apiBase == "" || repo == "" || token == "" {
		log.Println("Remote artifact host disabled: REMOTE_API_BASE/REMOTE_REPO/REMOTE_TOKEN not configured")
		return &RemoteClient{enabled: false}
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(context.Background(), source)
	client.Timeout = 10 * time.Second

	return &RemoteClient{
		apiBase: apiBase,
		repo:    repo,
		client:  client,
		enabled: true,
	}
}

// IsEnabled returns whether the remote host is configured
func (c *RemoteClient) IsEnabled() bool {
	return c.enabled
}

// StageFile creates or updates a file on the given branch
func (c *RemoteClient) StageFile(ctx context.Context, branch, path, content string) error {
	if !c.enabled {
		log.Printf("Skipping remote staging (host disabled): branch=%s path=%s", branch, path)
		return nil
	}

	endpoint := fmt.Sprintf("%s/repos/%s/contents/%s", c.apiBase, c.repo, url.PathEscape(path))

	body, err := json.Marshal(map[string]string{
		"message": fmt.Sprintf("stage clue for %s", branch),
		"branch":  branch,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
	})
	if err != nil {
		return fmt.Errorf("failed to encode staging request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build staging request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to stage file on remote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("remote staging returned status %d for %s", resp.StatusCode, path)
	}
	return nil
}
