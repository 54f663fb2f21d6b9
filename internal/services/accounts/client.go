package accounts

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/militaernews/tarta/internal/infra/httpclient"
)

// Client calls the external account-management service that actually marks a
// subject as banned. With an empty base URL it runs in dry mode and bans are
// no-ops, mirroring how the bot behaves without a token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	dryRun     bool
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")

	return &Client{
		httpClient: httpclient.New(timeout),
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		dryRun:     baseURL == "",
	}
}

// BanSubject is idempotent on the remote side: banning an already banned
// subject reports success.
func (c *Client) BanSubject(ctx context.Context, subjectUserID int64) error {
	if subjectUserID <= 0 {
		return fmt.Errorf("invalid subject user id")
	}
	if c.dryRun {
		return nil
	}

	url := c.baseURL + "/users/" + strconv.FormatInt(subjectUserID, 10) + "/ban"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("create ban request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call account service ban: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		// Already banned.
		return nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected account service status: %d", resp.StatusCode)
	}

	return nil
}
