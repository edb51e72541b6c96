// Package recall is a thin client for the Recall.ai meeting-bot API.
package recall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	// dl has no client-level timeout: recordings can take minutes to
	// transfer, so only the request context bounds a download.
	dl *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		dl:      &http.Client{},
	}
}

// BotMetadata rides along with the bot and comes back on the done webhook, so
// the analysis can be attributed to a project and requester.
type BotMetadata struct {
	UserID    int64 `json:"user_id"`
	ProjectID int64 `json:"project_id"`
}

// InviteBot asks Recall.ai to join a meeting and returns the bot id.
func (c *Client) InviteBot(ctx context.Context, meetingURL string, meta BotMetadata) (string, error) {
	payload := map[string]interface{}{
		"meeting_url": meetingURL,
		"bot_name":    "Equilibra AI Bot",
		"metadata":    meta,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/bot/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "invite recall bot")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", errors.Errorf("recall bot invite rejected: %d %s", resp.StatusCode, detail)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", errors.Wrap(err, "decode recall response")
	}
	return created.ID, nil
}

// RecordingURL returns the mixed-video download URL of a finished bot, or ""
// when no recording is available.
func (c *Client) RecordingURL(ctx context.Context, botID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/v1/bot/%s", c.baseURL, botID), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "fetch recall bot")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("recall bot fetch failed: %d", resp.StatusCode)
	}

	var detail struct {
		Recordings []struct {
			MediaShortcuts struct {
				VideoMixed struct {
					Data struct {
						DownloadURL string `json:"download_url"`
					} `json:"data"`
				} `json:"video_mixed"`
			} `json:"media_shortcuts"`
		} `json:"recordings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return "", errors.Wrap(err, "decode recall bot detail")
	}
	if len(detail.Recordings) == 0 {
		return "", nil
	}
	return detail.Recordings[0].MediaShortcuts.VideoMixed.Data.DownloadURL, nil
}

// Download fetches a recording. Recordings can be large; the caller's context
// bounds the transfer.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.dl.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "download recording")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("recording download failed: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
