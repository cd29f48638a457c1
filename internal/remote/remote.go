// Package remote talks to a running sender's HTTP control server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ndi-chaos-go/internal/types"
)

var ErrMissingBaseURL = errors.New("missing base url")

// Status is the subset of /status the listener compares against.
type Status struct {
	State      string `json:"state"`
	Source     string `json:"source"`
	FramesSent uint64 `json:"frames_sent_total"`
	Stalls     uint64 `json:"stalls_total"`
	SendErrors uint64 `json:"send_errors_total"`
	MaxGapNs   int64  `json:"max_gap_nanos"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 900 * time.Millisecond},
	}, nil
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	body, err := c.do(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(body, &st); err != nil {
		return st, fmt.Errorf("decode status: %w", err)
	}
	st.State = strings.ToLower(st.State)
	return st, nil
}

// Command runs one console line on the sender. A rejected command is
// reported in the result, not as an error.
func (c *Client) Command(ctx context.Context, line string) (types.CommandResult, error) {
	var res types.CommandResult
	payload, err := json.Marshal(map[string]string{"line": line})
	if err != nil {
		return res, err
	}
	body, err := c.do(ctx, http.MethodPost, "/command", payload)
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return res, fmt.Errorf("decode command result: %w", err)
	}
	return res, nil
}

// Poll fetches status every interval until ctx is done. Fetch errors are
// passed to update with a zero Status.
func (c *Client) Poll(ctx context.Context, interval time.Duration, update func(Status, error)) {
	if update == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := c.Status(ctx)
		if ctx.Err() != nil {
			return
		}
		update(st, err)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: http_%d", method, path, resp.StatusCode)
	}
	return data, nil
}
