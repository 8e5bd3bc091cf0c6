package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bogzak/search-engine-ua-checker/internal/domain"
)

// Client reports probe runs to a collector API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	agentName  string
	agentToken string
}

// NewClient constructs a report client. Basic Auth is sent only when a token
// is configured.
func NewClient(baseURL, agentName, agentToken string) (*Client, error) {
	normalizedURL, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	if agentName == "" {
		return nil, errors.New("agent name is required")
	}

	return &Client{
		baseURL: normalizedURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		agentName:  agentName,
		agentToken: agentToken,
	}, nil
}

// WithHTTPClient overrides the default http.Client. Primarily useful for testing.
func (c *Client) WithHTTPClient(httpClient *http.Client) {
	if httpClient != nil {
		c.httpClient = httpClient
	}
}

type runReport struct {
	Agent string `json:"agent"`
	domain.ResultSet
}

// SendResults posts a finished run.
func (c *Client) SendResults(ctx context.Context, rs domain.ResultSet) error {
	payload, err := json.Marshal(runReport{Agent: c.agentName, ResultSet: rs})
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/probe-runs", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create run report request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) Heartbeat(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/agents/heartbeat", nil)
	if err != nil {
		return fmt.Errorf("create heartbeat request: %w", err)
	}

	return c.do(req, nil)
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("report base URL is required")
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid report base URL: %w", err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid report base URL: %s", raw)
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	parsed.RawQuery = ""
	parsed.Fragment = ""

	return strings.TrimSuffix(parsed.String(), "/"), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	if c.agentToken != "" {
		req.SetBasicAuth(c.agentName, c.agentToken)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return fmt.Errorf("execute request: network error contacting %s: %w", req.URL.Hostname(), err)
		}
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
