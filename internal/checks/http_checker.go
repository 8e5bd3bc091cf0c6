package checks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/bogzak/search-engine-ua-checker/internal/domain"
)

// drainLimit caps how much of a body is read to let the connection be reused.
const drainLimit = 1 << 20

// HTTPChecker probes a URL with a single identity.
type HTTPChecker struct {
	client *Client
	log    *slog.Logger
}

func NewHTTPChecker(client *Client, log *slog.Logger) *HTTPChecker {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &HTTPChecker{
		client: client,
		log:    log,
	}
}

// Check runs one probe. It never fails: transport errors end up in the
// outcome's Error field.
func (h *HTTPChecker) Check(ctx context.Context, target string, task domain.ProbeTask, follow bool) domain.ProbeOutcome {
	start := time.Now()
	outcome := h.probe(ctx, target, task, follow)
	outcome.DurationMS = time.Since(start).Milliseconds()
	return outcome
}

func (h *HTTPChecker) probe(ctx context.Context, target string, task domain.ProbeTask, follow bool) domain.ProbeOutcome {
	outcome := domain.NewOutcome(task)
	headers := buildHeaders(task.UserAgent)

	resp, err := h.exchange(ctx, h.client.direct, target, headers)
	if err != nil {
		msg := describeError(err)
		outcome.Error = &msg
		h.log.Debug("probe failed",
			"engine", task.Engine,
			"ua_name", task.Label,
			"error", msg,
		)
		return outcome
	}

	status := resp.StatusCode
	outcome.InitialStatus = &status

	if loc := resp.Header.Get("Location"); loc != "" {
		outcome.RedirectLocation = &loc
	}

	h.log.Debug("probe response",
		"engine", task.Engine,
		"ua_name", task.Label,
		"status", status,
	)

	if !follow || !domain.IsRedirect(status) || outcome.RedirectLocation == nil {
		return outcome
	}

	next, err := resp.Location()
	if err != nil {
		outcome.RedirectFollowFailed = true
		h.log.Warn("unusable redirect location",
			"engine", task.Engine,
			"ua_name", task.Label,
			"location", *outcome.RedirectLocation,
			"error", err,
		)
		return outcome
	}

	final, err := h.exchange(ctx, h.client.follow, next.String(), headers)
	if err != nil {
		outcome.RedirectFollowFailed = true
		h.log.Warn("redirect follow failed",
			"engine", task.Engine,
			"ua_name", task.Label,
			"location", next.String(),
			"error", describeError(err),
		)
		return outcome
	}

	finalURL := final.Request.URL.String()
	finalStatus := final.StatusCode
	outcome.FinalURL = &finalURL
	outcome.FinalStatus = &finalStatus

	return outcome
}

func (h *HTTPChecker) exchange(ctx context.Context, c *http.Client, target string, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header = headers.Clone()

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Drain so the transport can reuse the connection.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	return resp, nil
}

func describeError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return fmt.Sprintf("timeout: %s %s: %v", urlErr.Op, urlErr.URL, urlErr.Err)
		}

		var dnsErr *net.DNSError
		if errors.As(urlErr.Err, &dnsErr) {
			return fmt.Sprintf("dns error: %v", urlErr)
		}
		var opErr *net.OpError
		if errors.As(urlErr.Err, &opErr) {
			return fmt.Sprintf("connection error: %v", urlErr)
		}
	}

	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}

	return err.Error()
}
