package checks

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultTimeout      = 3 * time.Second
	defaultMaxRedirects = 10
)

var ErrInvalidProxy = errors.New("invalid proxy url")

// Options configures the connection context shared by every probe of a run.
type Options struct {
	Timeout      time.Duration
	Proxy        string
	MaxRedirects int
	MaxIdleConns int
}

// Client holds one transport and two clients built on it: one that returns
// redirects as-is and one that follows them. It is immutable after
// construction and safe for concurrent use.
type Client struct {
	direct  *http.Client
	follow  *http.Client
	timeout time.Duration
	proxy   *url.URL
}

func NewClient(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 32
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          opts.MaxIdleConns,
		MaxIdleConnsPerHost:   opts.MaxIdleConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.Timeout,
		ExpectContinueTimeout: time.Second,
	}

	var proxyURL *url.URL
	if opts.Proxy != "" {
		parsed, err := ParseProxy(opts.Proxy)
		if err != nil {
			return nil, err
		}
		proxyURL = parsed
		transport.Proxy = http.ProxyURL(parsed)
	}

	maxRedirects := opts.MaxRedirects

	return &Client{
		direct: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		follow: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		timeout: opts.Timeout,
		proxy:   proxyURL,
	}, nil
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Proxied reports whether requests go through an explicit proxy.
func (c *Client) Proxied() bool {
	return c.proxy != nil
}

// ParseProxy accepts http, https and socks5 proxy URLs with a host.
func ParseProxy(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}

	switch parsed.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, parsed.Scheme)
	}

	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidProxy)
	}

	return parsed, nil
}
