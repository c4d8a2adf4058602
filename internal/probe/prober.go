package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/restock/internal/domain"
)

const (
	// DefaultTimeout bounds a whole probe: connect, headers and body.
	DefaultTimeout = 10 * time.Second

	// MaxBodyBytes is the largest page that is classified. Bigger pages
	// fail with *BodyTooLargeError instead of being judged on a prefix.
	MaxBodyBytes = 8 << 20

	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	acceptHeader = "text/html,application/xhtml+xml"
)

// Prober fetches a target page and classifies it as in or out of stock.
type Prober struct {
	client  *http.Client
	timeout time.Duration
}

// New creates a prober whose every probe is bounded by timeout.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
	}

	return &Prober{client: client, timeout: timeout}
}

// Probe issues a single GET for the target and reports whether the page
// looks in stock. Errors are *NetworkError, *HTTPStatusError or
// *BodyTooLargeError.
func (p *Prober) Probe(ctx context.Context, target domain.Target) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := p.client.Do(req)
	if err != nil {
		return false, &NetworkError{URL: target.URL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close() // nothing useful to do with a close error here
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, &HTTPStatusError{URL: target.URL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return false, &NetworkError{URL: target.URL, Err: err}
	}
	if len(body) > MaxBodyBytes {
		return false, &BodyTooLargeError{URL: target.URL, Limit: MaxBodyBytes}
	}

	return InStock(body, target.OutOfStockText), nil
}

// InStock reports whether body does not contain outOfStockText, ignoring
// case. An empty outOfStockText is never found, so the page is in stock.
func InStock(body []byte, outOfStockText string) bool {
	if outOfStockText == "" {
		return true
	}
	needle := []byte(strings.ToLower(outOfStockText))
	return !bytes.Contains(bytes.ToLower(body), needle)
}
