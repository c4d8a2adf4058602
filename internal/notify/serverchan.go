package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/restock/internal/logger"
)

// DefaultServerChanURL is the Server酱 Turbo push endpoint; %s is the SendKey.
const DefaultServerChanURL = "https://sctapi.ftqq.com/%s.send"

// ServerChan pushes messages through Server酱.
type ServerChan struct {
	key      string
	endpoint string
	client   *http.Client
	logger   logger.Logger
}

// NewServerChan creates a Server酱 sink. An empty key disables sending:
// every Send returns ErrNotConfigured. endpoint may be empty for the
// public service.
func NewServerChan(key, endpoint string, log logger.Logger) *ServerChan {
	if endpoint == "" {
		endpoint = DefaultServerChanURL
	}
	return &ServerChan{
		key:      key,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   log,
	}
}

// Enabled reports whether a key is configured.
func (s *ServerChan) Enabled() bool {
	return s.key != ""
}

// Send posts title and body as a form (title, desp).
func (s *ServerChan) Send(ctx context.Context, title, body string) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}

	form := url.Values{}
	form.Set("title", title)
	form.Set("desp", body)

	api := fmt.Sprintf(s.endpoint, url.PathEscape(s.key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create serverchan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("serverchan request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("serverchan responded with HTTP %d", resp.StatusCode)
	}

	s.logger.Info("notification sent", logger.String("title", title))
	return nil
}
