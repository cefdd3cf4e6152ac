package blibli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"semantic-sensei/internal/infra/metrics"
)

// Config описывает параметры доступа к API маркетплейса.
type Config struct {
	BaseURL       string
	ChannelID     string
	UserAgent     string
	SessionCookie string
	Timeout       time.Duration
	RPS           float64
}

// Client выполняет запросы к публичному backend API Blibli.
// Все вызовы проходят через общий rate limiter.
type Client struct {
	http    *http.Client
	cfg     Config
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient создаёт клиента маркетплейса.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.blibli.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ChannelID == "" {
		cfg.ChannelID = "web"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		log:     logger.With().Str("component", "blibli").Logger(),
	}
}

// getJSON выполняет GET и декодирует ответ в out.
func (c *Client) getJSON(ctx context.Context, operation, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.cfg.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("blibli: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "id")
	req.Header.Set("channelId", c.cfg.ChannelID)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.SessionCookie != "" {
		req.Header.Set("Cookie", c.cfg.SessionCookie)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("blibli", operation, path, start, err)
		return fmt.Errorf("blibli: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("blibli", operation, path, start, err)
		return fmt.Errorf("blibli: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("blibli: unexpected status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("blibli", operation, path, start, err)
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.ObserveNetworkRequest("blibli", operation, path, start, err)
		return fmt.Errorf("blibli: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest("blibli", operation, path, start, nil)
	return nil
}
