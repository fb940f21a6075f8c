// File: internal/remediation/api.go
package remediation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/resource"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// APIConfig configures the config API client.
type APIConfig struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables throttling
	Transport http.RoundTripper
}

// APIClient deletes resources through the Contrail config API.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewAPIClient builds a client for cfg.BaseURL.
func NewAPIClient(cfg APIConfig, logger *zap.Logger) (*APIClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remediation api url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &APIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		limiter: limiter,
		log:     logger.Named("api_remediator"),
	}, nil
}

// Delete issues DELETE {base}/{kind}/{id}. A 404 maps to ErrNotFound.
func (c *APIClient) Delete(ctx context.Context, r resource.Resource) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+r.Path(), nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request for %s: %w", r, err)
	}
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, r)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.log.Debug("Resource deleted", zap.Stringer("resource", r))
		return nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("failed to delete %s: HTTP %d: %s", r, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
