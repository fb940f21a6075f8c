// File: internal/graph/dial.go
package graph

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/eonpatapon/contrail-gremlin/internal/gremlin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Dial opens a handle on endpoint. The scheme picks the backend:
//
//	ws://host:port/gremlin, wss://...  Gremlin server
//	host:port                          Gremlin server at ws://host:port/gremlin
//	postgres://..., postgresql://...   read-only snapshot of a Postgres mirror
//	memory://name                      shared in-process graph
//
// Transport failures are returned as *ConnectionError. Dial never retries.
func Dial(ctx context.Context, endpoint string, opts Options) (Handle, error) {
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}
	logger := opts.logger()

	target, scheme, err := normalizeEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "memory":
		name := strings.TrimPrefix(target, "memory://")
		if name == "" {
			name = "default"
		}
		return Shared(name, logger), nil

	case "postgres", "postgresql":
		pool, err := pgxpool.New(ctx, target)
		if err != nil {
			return nil, &ConnectionError{Endpoint: redact(target), Err: err}
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, &ConnectionError{Endpoint: redact(target), Err: err}
		}
		snap, err := NewSnapshot(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, &ConnectionError{Endpoint: redact(target), Err: err}
		}
		return snap, nil

	case "ws", "wss":
		client, err := gremlin.Dial(ctx, target, opts.Header, logger)
		if err != nil {
			return nil, &ConnectionError{Endpoint: target, Err: err}
		}
		logger.Debug("Connected to gremlin server", zap.String("endpoint", target))
		return NewServer(client, logger), nil

	default:
		return nil, fmt.Errorf("unsupported graph endpoint scheme %q", scheme)
	}
}

// normalizeEndpoint expands the legacy bare host:port form and returns the
// endpoint with its scheme.
func normalizeEndpoint(endpoint string) (string, string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", "", fmt.Errorf("graph endpoint is empty")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "ws://" + endpoint + "/gremlin"
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", "", fmt.Errorf("invalid graph endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme == "ws" || u.Scheme == "wss") && u.Path == "" {
		u.Path = "/gremlin"
		endpoint = u.String()
	}
	return endpoint, u.Scheme, nil
}

// redact hides the password of a database URL before it reaches logs.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	return u.Redacted()
}
