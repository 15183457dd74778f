package config

// This file builds the Redis client behind the fulfillment ledger, the rate
// limiter and the response cache.  KV_URL may be a redis:// or rediss:// URL,
// an Upstash-style https:// REST endpoint (mapped to its TLS Redis port with
// KV_TOKEN as password) or a plain host:port.

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidKVURL marks a KV_URL that cannot be parsed.  Startup treats it
// as fatal; a well-formed but unreachable endpoint is not.
var ErrInvalidKVURL = errors.New("invalid KV_URL")

// RedisOptions turns the KV settings into client options.  It returns nil
// options when no endpoint is configured.
func RedisOptions(kvURL, token string) (*redis.Options, error) {
	kvURL = strings.TrimSpace(kvURL)
	if kvURL == "" {
		return nil, nil
	}
	switch {
	case strings.HasPrefix(kvURL, "redis://"), strings.HasPrefix(kvURL, "rediss://"):
		opt, err := redis.ParseURL(kvURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKVURL, err)
		}
		if opt.Password == "" {
			opt.Password = token
		}
		return opt, nil
	case strings.HasPrefix(kvURL, "https://"), strings.HasPrefix(kvURL, "http://"):
		u, err := url.Parse(kvURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKVURL, err)
		}
		host := u.Hostname()
		if host == "" {
			return nil, fmt.Errorf("%w: no host in %q", ErrInvalidKVURL, kvURL)
		}
		return &redis.Options{
			Addr:      host + ":6379",
			Username:  "default",
			Password:  token,
			TLSConfig: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12},
		}, nil
	default:
		return &redis.Options{Addr: kvURL, Password: token}, nil
	}
}

// NewRedisClient returns nil, nil when no KV endpoint is configured (degraded
// mode).  When the endpoint is configured but the ping fails the client is
// still returned together with the ping error: the store stays configured and
// each operation falls back on its own.
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	opt, err := RedisOptions(cfg.KVURL, cfg.KVToken)
	if err != nil || opt == nil {
		return nil, err
	}
	opt.DialTimeout = 2 * time.Second
	opt.ReadTimeout = time.Second
	opt.WriteTimeout = time.Second

	client := redis.NewClient(opt)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		return client, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
