// Package proxy picks the proxy a download goes through.
package proxy

import (
	"context"
	"math/rand/v2"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"

	"mediadl/internal/config"
	"mediadl/internal/errs"
)

const (
	defaultSOCKSPort = "1080"
	defaultHTTPPort  = "8080"
)

// Selector handles proxy selection and health checking.
type Selector struct {
	proxies       []string
	healthCheck   bool
	healthTimeout time.Duration
}

// New creates a selector over the validated proxies in cfg.
func New(cfg config.Proxy) *Selector {
	return &Selector{
		proxies:       slices.Clone(cfg.URLs),
		healthCheck:   cfg.HealthCheck,
		healthTimeout: cfg.HealthTimeout,
	}
}

// Select returns a random proxy URL, or an empty string when none are configured.
// With health checks enabled unreachable proxies are skipped; errs.ErrNoHealthyProxy
// is returned when none answers.
func (s *Selector) Select(ctx context.Context) (string, error) {
	if s == nil || len(s.proxies) == 0 {
		return "", nil
	}

	if !s.healthCheck {
		return s.proxies[rand.IntN(len(s.proxies))], nil
	}

	for _, idx := range rand.Perm(len(s.proxies)) {
		if s.isHealthy(ctx, s.proxies[idx]) {
			return s.proxies[idx], nil
		}
	}

	return "", errs.ErrNoHealthyProxy
}

// isHealthy reports whether a TCP connection to the proxy can be established.
func (s *Selector) isHealthy(ctx context.Context, proxyURL string) bool {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return false
	}

	if !config.IsProxyScheme(u.Scheme) || u.Hostname() == "" {
		return false
	}

	port := u.Port()
	if port == "" {
		port = defaultHTTPPort
		if strings.HasPrefix(strings.ToLower(u.Scheme), "socks") {
			port = defaultSOCKSPort
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, s.healthTimeout)
	defer cancel()

	var dialer net.Dialer

	conn, err := dialer.DialContext(checkCtx, "tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return false
	}

	conn.Close()

	return true
}
