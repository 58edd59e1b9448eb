package infrastructure

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ShortLinkResolver expands links on known shortener hosts by following
// redirects. Any failure yields the original URL.
type ShortLinkResolver struct {
	hosts     []string
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewShortLinkResolver creates a resolver for the given shortener hosts
func NewShortLinkResolver(hosts []string, timeout time.Duration, userAgent string, logger *zap.Logger) *ShortLinkResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShortLinkResolver{
		hosts:     lo.Map(hosts, func(h string, _ int) string { return strings.ToLower(h) }),
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

// IsShortLink reports whether rawURL points at a configured shortener host
// or one of its subdomains
func (r *ShortLinkResolver) IsShortLink(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return lo.SomeBy(r.hosts, func(h string) bool {
		return host == h || strings.HasSuffix(host, "."+h)
	})
}

// Resolve returns the canonical URL for short links and rawURL otherwise
func (r *ShortLinkResolver) Resolve(ctx context.Context, rawURL string) string {
	if !r.IsShortLink(rawURL) {
		return rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		r.logger.Warn("Failed to build resolve request", zap.String("url", rawURL), zap.Error(err))
		return rawURL
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("Failed to resolve short link", zap.String("url", rawURL), zap.Error(err))
		return rawURL
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		r.logger.Warn("Short link resolved to an error status",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode))
		return rawURL
	}

	resolved := resp.Request.URL.String()
	if resolved != rawURL {
		r.logger.Info("Resolved short link",
			zap.String("url", rawURL),
			zap.String("resolved", resolved))
	}
	return resolved
}
