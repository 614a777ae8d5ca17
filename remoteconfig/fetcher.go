package remoteconfig

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"skywave/models"
)

// Persistent store key layout. The tenant identifier itself lives under a
// single global key; config snapshots and ETags are namespaced per tenant.
const (
	cacheKeyBase = "remote-config-cache"
	etagKeyBase  = "remote-config-etag"
	tenantKey    = "remote-config-tenant"
)

const (
	fetchTimeout = 7 * time.Second
	fetchRetries = 2
	retryBackoff = 300 * time.Millisecond

	maxBodyBytes = 1 << 20
)

// KV is the persistent key/value store the config subsystem depends on.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ErrNoRemoteURL is returned when neither a URL template nor a literal
// config URL is configured.
var ErrNoRemoteURL = errors.New("no remote config URL configured")

// FetchResult is the outcome of a single settled fetch.
type FetchResult struct {
	Config  *models.RemoteConfig
	ETag    string
	URL     string
	Updated bool
}

// Fetcher performs conditional GETs against the tenant config endpoint,
// retrying transient failures with linear backoff.
type Fetcher struct {
	client      *http.Client
	kv          KV
	urlTemplate string
	url         string
	logger      *log.Entry
}

// NewFetcher builds a Fetcher. urlTemplate takes precedence and has its
// {tenant} placeholder substituted; url is used literally otherwise.
func NewFetcher(kv KV, urlTemplate, url string) *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: fetchTimeout},
		kv:          kv,
		urlTemplate: urlTemplate,
		url:         url,
		logger: log.WithFields(log.Fields{
			"module": "remoteconfig",
		}),
	}
}

// ResolveURL returns the remote config URL for tenant.
func (f *Fetcher) ResolveURL(tenant string) (string, error) {
	if f.urlTemplate != "" {
		return strings.ReplaceAll(f.urlTemplate, "{tenant}", tenant), nil
	}
	if f.url != "" {
		return f.url, nil
	}
	return "", ErrNoRemoteURL
}

// Fetch performs a conditional GET for tenant, retrying up to fetchRetries
// additional times with linearly increasing backoff. It fails only after
// exhausting retries; an HTTP 304 settles successfully with Updated=false.
func (f *Fetcher) Fetch(ctx context.Context, tenant string) (*FetchResult, error) {
	url, err := f.ResolveURL(tenant)
	if err != nil {
		return nil, err
	}

	etagKey := etagKeyBase + ":" + tenant
	etag, _, err := f.kv.Get(ctx, etagKey)
	if err != nil {
		f.logger.Warnf("failed to read etag for tenant %s: %v", tenant, err)
		etag = ""
	}

	var lastErr error
	for attempt := 0; attempt <= fetchRetries; attempt++ {
		if attempt > 0 {
			delay := retryBackoff * time.Duration(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		res, err := f.tryOnce(ctx, url, etag)
		if err == nil {
			return res, nil
		}
		lastErr = err
		f.logger.Warnf("config fetch attempt %d/%d failed for tenant %s: %v",
			attempt+1, fetchRetries+1, tenant, err)
	}
	return nil, lastErr
}

func (f *Fetcher) tryOnce(ctx context.Context, url, etag string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &FetchResult{URL: url, Updated: false}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("config endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		Config:  SanitizeJSON(body),
		ETag:    resp.Header.Get("ETag"),
		URL:     url,
		Updated: true,
	}, nil
}
