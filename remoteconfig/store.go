package remoteconfig

import (
	"context"
	"encoding/json"
	"sync"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"skywave/models"
)

// Store owns the active tenant identity and the currently published config.
// It sequences cache hydration before network fetches and guards every
// publish with the tenant epoch it was produced for, so a slow fetch for a
// previous tenant can never overwrite state after a switch.
type Store struct {
	kv            KV
	fetcher       *Fetcher
	defaultTenant string
	logger        *log.Entry

	mu             sync.Mutex
	tenant         string
	epoch          uint64
	cfg            *models.RemoteConfig
	currentURL     string
	ready          bool
	firstPaintDone bool
	subscribers    []chan struct{}
}

func NewStore(kv KV, fetcher *Fetcher, defaultTenant string) *Store {
	if defaultTenant == "" {
		defaultTenant = "default"
	}
	return &Store{
		kv:            kv,
		fetcher:       fetcher,
		defaultTenant: defaultTenant,
		cfg:           DefaultConfig(),
		logger: log.WithFields(log.Fields{
			"module": "remoteconfig",
		}),
	}
}

// Config returns the currently published config snapshot. Never nil.
func (s *Store) Config() *models.RemoteConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Tenant returns the active tenant identifier.
func (s *Store) Tenant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenant
}

// Ready reports whether the store has settled enough state for first paint:
// either a cache hit published immediately, or the initial fetch settled
// (successfully or not).
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// CurrentURL returns the last resolved remote config URL, for diagnostics.
func (s *Store) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

// Subscribe returns a channel that receives a coalesced signal whenever a
// new config is published.
func (s *Store) Subscribe() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Initialize resolves the active tenant from the persistent store (falling
// back to the build-time default) and runs the hydrate-then-fetch sequence.
// A cache hit publishes and flips readiness before the network round trip;
// the call returns once the initial fetch has settled either way.
func (s *Store) Initialize(ctx context.Context) error {
	tenant, ok, err := s.kv.Get(ctx, tenantKey)
	if err != nil {
		s.logger.Warnf("failed to read stored tenant: %v", err)
	}
	if !ok || tenant == "" {
		tenant = s.defaultTenant
	}

	s.mu.Lock()
	s.tenant = tenant
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	s.logger.Infof("initializing with tenant %s", tenant)
	return s.activate(ctx, tenant, epoch)
}

// SetTenant switches the active tenant. Equal tenants are a no-op. The new
// identifier is persisted, readiness resets, and the hydrate-then-fetch
// sequence reruns for the new tenant.
func (s *Store) SetTenant(ctx context.Context, tenant string) error {
	if tenant == "" {
		return nil
	}

	s.mu.Lock()
	if tenant == s.tenant {
		s.mu.Unlock()
		return nil
	}
	s.tenant = tenant
	s.epoch++
	epoch := s.epoch
	s.ready = false
	s.firstPaintDone = false
	s.mu.Unlock()

	if err := s.kv.Set(ctx, tenantKey, tenant); err != nil {
		s.logger.Warnf("failed to persist tenant %s: %v", tenant, err)
		sentry.CaptureException(err)
	}

	s.logger.Infof("switching to tenant %s", tenant)
	return s.activate(ctx, tenant, epoch)
}

// Refresh re-runs the fetch step for the current tenant without touching
// readiness or cache-hydration state.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	tenant := s.tenant
	epoch := s.epoch
	s.mu.Unlock()
	return s.fetchAndPublish(ctx, tenant, epoch)
}

// activate hydrates tenant's cached config (publishing immediately on a
// hit), then fetches from the network. Readiness settles no matter how the
// fetch ends: a missing cache plus a failed fetch still flips ready with
// the defaults in place rather than hanging first paint forever.
func (s *Store) activate(ctx context.Context, tenant string, epoch uint64) error {
	hadCache := s.hydrateFromCache(ctx, tenant, epoch)
	if hadCache {
		s.markReady(epoch)
	}

	err := s.fetchAndPublish(ctx, tenant, epoch)
	s.markReady(epoch)
	return err
}

func (s *Store) hydrateFromCache(ctx context.Context, tenant string, epoch uint64) bool {
	cached, ok, err := s.kv.Get(ctx, cacheKeyBase+":"+tenant)
	if err != nil {
		s.logger.Warnf("failed to read cached config for tenant %s: %v", tenant, err)
		return false
	}
	if !ok {
		return false
	}

	cfg := SanitizeJSON([]byte(cached))
	if !s.publish(cfg, "", epoch) {
		return false
	}
	s.logger.Debugf("hydrated config for tenant %s from cache", tenant)
	return true
}

func (s *Store) fetchAndPublish(ctx context.Context, tenant string, epoch uint64) error {
	res, err := s.fetcher.Fetch(ctx, tenant)
	if err != nil {
		s.logger.Warnf("config fetch settled with error for tenant %s: %v", tenant, err)
		return err
	}

	s.mu.Lock()
	if epoch == s.epoch {
		s.currentURL = res.URL
	}
	s.mu.Unlock()

	if !res.Updated {
		s.logger.Debugf("config not modified for tenant %s", tenant)
		return nil
	}

	// Persist under tenant-namespaced keys regardless of the epoch guard:
	// the cache entry belongs to the tenant it was fetched for.
	if data, err := json.Marshal(res.Config); err == nil {
		if err := s.kv.Set(ctx, cacheKeyBase+":"+tenant, string(data)); err != nil {
			s.logger.Warnf("failed to persist config for tenant %s: %v", tenant, err)
			sentry.CaptureException(err)
		}
	}
	if res.ETag != "" {
		if err := s.kv.Set(ctx, etagKeyBase+":"+tenant, res.ETag); err != nil {
			s.logger.Warnf("failed to persist etag for tenant %s: %v", tenant, err)
		}
	}

	if s.publish(res.Config, res.URL, epoch) {
		s.logger.Infof("published config v%d for tenant %s", res.Config.Version, tenant)
	} else {
		s.logger.Debugf("dropping stale config fetched for tenant %s", tenant)
	}
	return nil
}

// publish installs cfg if epoch still matches the active tenant epoch.
func (s *Store) publish(cfg *models.RemoteConfig, url string, epoch uint64) bool {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return false
	}
	s.cfg = cfg
	if url != "" {
		s.currentURL = url
	}
	subs := s.subscribers
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return true
}

// markReady flips readiness on the first settled publish for the current
// epoch only.
func (s *Store) markReady(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.firstPaintDone {
		return
	}
	s.ready = true
	s.firstPaintDone = true
}
