package itunes

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/maypok86/otter"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

const (
	debounceDelay   = 300 * time.Millisecond
	searchLimit     = 5
	defaultCacheCap = 256
)

// cacheEntry distinguishes "known absent" (track == nil) from "not yet
// looked up" (no entry at all).
type cacheEntry struct {
	track *Track
}

// Resolver debounces artist/title changes and resolves a best-effort
// catalog match for display enrichment. Lookups superseded by newer input
// are cancelled so a stale response can never overwrite a newer one.
// Outcomes, including misses, are memoized in a bounded cache.
type Resolver struct {
	client   *Client
	country  string
	debounce time.Duration
	cache    otter.Cache[string, cacheEntry]
	logger   *log.Entry

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	current *Track
}

// NewResolver builds a Resolver with a cache bounded to capacity entries.
// country selects the catalog storefront (defaults to "br").
func NewResolver(client *Client, country string, capacity int) *Resolver {
	if country == "" {
		country = "br"
	}
	if capacity <= 0 {
		capacity = defaultCacheCap
	}
	cache, err := otter.MustBuilder[string, cacheEntry](capacity).
		Cost(func(_ string, _ cacheEntry) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("itunes: failed to create track cache: " + err.Error())
	}
	return &Resolver{
		client:   client,
		country:  country,
		debounce: debounceDelay,
		cache:    cache,
		logger: log.WithFields(log.Fields{
			"module": "itunes",
		}),
	}
}

func cacheKey(artist, title, country string) string {
	return strings.ToLower(artist) + "|" + strings.ToLower(title) + "|" + country
}

// Request schedules a lookup for the given track, superseding any pending
// debounce and aborting any in-flight lookup. A cache hit (including a
// known-absent entry) short-circuits without touching the network.
func (r *Resolver) Request(artist, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	term := strings.TrimSpace(strings.Join(nonEmpty(artist, title), " "))
	if term == "" {
		r.current = nil
		return
	}

	key := cacheKey(artist, title, r.country)
	if entry, ok := r.cache.Get(key); ok {
		r.current = entry.track
		return
	}

	gen := r.gen
	r.timer = time.AfterFunc(r.debounce, func() {
		r.lookup(gen, artist, title, term, key)
	})
}

// Current returns the latest resolved catalog entry, or nil when none is
// known. Enrichment is best-effort: nil never blocks display.
func (r *Resolver) Current() *Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Resolver) lookup(gen uint64, artist, title, term, key string) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	results, err := r.client.Search(ctx, term, r.country, searchLimit)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return
	}
	r.cancel = nil

	if err != nil {
		r.logger.Debugf("track search failed for %q: %v", term, err)
		r.cache.Set(key, cacheEntry{})
		r.current = nil
		return
	}

	best := matchBest(results, artist, title)
	if best != nil {
		track := *best
		track.ArtworkURL100 = NormalizeCoverURL(track.ArtworkURL100, 600)
		track.Country = r.country
		best = &track
	}
	r.cache.Set(key, cacheEntry{track: best})
	r.current = best
}

// matchBest selects the candidate most likely to be the queried track.
// Candidates whose artist does not contain the query artist are rejected;
// among the rest the first whose title starts with or contains the query
// title wins. With no match, the first raw candidate is the fallback.
func matchBest(list []Track, artist, title string) *Track {
	na := normalize(artist)
	nt := normalize(title)

	for i := range list {
		a := normalize(list[i].ArtistName)
		t := normalize(list[i].TrackName)
		if na != "" && !strings.Contains(a, na) {
			continue
		}
		if nt != "" && !(strings.HasPrefix(t, nt) || strings.Contains(t, nt)) {
			continue
		}
		return &list[i]
	}
	if len(list) > 0 {
		return &list[0]
	}
	return nil
}

// normalize lowercases and strips diacritics for comparison.
func normalize(s string) string {
	decomposed := norm.NFKD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

var coverSizeRe = regexp.MustCompile(`/\d+x\d+bb\.`)

// NormalizeCoverURL rewrites the artwork size segment ("/100x100bb.") to
// the requested square size.
func NormalizeCoverURL(u string, size int) string {
	if u == "" {
		return ""
	}
	s := strconv.Itoa(size)
	return coverSizeRe.ReplaceAllString(u, "/"+s+"x"+s+"bb.")
}

func nonEmpty(parts ...string) []string {
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
