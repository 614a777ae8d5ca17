package nowplaying

import (
	"context"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Source tags which metadata pipeline produced the current track.
type Source string

const (
	SourceInband Source = "inband"
	SourcePoll   Source = "poll"
)

// Snapshot is the resolved now-playing state handed to display layers.
type Snapshot struct {
	Artist     string `json:"artist,omitempty"`
	Title      string `json:"title,omitempty"`
	ElapsedSec int    `json:"elapsedSec"`
	Source     Source `json:"source,omitempty"`
}

// Resolver merges in-band stream metadata events with out-of-band polling
// of station status endpoints, and tracks elapsed time so that paused
// intervals are excluded.
//
// Race policy between the two sources is explicit: every in-band event
// bumps a sequence number, and a poll cycle that began before the latest
// in-band event is dropped on arrival. Within one source, last write wins.
type Resolver struct {
	client     *http.Client
	logger     *log.Entry
	clock      func() time.Time
	positionFn func() float64
	onTrack    func(artist, title string)

	mu          sync.Mutex
	artist      string
	title       string
	source      Source
	seq         uint64
	startedAt   time.Time
	pausedAt    time.Time
	playing     bool
	metadataURL string
	streamURL   string
	pollCancel  context.CancelFunc
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock replaces the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Resolver) { r.clock = clock }
}

// WithPositionFallback supplies the playback engine position used for
// elapsed time when no track start is known.
func WithPositionFallback(fn func() float64) Option {
	return func(r *Resolver) { r.positionFn = fn }
}

// WithHTTPClient replaces the polling HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithTrackCallback registers a callback invoked (outside the resolver
// lock) whenever the current artist/title changes from either source.
func WithTrackCallback(fn func(artist, title string)) Option {
	return func(r *Resolver) { r.onTrack = fn }
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client: &http.Client{Timeout: pollTimeout},
		clock:  time.Now,
		logger: log.WithFields(log.Fields{
			"module": "nowplaying",
		}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Configure sets the metadata endpoint and the active stream URL used to
// derive status endpoints. Polling restarts if currently active.
func (r *Resolver) Configure(metadataURL, streamURL string) {
	r.mu.Lock()
	changed := metadataURL != r.metadataURL || streamURL != r.streamURL
	r.metadataURL = metadataURL
	r.streamURL = streamURL
	playing := r.playing
	r.mu.Unlock()

	if changed && playing {
		r.stopPolling()
		r.startPolling()
	}
}

// HandleInband applies an in-band metadata event (ICY tag or similar). It
// unconditionally overwrites the current track and restarts the elapsed
// clock. When the event carries no artist, a combined title is split.
func (r *Resolver) HandleInband(artist, title string) {
	if artist == "" {
		artist, title = SplitArtistTitle(title)
	}

	r.mu.Lock()
	r.artist = artist
	r.title = title
	r.source = SourceInband
	r.seq++
	r.startedAt = r.clock()
	r.pausedAt = time.Time{}
	onTrack := r.onTrack
	r.mu.Unlock()

	r.logger.Debugf("in-band metadata: %q / %q", artist, title)
	if onTrack != nil {
		onTrack(artist, title)
	}
}

// SetPlaying records a playback state flip. Pausing freezes the elapsed
// clock; resuming shifts the track start forward by the paused duration so
// paused time is excluded. Polling runs only while playing.
func (r *Resolver) SetPlaying(playing bool) {
	r.mu.Lock()
	was := r.playing
	r.playing = playing
	now := r.clock()
	if !playing && was && !r.startedAt.IsZero() && r.pausedAt.IsZero() {
		r.pausedAt = now
	} else if playing && !r.pausedAt.IsZero() {
		r.startedAt = r.startedAt.Add(now.Sub(r.pausedAt))
		r.pausedAt = time.Time{}
	}
	r.mu.Unlock()

	if playing == was {
		return
	}
	if playing {
		r.startPolling()
	} else {
		r.stopPolling()
	}
}

// Snapshot returns the current artist/title and elapsed seconds.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{Artist: r.artist, Title: r.title, Source: r.source}
	switch {
	case r.startedAt.IsZero():
		if r.positionFn != nil {
			snap.ElapsedSec = int(r.positionFn())
		}
	case !r.pausedAt.IsZero():
		snap.ElapsedSec = int(r.pausedAt.Sub(r.startedAt).Seconds())
	default:
		snap.ElapsedSec = int(r.clock().Sub(r.startedAt).Seconds())
	}
	if snap.ElapsedSec < 0 {
		snap.ElapsedSec = 0
	}
	return snap
}

// Stop cancels any active polling.
func (r *Resolver) Stop() {
	r.stopPolling()
}
