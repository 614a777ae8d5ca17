package nowplaying

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	pollInterval = 5 * time.Second
	pollTimeout  = 5 * time.Second

	maxStatusBytes = 1 << 20
)

func (r *Resolver) startPolling() {
	r.mu.Lock()
	if r.pollCancel != nil {
		r.mu.Unlock()
		return
	}
	metadataURL, streamURL := r.metadataURL, r.streamURL
	cands := statusCandidates(metadataURL, streamURL)
	if len(cands) == 0 {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.pollCancel = cancel
	r.mu.Unlock()

	go r.pollLoop(ctx, cands, streamURL)
}

func (r *Resolver) stopPolling() {
	r.mu.Lock()
	cancel := r.pollCancel
	r.pollCancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Resolver) pollLoop(ctx context.Context, candidates []string, streamURL string) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	r.pollOnce(ctx, candidates, streamURL)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollOnce(ctx, candidates, streamURL)
		}
	}
}

// pollOnce tries candidates in order, stopping at the first endpoint that
// yields a parseable title. A cycle with no usable title leaves the
// previous state untouched.
func (r *Resolver) pollOnce(ctx context.Context, candidates []string, streamURL string) {
	r.mu.Lock()
	seqStart := r.seq
	r.mu.Unlock()

	for _, endpoint := range candidates {
		raw, ok := r.fetchStatus(ctx, endpoint, streamURL)
		if !ok {
			continue
		}
		artist, title := SplitArtistTitle(raw)
		r.applyPoll(artist, title, seqStart)
		return
	}
}

func (r *Resolver) fetchStatus(ctx context.Context, endpoint, streamURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBytes))
	if err != nil {
		return "", false
	}
	return parseStatusBody(body, streamURL)
}

// applyPoll installs a polled track unless an in-band event arrived after
// the poll cycle began. An unchanged track does not reset the elapsed
// anchor; polling the same title every cycle must not restart the clock.
func (r *Resolver) applyPoll(artist, title string, seqStart uint64) {
	if artist == "" && title == "" {
		return
	}

	r.mu.Lock()
	if r.seq != seqStart {
		r.mu.Unlock()
		r.logger.Debug("dropping poll result superseded by in-band event")
		return
	}
	if artist == r.artist && title == r.title {
		r.mu.Unlock()
		return
	}
	r.artist = artist
	r.title = title
	r.source = SourcePoll
	r.startedAt = r.clock()
	r.pausedAt = time.Time{}
	onTrack := r.onTrack
	r.mu.Unlock()

	r.logger.Debugf("polled metadata: %q / %q", artist, title)
	if onTrack != nil {
		onTrack(artist, title)
	}
}
