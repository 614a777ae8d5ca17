package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNoEndpoints        = errors.New("no stream endpoints configured")
	ErrAllEndpointsFailed = errors.New("all stream endpoints failed")
)

const (
	startTimeout  = 7 * time.Second
	statePollStep = 250 * time.Millisecond
)

// Controller drives a playback Engine through the primary-then-fallbacks
// start sequence and exposes the simple control surface the app needs.
type Controller struct {
	engine Engine
	logger *log.Entry

	startTimeout  time.Duration
	statePollStep time.Duration

	mu         sync.Mutex
	currentURL string
	volume     float64
}

func NewController(engine Engine) *Controller {
	return &Controller{
		engine:        engine,
		volume:        1,
		startTimeout:  startTimeout,
		statePollStep: statePollStep,
		logger: log.WithFields(log.Fields{
			"module": "player",
		}),
	}
}

// CurrentURL reports the stream URL playback last started on, or "".
func (c *Controller) CurrentURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentURL
}

func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// SetVolume clamps v to [0, 1] and applies it to the engine.
func (c *Controller) SetVolume(ctx context.Context, v float64) error {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.mu.Lock()
	c.volume = v
	c.mu.Unlock()
	return c.engine.SetVolume(ctx, v)
}

// StartWithFallbacks tries each candidate URL in order until one reaches
// the playing state, and returns the URL that succeeded. Exhausting every
// candidate is the one playback failure surfaced to the user.
func (c *Controller) StartWithFallbacks(ctx context.Context, urls []string, label string) (string, error) {
	var candidates []string
	for _, u := range urls {
		if u != "" {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return "", ErrNoEndpoints
	}

	var lastErr error
	for _, u := range candidates {
		if err := c.tryPlay(ctx, u, label); err != nil {
			c.logger.Warnf("stream endpoint %s failed: %v", u, err)
			lastErr = err
			continue
		}
		c.mu.Lock()
		c.currentURL = u
		c.mu.Unlock()
		c.logger.Infof("playback started on %s", u)
		return u, nil
	}

	sentry.CaptureException(lastErr)
	return "", fmt.Errorf("%w: %v", ErrAllEndpointsFailed, lastErr)
}

func (c *Controller) tryPlay(ctx context.Context, url, label string) error {
	if err := c.engine.Reset(ctx); err != nil {
		return err
	}
	if err := c.engine.Add(ctx, Track{ID: "radio", URL: url, Title: label}); err != nil {
		return err
	}
	if err := c.engine.Play(ctx); err != nil {
		return err
	}
	return c.waitForPlaying(ctx, c.startTimeout)
}

func (c *Controller) waitForPlaying(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		st, err := c.engine.State(ctx)
		if err == nil && st == StatePlaying {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.statePollStep):
		}
	}
	return errors.New("timeout starting stream")
}

// TogglePlay pauses when playing, resumes when the queue already holds the
// live track, and otherwise starts playback with the fallback sequence.
func (c *Controller) TogglePlay(ctx context.Context, urls []string, label string) error {
	st, err := c.engine.State(ctx)
	if err == nil && st == StatePlaying {
		return c.engine.Pause(ctx)
	}

	queue, err := c.engine.Queue(ctx)
	if err != nil {
		queue = nil
	}
	if len(queue) > 0 && c.CurrentURL() != "" {
		return c.engine.Play(ctx)
	}

	_, err = c.StartWithFallbacks(ctx, urls, label)
	return err
}

// Stop halts playback and clears the queue. Engine errors are swallowed;
// stopping is always allowed to settle.
func (c *Controller) Stop(ctx context.Context) {
	if err := c.engine.Stop(ctx); err != nil {
		c.logger.Warnf("engine stop failed: %v", err)
	}
	if err := c.engine.Reset(ctx); err != nil {
		c.logger.Warnf("engine reset failed: %v", err)
	}
	c.mu.Lock()
	c.currentURL = ""
	c.mu.Unlock()
}

// IsPlaying reports whether the engine is in the playing state.
func (c *Controller) IsPlaying(ctx context.Context) bool {
	st, err := c.engine.State(ctx)
	return err == nil && st == StatePlaying
}

// ShareText builds the share message for the current station and stream.
func ShareText(station, url string) string {
	if station == "" {
		station = "My Radio"
	}
	if url == "" {
		return station
	}
	return station + " — listen now: " + url
}
