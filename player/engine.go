package player

import (
	"context"
	"sync"
)

// PlaybackState mirrors the coarse states reported by platform engines.
type PlaybackState string

const (
	StateNone      PlaybackState = "none"
	StateBuffering PlaybackState = "buffering"
	StatePlaying   PlaybackState = "playing"
	StatePaused    PlaybackState = "paused"
	StateStopped   PlaybackState = "stopped"
)

// Track is an item queued on the playback engine.
type Track struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

type EventType string

const (
	EventMetadata EventType = "metadata"
	EventError    EventType = "error"
)

// Event is an asynchronous notification from the engine. Metadata events
// carry in-band (ICY) track info; error events report playback failures.
type Event struct {
	Type   EventType
	Artist string
	Title  string
	Err    error
}

// Engine abstracts the platform playback engine. The real engine is a
// platform binding injected by the embedding application; the controller
// treats it as a black box.
type Engine interface {
	Reset(ctx context.Context) error
	Add(ctx context.Context, t Track) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	SetVolume(ctx context.Context, v float64) error
	Queue(ctx context.Context) ([]Track, error)
	State(ctx context.Context) (PlaybackState, error)
	Events() <-chan Event
}

// LocalEngine is an in-process Engine used for headless runs and tests. It
// tracks queue, state and volume and reports Playing immediately after
// Play; it emits no in-band metadata of its own.
type LocalEngine struct {
	mu     sync.Mutex
	queue  []Track
	state  PlaybackState
	volume float64
	events chan Event
}

func NewLocalEngine() *LocalEngine {
	return &LocalEngine{
		state:  StateNone,
		volume: 1,
		events: make(chan Event, 16),
	}
}

func (e *LocalEngine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = nil
	e.state = StateNone
	return nil
}

func (e *LocalEngine) Add(ctx context.Context, t Track) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = append(e.queue, t)
	return nil
}

func (e *LocalEngine) Play(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		e.state = StateNone
		return nil
	}
	e.state = StatePlaying
	return nil
}

func (e *LocalEngine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePlaying {
		e.state = StatePaused
	}
	return nil
}

func (e *LocalEngine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateStopped
	return nil
}

func (e *LocalEngine) SetVolume(ctx context.Context, v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
	return nil
}

func (e *LocalEngine) Queue(ctx context.Context) ([]Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Track, len(e.queue))
	copy(out, e.queue)
	return out, nil
}

func (e *LocalEngine) State(ctx context.Context) (PlaybackState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}

func (e *LocalEngine) Events() <-chan Event {
	return e.events
}

// EmitMetadata injects an in-band metadata event, as a platform binding
// would on an ICY tag.
func (e *LocalEngine) EmitMetadata(artist, title string) {
	select {
	case e.events <- Event{Type: EventMetadata, Artist: artist, Title: title}:
	default:
	}
}
