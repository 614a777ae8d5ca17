package remoteconfig

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolveIntervalSec(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero", 0, 1800},
		{"negative", -5, 1800},
		{"below_floor", 10, 30},
		{"floor", 30, 30},
		{"mid", 600, 600},
		{"ceiling", 6 * 60 * 60, 6 * 60 * 60},
		{"above_ceiling", 7 * 60 * 60, 6 * 60 * 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveIntervalSec(tt.in); got != tt.want {
				t.Errorf("resolveIntervalSec(%d) = %d; want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSchedulerArmsAtClampedInterval(t *testing.T) {
	kv := newMemKV()
	s := NewStore(kv, NewFetcher(kv, "", "https://unused"), "default")
	s.cfg = Sanitize(map[string]any{
		"features": map[string]any{"checkConfigIntervalSec": 10.0},
	})

	sched := NewScheduler(s)
	if got := sched.interval(); got != 30*time.Second {
		t.Errorf("interval = %s; want 30s floor", got)
	}
}

func TestSafeRefreshDropsConcurrentTrigger(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.Write([]byte(`{"version": 1}`))
	}))
	defer srv.Close()

	kv := newMemKV()
	s := NewStore(kv, NewFetcher(kv, "", srv.URL), "default")
	sched := NewScheduler(s)

	ctx := context.Background()
	if !sched.safeRefresh(ctx) {
		t.Fatal("first trigger should start a refresh")
	}

	// Wait for the in-flight request to reach the server.
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("refresh never reached the server")
		}
		time.Sleep(time.Millisecond)
	}

	if sched.safeRefresh(ctx) {
		t.Error("second trigger while one is in flight must be dropped")
	}
	close(release)

	deadline = time.Now().Add(2 * time.Second)
	for sched.refreshing.Load() {
		if time.Now().After(deadline) {
			t.Fatal("refresh never settled")
		}
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("network calls = %d; want 1", got)
	}
}

func TestSchedulerForegroundTriggersRefresh(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"version": 1}`))
	}))
	defer srv.Close()

	kv := newMemKV()
	s := NewStore(kv, NewFetcher(kv, "", srv.URL), "default")
	sched := NewScheduler(s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	sched.Foreground()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("foreground trigger never caused a refresh")
		}
		time.Sleep(time.Millisecond)
	}
}
