package remoteconfig

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// memKV is an in-memory KV used across the remoteconfig tests.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		template string
		url      string
		tenant   string
		want     string
		wantErr  bool
	}{
		{"template", "https://cfg.example.com/{tenant}.json", "", "acme", "https://cfg.example.com/acme.json", false},
		{"template_wins", "https://cfg.example.com/{tenant}.json", "https://literal.example.com/cfg.json", "acme", "https://cfg.example.com/acme.json", false},
		{"literal", "", "https://literal.example.com/cfg.json", "acme", "https://literal.example.com/cfg.json", false},
		{"none", "", "", "acme", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(newMemKV(), tt.template, tt.url)
			got, err := f.ResolveURL(tt.tenant)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v; wantErr %t", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("url = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestFetchSendsConditionalRequest(t *testing.T) {
	var gotIfNoneMatch string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIfNoneMatch = r.Header.Get("If-None-Match")
		if gotIfNoneMatch == `"v2"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v2"`)
		w.Write([]byte(`{"version": 2, "streams": {"radio": {"primaryUrl": "https://ice/live"}}}`))
	}))
	defer srv.Close()

	kv := newMemKV()
	f := NewFetcher(kv, "", srv.URL)

	res, err := f.Fetch(context.Background(), "acme")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if !res.Updated {
		t.Fatal("first fetch should be updated")
	}
	if res.Config.Version != 2 {
		t.Errorf("version = %d; want 2", res.Config.Version)
	}
	if res.ETag != `"v2"` {
		t.Errorf("etag = %q", res.ETag)
	}

	// Persist the ETag the way the store does, then fetch again.
	kv.Set(context.Background(), "remote-config-etag:acme", res.ETag)
	res, err = f.Fetch(context.Background(), "acme")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if res.Updated {
		t.Error("304 response should settle with Updated=false")
	}
	if gotIfNoneMatch != `"v2"` {
		t.Errorf("If-None-Match = %q; want %q", gotIfNoneMatch, `"v2"`)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"version": 5}`))
	}))
	defer srv.Close()

	f := NewFetcher(newMemKV(), "", srv.URL)
	res, err := f.Fetch(context.Background(), "acme")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d; want 3", calls)
	}
	if res.Config.Version != 5 {
		t.Errorf("version = %d; want 5", res.Config.Version)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(newMemKV(), "", srv.URL)
	if _, err := f.Fetch(context.Background(), "acme"); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls != fetchRetries+1 {
		t.Errorf("calls = %d; want %d", calls, fetchRetries+1)
	}
}

func TestFetchMalformedBodyDegradesToDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>totally not json</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(newMemKV(), "", srv.URL)
	res, err := f.Fetch(context.Background(), "acme")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Config.Branding.Primary != defaultPrimary {
		t.Errorf("malformed body should sanitize to defaults, got %+v", res.Config.Branding)
	}
}
