package remoteconfig

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSanitizeTotality(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"string", "not an object"},
		{"number", 42.0},
		{"array", []any{1, 2, 3}},
		{"empty_object", map[string]any{}},
		{"wrong_types_everywhere", map[string]any{
			"version":  "nope",
			"branding": []any{"nope"},
			"streams":  "nope",
			"station":  3.14,
			"promos":   true,
			"features": "nope",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Sanitize(tt.raw)
			if cfg == nil {
				t.Fatal("Sanitize returned nil")
			}
			if cfg.Branding.Primary != defaultPrimary ||
				cfg.Branding.Background != defaultBackground ||
				cfg.Branding.Text != defaultText {
				t.Errorf("branding defaults not applied: %+v", cfg.Branding)
			}
			if cfg.Streams.Radio.FallbackURLs == nil {
				t.Error("fallbackUrls is nil")
			}
			if cfg.Features.CheckConfigIntervalSec != defaultCheckIntervalSec {
				t.Errorf("interval = %d; want %d", cfg.Features.CheckConfigIntervalSec, defaultCheckIntervalSec)
			}
		})
	}
}

func TestSanitizeJSONCorruptPayload(t *testing.T) {
	cfg := SanitizeJSON([]byte("{{{ not json"))
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("corrupt payload did not degrade to default config: %+v", cfg)
	}
}

func TestSanitizeFields(t *testing.T) {
	raw := map[string]any{
		"version": 7.0,
		"branding": map[string]any{
			"primary":        "#112233",
			"logoUrl":        "https://cdn.example.com/logo.png",
			"bgImageUrl":     123,
			"statusBarStyle": "dark",
			"navigationMode": "bogus",
		},
		"streams": map[string]any{
			"radio": map[string]any{
				"primaryUrl":   "https://ice.example.com/live",
				"fallbackUrls": []any{"https://b.example.com/live", 42, "https://c.example.com/live"},
				"metadataUrl":  "https://ice.example.com/status-json.xsl",
			},
		},
		"station": map[string]any{
			"name": "Rock FM",
			"partners": []any{
				map[string]any{"imageUrl": "https://cdn.example.com/p1.png", "title": "P1"},
				map[string]any{"title": "no image"},
				map[string]any{"imageUrl": 99},
				"garbage",
			},
			"social": map[string]any{"instagram": "rockfm", "likes": 10.0},
		},
		"promos": map[string]any{
			"headline": "Deals",
			"items": []any{
				map[string]any{"id": "p1", "title": "Coupon", "code": "SAVE10"},
				map[string]any{"id": "p2"},
				"garbage",
			},
		},
		"features": map[string]any{
			"enableMiniPlayer":       true,
			"checkConfigIntervalSec": 600.0,
		},
	}

	cfg := Sanitize(raw)

	if cfg.Version != 7 {
		t.Errorf("version = %d; want 7", cfg.Version)
	}
	if cfg.Branding.Primary != "#112233" {
		t.Errorf("primary = %q", cfg.Branding.Primary)
	}
	if cfg.Branding.Background != defaultBackground {
		t.Errorf("background default missing: %q", cfg.Branding.Background)
	}
	if cfg.Branding.BgImageURL != "" {
		t.Errorf("non-string bgImageUrl kept: %q", cfg.Branding.BgImageURL)
	}
	if cfg.Branding.StatusBarStyle != "dark" {
		t.Errorf("statusBarStyle = %q", cfg.Branding.StatusBarStyle)
	}
	if cfg.Branding.NavigationMode != "" {
		t.Errorf("invalid navigationMode kept: %q", cfg.Branding.NavigationMode)
	}
	if got := cfg.Streams.Radio.FallbackURLs; len(got) != 2 {
		t.Errorf("fallbackUrls = %v; want 2 strings", got)
	}
	if cfg.Streams.Video != nil {
		t.Error("video should be absent without a primaryUrl")
	}
	if cfg.Station == nil || len(cfg.Station.Partners) != 1 {
		t.Fatalf("partners not filtered: %+v", cfg.Station)
	}
	if cfg.Station.Partners[0].ImageURL != "https://cdn.example.com/p1.png" {
		t.Errorf("partner = %+v", cfg.Station.Partners[0])
	}
	if len(cfg.Station.Social) != 1 || cfg.Station.Social["instagram"] != "rockfm" {
		t.Errorf("social = %v", cfg.Station.Social)
	}
	if len(cfg.Promos.Items) != 1 || cfg.Promos.Items[0].ID != "p1" {
		t.Errorf("promo items = %+v", cfg.Promos.Items)
	}
	if !cfg.Features.EnableMiniPlayer || cfg.Features.EnablePictureInPicture {
		t.Errorf("features = %+v", cfg.Features)
	}
	if cfg.Features.CheckConfigIntervalSec != 600 {
		t.Errorf("interval = %d; want 600", cfg.Features.CheckConfigIntervalSec)
	}
}

func TestSanitizeVideoPresent(t *testing.T) {
	cfg := Sanitize(map[string]any{
		"streams": map[string]any{
			"video": map[string]any{
				"primaryUrl":   "https://video.example.com/live",
				"fallbackUrls": []any{"https://video-b.example.com/live"},
			},
		},
	})
	if cfg.Streams.Video == nil {
		t.Fatal("video block dropped despite primaryUrl")
	}
	if cfg.Streams.Video.PrimaryURL != "https://video.example.com/live" {
		t.Errorf("video primary = %q", cfg.Streams.Video.PrimaryURL)
	}
	if len(cfg.Streams.Video.FallbackURLs) != 1 {
		t.Errorf("video fallbacks = %v", cfg.Streams.Video.FallbackURLs)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []any{
		nil,
		map[string]any{},
		map[string]any{
			"version":  3.0,
			"branding": map[string]any{"primary": "#FF0000", "statusBarStyle": "light"},
			"streams": map[string]any{
				"radio": map[string]any{"primaryUrl": "https://a/live", "fallbackUrls": []any{"https://b/live"}},
				"video": map[string]any{"primaryUrl": "https://v/live"},
			},
			"station": map[string]any{"name": "FM", "partners": []any{map[string]any{"imageUrl": "https://i.png"}}},
			"promos":  map[string]any{"items": []any{map[string]any{"id": "x", "title": "y"}}},
			"features": map[string]any{
				"enablePictureInPicture": true,
				"checkConfigIntervalSec": 60.0,
			},
		},
	}
	for i, raw := range inputs {
		once := Sanitize(raw)
		data, err := json.Marshal(once)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		twice := SanitizeJSON(data)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("input %d: sanitize not idempotent:\nonce:  %+v\ntwice: %+v", i, once, twice)
		}
	}
}
