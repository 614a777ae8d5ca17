package remoteconfig

import (
	"encoding/json"
	"math"

	"skywave/models"
)

const (
	defaultPrimary    = "#ACF44E"
	defaultBackground = "#000000"
	defaultText       = "#FFFFFF"

	defaultCheckIntervalSec = 1800
)

// DefaultConfig returns the hardcoded minimal configuration the app runs on
// until a cached or remote config is available.
func DefaultConfig() *models.RemoteConfig {
	return &models.RemoteConfig{
		Version: 1,
		Branding: models.Branding{
			Primary:    defaultPrimary,
			Background: defaultBackground,
			Text:       defaultText,
		},
		Streams: models.Streams{
			Radio: models.RadioStream{PrimaryURL: "", FallbackURLs: []string{}},
		},
		Promos:   models.Promos{Items: []models.PromoItem{}},
		Features: models.Features{CheckConfigIntervalSec: defaultCheckIntervalSec},
	}
}

// SanitizeJSON decodes raw bytes and sanitizes the result. An undecodable
// payload degrades to the default config.
func SanitizeJSON(data []byte) *models.RemoteConfig {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return DefaultConfig()
	}
	return Sanitize(raw)
}

// Sanitize normalizes an arbitrary decoded JSON value into a complete
// RemoteConfig. It is total: every malformed field degrades to its
// documented default, and malformed array elements are dropped instead of
// rejecting the whole array. The rest of the system never sees a partial
// or ill-typed config.
func Sanitize(raw any) *models.RemoteConfig {
	in := asObject(raw)
	cfg := DefaultConfig()

	if v, ok := asNumber(in["version"]); ok && v != 0 {
		cfg.Version = int(v)
	}

	branding := asObject(in["branding"])
	cfg.Branding = models.Branding{
		Primary:        stringOr(branding["primary"], defaultPrimary),
		Background:     stringOr(branding["background"], defaultBackground),
		Text:           stringOr(branding["text"], defaultText),
		LogoURL:        optString(branding["logoUrl"]),
		BgImageURL:     optString(branding["bgImageUrl"]),
		StatusBarStyle: enumOf(branding["statusBarStyle"], "light", "dark"),
		NavigationMode: enumOf(branding["navigationMode"], "light", "dark"),
		Muted:          optString(branding["muted"]),
		Border:         optString(branding["border"]),
		Card:           optString(branding["card"]),
	}

	streams := asObject(in["streams"])
	radio := asObject(streams["radio"])
	cfg.Streams.Radio = models.RadioStream{
		PrimaryURL:   optString(radio["primaryUrl"]),
		FallbackURLs: stringSlice(radio["fallbackUrls"]),
		MetadataURL:  optString(radio["metadataUrl"]),
	}

	// A video block without a primary URL is treated as absent.
	video := asObject(streams["video"])
	if primary := optString(video["primaryUrl"]); primary != "" {
		cfg.Streams.Video = &models.VideoStream{
			PrimaryURL:   primary,
			FallbackURLs: stringSlice(video["fallbackUrls"]),
		}
	}

	if station, ok := in["station"].(map[string]any); ok {
		cfg.Station = sanitizeStation(station)
	}

	promos := asObject(in["promos"])
	cfg.Promos = models.Promos{
		Headline: optString(promos["headline"]),
		Items:    sanitizePromoItems(promos["items"]),
	}

	features := asObject(in["features"])
	cfg.Features = models.Features{
		EnablePictureInPicture: asBool(features["enablePictureInPicture"]),
		EnableMiniPlayer:       asBool(features["enableMiniPlayer"]),
		CheckConfigIntervalSec: defaultCheckIntervalSec,
	}
	if v, ok := asNumber(features["checkConfigIntervalSec"]); ok && v > 0 {
		cfg.Features.CheckConfigIntervalSec = int(v)
	}

	return cfg
}

func sanitizeStation(in map[string]any) *models.Station {
	st := &models.Station{
		Name:       optString(in["name"]),
		Genre:      optString(in["genre"]),
		LogoURL:    optString(in["logoUrl"]),
		ShareURL:   optString(in["shareUrl"]),
		HeroImages: stringSlice(in["heroImages"]),
	}
	if items, ok := in["partners"].([]any); ok {
		for _, it := range items {
			p := asObject(it)
			// Partners without a string imageUrl are dropped.
			img := optString(p["imageUrl"])
			if img == "" {
				continue
			}
			st.Partners = append(st.Partners, models.Partner{
				ImageURL: img,
				Title:    optString(p["title"]),
				Href:     optString(p["href"]),
			})
		}
	}
	if social, ok := in["social"].(map[string]any); ok {
		for k, v := range social {
			if s, ok := v.(string); ok {
				if st.Social == nil {
					st.Social = map[string]string{}
				}
				st.Social[k] = s
			}
		}
	}
	return st
}

func sanitizePromoItems(v any) []models.PromoItem {
	out := []models.PromoItem{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, it := range items {
		m := asObject(it)
		id := optString(m["id"])
		title := optString(m["title"])
		if id == "" || title == "" {
			continue
		}
		out = append(out, models.PromoItem{
			ID:        id,
			Title:     title,
			Image:     optString(m["image"]),
			Code:      optString(m["code"]),
			RulesURL:  optString(m["rulesUrl"]),
			ExpiresAt: optString(m["expiresAt"]),
		})
	}
	return out
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func optString(v any) string {
	s, _ := v.(string)
	return s
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func enumOf(v any, allowed ...string) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	for _, a := range allowed {
		if s == a {
			return a
		}
	}
	return ""
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := []string{}
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
