package nowplaying

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

// SplitArtistTitle splits a raw stream title of the form "Artist - Title"
// (or with an em dash) into its parts. When no separator is present the
// whole string is treated as the title.
func SplitArtistTitle(raw string) (artist, title string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	for _, sep := range []string{" - ", " — "} {
		if idx := strings.Index(raw, sep); idx >= 0 {
			return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+len(sep):])
		}
	}
	return "", raw
}

var streamTitleRe = regexp.MustCompile(`StreamTitle='([^']*)'`)

type iceStats struct {
	IceStats struct {
		Source any `json:"source"`
	} `json:"icestats"`
}

type iceSource struct {
	Title      string `json:"title"`
	ListenURL  string `json:"listenurl"`
	ServerType string `json:"server_type"`
	ServerName string `json:"server_name"`
}

// parseStatusBody extracts a raw "Artist - Title" string from a station
// status response. Three shapes are handled: Icecast JSON (icestats.source
// as object or array), Shoutcast JSON (songtitle / streamcurrentSong), and
// plain-text SHOUTcast pages carrying StreamTitle='...'.
func parseStatusBody(body []byte, streamURL string) (string, bool) {
	var generic map[string]any
	if err := json.Unmarshal(body, &generic); err == nil {
		var st iceStats
		if err := json.Unmarshal(body, &st); err == nil && st.IceStats.Source != nil {
			if src, ok := selectSource(extractSources(st.IceStats.Source), streamURL); ok {
				return src.Title, true
			}
		}
		for _, key := range []string{"songtitle", "streamcurrentSong"} {
			if s, ok := generic[key].(string); ok && strings.TrimSpace(s) != "" {
				return s, true
			}
		}
		return "", false
	}

	if m := streamTitleRe.FindSubmatch(body); m != nil && strings.TrimSpace(string(m[1])) != "" {
		return string(m[1]), true
	}
	return "", false
}

// extractSources normalizes Icecast's `source` field, which may be a single
// object or an array depending on mount counts.
func extractSources(v any) []iceSource {
	out := []iceSource{}
	switch val := v.(type) {
	case map[string]any:
		b, _ := json.Marshal(val)
		var s iceSource
		if json.Unmarshal(b, &s) == nil {
			out = append(out, s)
		}
	case []any:
		for _, it := range val {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			b, _ := json.Marshal(m)
			var s iceSource
			if json.Unmarshal(b, &s) == nil {
				out = append(out, s)
			}
		}
	}
	return out
}

// selectSource picks the Icecast source matching the active stream URL.
// Priority: mount path segment match, then hostname match, then codec
// inference from the stream URL, then the first titled source.
func selectSource(sources []iceSource, streamURL string) (iceSource, bool) {
	titled := sources[:0:0]
	for _, s := range sources {
		if strings.TrimSpace(s.Title) != "" {
			titled = append(titled, s)
		}
	}
	if len(titled) == 0 {
		return iceSource{}, false
	}
	if len(titled) == 1 || streamURL == "" {
		return titled[0], true
	}

	u, err := url.Parse(streamURL)
	if err != nil {
		return titled[0], true
	}

	if mount := lastPathSegment(u.Path); mount != "" {
		for _, s := range titled {
			if su, err := url.Parse(s.ListenURL); err == nil && strings.Contains(su.Path, mount) {
				return s, true
			}
		}
	}

	for _, s := range titled {
		if su, err := url.Parse(s.ListenURL); err == nil && su.Hostname() != "" && su.Hostname() == u.Hostname() {
			return s, true
		}
	}

	// Codec inference: "aac" in the stream URL prefers an AAC source,
	// otherwise an MP3 one (icecast reports those as audio/mpeg).
	wants := []string{"mp3", "mpeg"}
	if strings.Contains(strings.ToLower(streamURL), "aac") {
		wants = []string{"aac"}
	}
	for _, s := range titled {
		for _, want := range wants {
			if strings.Contains(strings.ToLower(s.ServerType), want) {
				return s, true
			}
		}
	}

	return titled[0], true
}

func lastPathSegment(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	parts := strings.Split(p, "/")
	return parts[len(parts)-1]
}

// statusCandidates builds the ordered list of status endpoints to poll: the
// explicit metadata URL first, then Icecast status pages derived from the
// stream's origin.
func statusCandidates(metadataURL, streamURL string) []string {
	out := []string{}
	if metadataURL != "" {
		out = append(out, metadataURL)
	}
	if streamURL != "" {
		if u, err := url.Parse(streamURL); err == nil && u.Scheme != "" && u.Host != "" {
			origin := u.Scheme + "://" + u.Host
			out = append(out, origin+"/status-json.xsl", origin+"/status.xsl")
		}
	}
	return out
}
