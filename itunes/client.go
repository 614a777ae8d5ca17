package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Track is a catalog entry returned by the iTunes Search API.
type Track struct {
	ArtistName        string `json:"artistName"`
	TrackName         string `json:"trackName"`
	CollectionName    string `json:"collectionName,omitempty"`
	ArtworkURL100     string `json:"artworkUrl100,omitempty"`
	PreviewURL        string `json:"previewUrl,omitempty"`
	TrackViewURL      string `json:"trackViewUrl,omitempty"`
	CollectionViewURL string `json:"collectionViewUrl,omitempty"`
	PrimaryGenreName  string `json:"primaryGenreName,omitempty"`
	ReleaseDate       string `json:"releaseDate,omitempty"`
	TrackTimeMillis   int    `json:"trackTimeMillis,omitempty"`
	Country           string `json:"country,omitempty"`
}

type searchResponse struct {
	ResultCount int     `json:"resultCount"`
	Results     []Track `json:"results"`
}

const defaultBaseURL = "https://itunes.apple.com/search"

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 6 * time.Second,
		},
		baseURL: defaultBaseURL,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a fake API.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// Search queries the catalog for song candidates matching term.
func (c *Client) Search(ctx context.Context, term, country string, limit int) ([]Track, error) {
	u := fmt.Sprintf("%s?term=%s&entity=song&limit=%d&country=%s",
		c.baseURL, url.QueryEscape(term), limit, url.QueryEscape(country))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("itunes API returned status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Results, nil
}
