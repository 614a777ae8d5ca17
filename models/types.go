package models

// RemoteConfig is the sanitized, immutable tenant configuration snapshot.
// Instances are replaced wholesale on each successful fetch and must never
// be mutated after publishing.
type RemoteConfig struct {
	Version  int      `json:"version"`
	Branding Branding `json:"branding"`
	Streams  Streams  `json:"streams"`
	Station  *Station `json:"station,omitempty"`
	Promos   Promos   `json:"promos"`
	Features Features `json:"features"`
}

type Branding struct {
	Primary        string `json:"primary"`
	Background     string `json:"background"`
	Text           string `json:"text"`
	LogoURL        string `json:"logoUrl,omitempty"`
	BgImageURL     string `json:"bgImageUrl,omitempty"`
	StatusBarStyle string `json:"statusBarStyle,omitempty"`
	NavigationMode string `json:"navigationMode,omitempty"`
	Muted          string `json:"muted,omitempty"`
	Border         string `json:"border,omitempty"`
	Card           string `json:"card,omitempty"`
}

type Streams struct {
	Radio RadioStream `json:"radio"`
	// Video is nil when the payload carries no video primaryUrl.
	Video *VideoStream `json:"video,omitempty"`
}

type RadioStream struct {
	PrimaryURL   string   `json:"primaryUrl"`
	FallbackURLs []string `json:"fallbackUrls"`
	MetadataURL  string   `json:"metadataUrl,omitempty"`
}

type VideoStream struct {
	PrimaryURL   string   `json:"primaryUrl"`
	FallbackURLs []string `json:"fallbackUrls"`
}

type Station struct {
	Name       string            `json:"name,omitempty"`
	Genre      string            `json:"genre,omitempty"`
	LogoURL    string            `json:"logoUrl,omitempty"`
	ShareURL   string            `json:"shareUrl,omitempty"`
	Partners   []Partner         `json:"partners,omitempty"`
	HeroImages []string          `json:"heroImages,omitempty"`
	Social     map[string]string `json:"social,omitempty"`
}

type Partner struct {
	ImageURL string `json:"imageUrl"`
	Title    string `json:"title,omitempty"`
	Href     string `json:"href,omitempty"`
}

type Promos struct {
	Headline string      `json:"headline,omitempty"`
	Items    []PromoItem `json:"items"`
}

type PromoItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	Code      string `json:"code,omitempty"`
	RulesURL  string `json:"rulesUrl,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

type Features struct {
	EnablePictureInPicture bool `json:"enablePictureInPicture"`
	EnableMiniPlayer       bool `json:"enableMiniPlayer"`
	CheckConfigIntervalSec int  `json:"checkConfigIntervalSec"`
}
