package config

import (
	"os"
	"strconv"
)

type ConfigStruct struct {
	Remote     RemoteConfigSource
	Enrichment EnrichmentConfig
	Options    Options
}

// RemoteConfigSource locates the tenant config endpoint. URLTemplate wins
// when set and has its {tenant} placeholder substituted at fetch time.
type RemoteConfigSource struct {
	URLTemplate   string
	URL           string
	DefaultTenant string
}

type EnrichmentConfig struct {
	Country   string
	CacheSize int
}

type Options struct {
	Port     string
	DBPath   string
	LogLevel string
}

var Config *ConfigStruct

func NewConfig() {
	config := &ConfigStruct{
		Remote: RemoteConfigSource{
			URLTemplate:   os.Getenv("REMOTE_CONFIG_URL_TEMPLATE"),
			URL:           os.Getenv("REMOTE_CONFIG_URL"),
			DefaultTenant: getDefaultTenant(),
		},
		Enrichment: EnrichmentConfig{
			Country:   getCountry(),
			CacheSize: getEnrichmentCacheSize(),
		},
		Options: Options{
			Port:     os.Getenv("PORT"),
			DBPath:   os.Getenv("DB_PATH"),
			LogLevel: os.Getenv("LOG_LEVEL"),
		},
	}

	Config = config
}

func getDefaultTenant() string {
	tenant := os.Getenv("DEFAULT_TENANT")
	if tenant == "" {
		return "default"
	}
	return tenant
}

func getCountry() string {
	country := os.Getenv("ENRICHMENT_COUNTRY")
	if country == "" {
		return "br"
	}
	return country
}

func getEnrichmentCacheSize() int {
	sizeStr := os.Getenv("ENRICHMENT_CACHE_SIZE")
	if sizeStr == "" {
		return 256
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		return 256
	}
	if size > 4096 {
		return 4096 // Cap to keep the memo cache from dominating memory
	}
	return size
}
