package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"skywave/itunes"
	"skywave/models"
	"skywave/nowplaying"
	"skywave/player"
	"skywave/remoteconfig"
)

// Manager wires the core subsystems to the HTTP control surface.
type Manager struct {
	config     *remoteconfig.Store
	scheduler  *remoteconfig.Scheduler
	nowPlaying *nowplaying.Resolver
	tracks     *itunes.Resolver
	player     *player.Controller
	logger     *log.Entry
}

func NewManager(
	config *remoteconfig.Store,
	scheduler *remoteconfig.Scheduler,
	np *nowplaying.Resolver,
	tracks *itunes.Resolver,
	ctrl *player.Controller,
) *Manager {
	return &Manager{
		config:     config,
		scheduler:  scheduler,
		nowPlaying: np,
		tracks:     tracks,
		player:     ctrl,
		logger: log.WithFields(log.Fields{
			"module": "handlers",
		}),
	}
}

func (m *Manager) Register(router *gin.Engine) {
	router.GET("/healthz", m.health)
	router.GET("/config", m.getConfig)
	router.GET("/tenant", m.getTenant)
	router.POST("/tenant", m.setTenant)
	router.POST("/refresh", m.refresh)
	router.POST("/foreground", m.foreground)
	router.GET("/nowplaying", m.getNowPlaying)
	router.GET("/nowplaying/track", m.getTrack)
	router.POST("/player/toggle", m.togglePlay)
	router.POST("/player/stop", m.stopPlayer)
	router.POST("/player/volume", m.setVolume)
}

func (m *Manager) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"ready": m.config.Ready(),
	})
}

func (m *Manager) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, m.config.Config())
}

func (m *Manager) getTenant(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tenant": m.config.Tenant(),
		"url":    m.config.CurrentURL(),
		"ready":  m.config.Ready(),
	})
}

func (m *Manager) setTenant(c *gin.Context) {
	var body struct {
		Tenant string `json:"tenant"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Tenant == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant is required"})
		return
	}
	if err := m.config.SetTenant(c.Request.Context(), body.Tenant); err != nil {
		// The switch itself succeeded; only the initial fetch failed. The
		// store is running on cache or defaults until the next refresh.
		m.logger.Warnf("tenant switch fetch failed: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"tenant": m.config.Tenant(),
		"ready":  m.config.Ready(),
	})
}

func (m *Manager) refresh(c *gin.Context) {
	if err := m.config.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "config refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (m *Manager) foreground(c *gin.Context) {
	m.scheduler.Foreground()
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

func (m *Manager) getNowPlaying(c *gin.Context) {
	c.JSON(http.StatusOK, m.nowPlaying.Snapshot())
}

func (m *Manager) getTrack(c *gin.Context) {
	track := m.tracks.Current()
	if track == nil {
		c.JSON(http.StatusOK, gin.H{"track": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"track": track})
}

func (m *Manager) togglePlay(c *gin.Context) {
	cfg := m.config.Config()
	urls := streamURLs(cfg)
	label := stationName(cfg)

	m.nowPlaying.Configure(cfg.Streams.Radio.MetadataURL, firstNonEmpty(urls))

	err := m.player.TogglePlay(c.Request.Context(), urls, label)
	if err != nil {
		if errors.Is(err, player.ErrNoEndpoints) {
			c.JSON(http.StatusConflict, gin.H{"error": "no stream endpoints configured"})
			return
		}
		m.logger.Warnf("playback start failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not start the stream (all endpoints failed)"})
		return
	}

	playing := m.player.IsPlaying(c.Request.Context())
	m.nowPlaying.SetPlaying(playing)
	if active := m.player.CurrentURL(); active != "" {
		m.nowPlaying.Configure(cfg.Streams.Radio.MetadataURL, active)
	}
	c.JSON(http.StatusOK, gin.H{
		"playing": playing,
		"url":     m.player.CurrentURL(),
		"share":   player.ShareText(label, m.player.CurrentURL()),
	})
}

func (m *Manager) stopPlayer(c *gin.Context) {
	m.player.Stop(c.Request.Context())
	m.nowPlaying.SetPlaying(false)
	c.JSON(http.StatusOK, gin.H{"playing": false})
}

func (m *Manager) setVolume(c *gin.Context) {
	var body struct {
		Volume float64 `json:"volume"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volume is required"})
		return
	}
	if err := m.player.SetVolume(c.Request.Context(), body.Volume); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to set volume"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"volume": m.player.Volume()})
}

func streamURLs(cfg *models.RemoteConfig) []string {
	urls := []string{}
	if cfg.Streams.Radio.PrimaryURL != "" {
		urls = append(urls, cfg.Streams.Radio.PrimaryURL)
	}
	urls = append(urls, cfg.Streams.Radio.FallbackURLs...)
	return urls
}

func stationName(cfg *models.RemoteConfig) string {
	if cfg.Station != nil && cfg.Station.Name != "" {
		return cfg.Station.Name
	}
	return "Radio"
}

func firstNonEmpty(urls []string) string {
	for _, u := range urls {
		if u != "" {
			return u
		}
	}
	return ""
}
