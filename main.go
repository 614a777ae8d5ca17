package main

import (
	"context"
	"net/http"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	appConfig "skywave/config"
	"skywave/handlers"
	"skywave/itunes"
	"skywave/nowplaying"
	"skywave/player"
	"skywave/remoteconfig"
	appSentry "skywave/sentry"
	"skywave/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
	appConfig.NewConfig()
	setupLogging(appConfig.Config.Options.LogLevel)
	appSentry.Init()

	if err := run(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func setupLogging(level string) {
	log.SetFormatter(&nested.Formatter{
		HideKeys:    true,
		FieldsOrder: []string{"module", "method"},
	})
	if level == "" {
		level = "info"
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

func run(ctx context.Context) error {
	cfg := appConfig.Config

	kv, err := store.New(cfg.Options.DBPath)
	if err != nil {
		return err
	}
	defer kv.Close()

	fetcher := remoteconfig.NewFetcher(kv, cfg.Remote.URLTemplate, cfg.Remote.URL)
	configStore := remoteconfig.NewStore(kv, fetcher, cfg.Remote.DefaultTenant)
	scheduler := remoteconfig.NewScheduler(configStore)

	engine := player.NewLocalEngine()
	controller := player.NewController(engine)

	tracks := itunes.NewResolver(itunes.NewClient(), cfg.Enrichment.Country, cfg.Enrichment.CacheSize)
	resolver := nowplaying.NewResolver(
		nowplaying.WithTrackCallback(tracks.Request),
	)
	defer resolver.Stop()

	// In-band engine events feed the resolver; playback errors are logged
	// and reported but never fatal.
	go func() {
		for ev := range engine.Events() {
			switch ev.Type {
			case player.EventMetadata:
				resolver.HandleInband(ev.Artist, ev.Title)
			case player.EventError:
				log.Warnf("playback error: %v", ev.Err)
				appSentry.ReportError(ev.Err)
			}
		}
	}()

	// Keep the resolver pointed at the active stream whenever a new config
	// is published.
	updates := configStore.Subscribe()
	go func() {
		for range updates {
			c := configStore.Config()
			streamURL := controller.CurrentURL()
			if streamURL == "" {
				streamURL = c.Streams.Radio.PrimaryURL
			}
			resolver.Configure(c.Streams.Radio.MetadataURL, streamURL)
		}
	}()

	go func() {
		if err := configStore.Initialize(ctx); err != nil {
			log.Warnf("initial config fetch failed, running on cache or defaults: %v", err)
		}
	}()
	go scheduler.Run(ctx)

	router := gin.Default()
	router.Use(appSentry.GetSentryGin())

	manager := handlers.NewManager(configStore, scheduler, resolver, tracks, controller)
	manager.Register(router)

	port := cfg.Options.Port
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on :%s", port)
	return http.ListenAndServe(":"+port, router)
}
