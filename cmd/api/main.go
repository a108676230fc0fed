package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/XIAOke8698/GRAS-Manager/internal/bootstrap"
	"github.com/XIAOke8698/GRAS-Manager/internal/http/handlers"
	httpapi "github.com/XIAOke8698/GRAS-Manager/internal/http/httpapi"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra/geoip"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: bootstrap failed")
	}
	defer svc.Close()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	}
	defer resolver.Close()
	var countries geoip.CountryResolver
	if resolver != nil {
		countries = resolver
	}
	regions := geoip.NewRegionSelector(countries, svc.Tasks.DefaultRegion())

	var gate handlers.PromptGate
	if svc.Gate != nil {
		gate = svc.Gate
	}
	app := handlers.NewApp(cfg, svc.Tasks, svc.Downloads, gate, logger)

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		APIToken:       cfg.APIToken,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RatePerMinute:  cfg.RateLimitPerMin,
		Regions:        regions,
	})
	if cfg.APIToken == "" {
		logger.Warn().Msg("api: API_TOKEN not set, task routes are unauthenticated")
	}

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Int("tasks", svc.Store.Len()).Msg("api: listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	logger.Info().Msg("api: stopped")
}
