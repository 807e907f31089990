package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	memcache "vet-clinic-web/internal/adapters/cache/memory"
	rediscache "vet-clinic-web/internal/adapters/cache/redis"
	"vet-clinic-web/internal/adapters/captcha/turnstile"
	cmsadapter "vet-clinic-web/internal/adapters/cms"
	"vet-clinic-web/internal/adapters/contactapi"
	pg "vet-clinic-web/internal/adapters/storage/postgres"
	"vet-clinic-web/internal/domain/catalog"
	"vet-clinic-web/internal/domain/submissions"
	"vet-clinic-web/internal/middleware"
	"vet-clinic-web/internal/platform/config"
	"vet-clinic-web/internal/platform/httpclient"
	"vet-clinic-web/internal/platform/logger"
	"vet-clinic-web/internal/platform/metrics"
	"vet-clinic-web/internal/platform/tracing"
	"vet-clinic-web/internal/router"
)

const janitorInterval = time.Minute

func main() {
	cfg := config.Load()
	log := logger.NewFromStrings(cfg.LogLevel, cfg.LogFormat, cfg.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Setup(ctx, tracing.Options{
		ServiceName: cfg.AppName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	}, log)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	loc, err := cfg.Location()
	if err != nil {
		log.Error("invalid CLINIC_TIMEZONE", logger.Fields{"tz": cfg.ClinicTimezone, "err": err})
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	// clientes upstream y router comparten el mismo set de métricas
	m := metrics.New(reg)

	cmsClient, err := cmsadapter.NewClient(cmsadapter.Config{BaseURL: cfg.CMSBaseURL, Timeout: cfg.HTTPTimeout}, m)
	if err != nil {
		log.Error("invalid CMS_API_URL", logger.Fields{"err": err})
		os.Exit(1)
	}
	if !cmsClient.IsConfigured() {
		log.Warn("cms not configured; catalog and appointments will fail", nil)
	}
	contactClient, err := contactapi.NewClient(contactapi.Config{BaseURL: cfg.ContactURL(), Timeout: cfg.HTTPTimeout}, m)
	if err != nil {
		log.Error("invalid CONTACT_API_URL", logger.Fields{"err": err})
		os.Exit(1)
	}

	var cache catalog.Cache = memcache.NewCache()
	if cfg.RedisAddr != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, true)
		if err != nil {
			log.Warn("redis unavailable, using in-memory catalog cache", logger.Fields{"addr": cfg.RedisAddr, "err": err})
		} else {
			defer func() { _ = client.Close() }()
			cache = rediscache.NewCache(client, cfg.AppName+":")
			log.Info("catalog cache on redis", logger.Fields{"addr": cfg.RedisAddr})
		}
	}

	var submissionRepo submissions.Repository
	if cfg.DatabaseURL != "" {
		db, err := pg.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database unavailable", logger.Fields{"err": err})
			os.Exit(1)
		}
		defer func(db *sql.DB) { _ = db.Close() }(db)
		submissionRepo = pg.NewSubmissionsRepo(db)
	}

	rt := router.NewRouter(router.Options{
		AppName:          cfg.AppName,
		Log:              log,
		Registry:         reg,
		Metrics:          m,
		CMS:              cmsClient,
		Contact:          contactClient,
		Cache:            cache,
		CacheTTL:         cfg.CatalogCacheTTL,
		Submissions:      submissionRepo,
		ScriptFetcher:    turnstile.NewScriptFetcher(httpclient.New(cfg.HTTPTimeout)),
		CaptchaScriptURL: cfg.TurnstileScriptURL,
		CaptchaSiteKey:   cfg.TurnstileSiteKey,
		Location:         loc,
		SessionIdleTTL:   cfg.SessionIdleTTL,
		RateLimit: middleware.RateLimitConfig{
			PerMinute: cfg.RateLimitPerMinute,
			Burst:     cfg.RateLimitBurst,
		},
	})

	go rt.Appointments.RunJanitor(ctx, janitorInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           rt,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// confirm espera la respuesta del CMS
		WriteTimeout: cfg.HTTPTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", logger.Fields{"addr": srv.Addr, "tz": loc.String()})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", logger.Fields{"err": err})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down", nil)

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error("shutdown error", logger.Fields{"err": err})
	}
}
