package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "vet-clinic-web/docs"
	"vet-clinic-web/internal/adapters/captcha/turnstile"
	mem "vet-clinic-web/internal/adapters/storage/memory"
	"vet-clinic-web/internal/domain/appointments"
	"vet-clinic-web/internal/domain/availability"
	"vet-clinic-web/internal/domain/captcha"
	"vet-clinic-web/internal/domain/catalog"
	"vet-clinic-web/internal/domain/contact"
	"vet-clinic-web/internal/domain/submissions"
	"vet-clinic-web/internal/middleware"
	"vet-clinic-web/internal/platform/logger"
	"vet-clinic-web/internal/platform/metrics"
	"vet-clinic-web/internal/ports/cms"
)

type Options struct {
	AppName string
	Log     logger.Logger

	// Registry se expone en /metrics. nil => registry nuevo.
	// Metrics ya registradas en Registry; nil => se registran acá.
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	CMS     cms.CMS
	Contact contact.Sender

	// Opcionales: nil => in-memory / sin cache.
	Cache       catalog.Cache
	CacheTTL    time.Duration
	Sessions    appointments.Repository
	Submissions submissions.Repository

	ScriptFetcher    captcha.ScriptFetcher
	CaptchaScriptURL string
	CaptchaSiteKey   string

	Location       *time.Location
	SessionIdleTTL time.Duration
	RateLimit      middleware.RateLimitConfig
}

// Router es el handler HTTP más los servicios que main necesita para tareas de fondo.
type Router struct {
	http.Handler

	Appointments *appointments.Service
	Widgets      *turnstile.Widgets
}

func NewRouter(opts Options) *Router {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New(reg)
	}

	sessionRepo := opts.Sessions
	if sessionRepo == nil {
		sessionRepo = mem.NewSessionRepo()
	}
	submissionRepo := opts.Submissions
	if submissionRepo == nil {
		submissionRepo = mem.NewSubmissionRepo()
	}

	// Services por módulo
	projector := availability.NewProjector(opts.Location)
	catalogSvc := catalog.NewService(opts.CMS, opts.Cache, opts.CacheTTL, log.With(logger.Fields{"module": "catalog"}))
	availabilitySvc := availability.NewService(opts.CMS, projector, log.With(logger.Fields{"module": "availability"}))
	submissionsSvc := submissions.NewService(submissionRepo)
	contactSvc := contact.NewService(opts.Contact, submissionsSvc, m, log.With(logger.Fields{"module": "contact"}))

	widgets := turnstile.NewWidgets()
	loader := captcha.NewLoader(opts.ScriptFetcher, opts.CaptchaScriptURL)
	captchaAdapter := captcha.NewAdapter(loader, widgets, opts.CaptchaSiteKey, log.With(logger.Fields{"module": "captcha"}))

	appointmentsSvc := appointments.NewService(sessionRepo, appointments.Deps{
		Catalog:      catalogSvc,
		Availability: availabilitySvc,
		Captcha:      captchaAdapter,
		Submitter:    opts.CMS,
		Recorder:     submissionsSvc,
		Projector:    projector,
		Metrics:      m,
		Log:          log.With(logger.Fields{"module": "appointments"}),
		IdleTTL:      opts.SessionIdleTTL,
	})

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(log))
	r.Use(middleware.RequestLog(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Rutas por módulo; el limitador solo cubre la API.
	limiter := middleware.NewRateLimiter(opts.RateLimit)
	r.Group(func(api chi.Router) {
		api.Use(limiter.Middleware)

		catalog.RegisterRoutes(api, catalogSvc)
		availability.RegisterRoutes(api, availabilitySvc)
		appointments.RegisterRoutes(api, appointmentsSvc, widgets)
		contact.RegisterRoutes(api, contactSvc)
		submissions.RegisterRoutes(api, submissionsSvc)
	})

	appName := opts.AppName
	if appName == "" {
		appName = "vet-clinic-web"
	}

	return &Router{
		Handler:      otelhttp.NewHandler(r, appName),
		Appointments: appointmentsSvc,
		Widgets:      widgets,
	}
}
