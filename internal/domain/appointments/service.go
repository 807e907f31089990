package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"vet-clinic-web/internal/domain/availability"
	"vet-clinic-web/internal/domain/captcha"
	"vet-clinic-web/internal/domain/catalog"
	"vet-clinic-web/internal/domain/submissions"
	"vet-clinic-web/internal/platform/logger"
	"vet-clinic-web/internal/platform/metrics"
)

const DefaultIdleTTL = 30 * time.Minute

type CatalogSource interface {
	Services(ctx context.Context) (catalog.Catalog, error)
}

type AvailabilitySource interface {
	Fetch(ctx context.Context) (availability.Map, error)
}

// CaptchaMounter monta el widget de una sesión (captcha.Adapter).
type CaptchaMounter interface {
	Mount(ctx context.Context, container string, sink captcha.Sink) *captcha.Widget
	SiteKey() string
}

// Submitter es el POST de la cita al backend. body es la respuesta cruda en éxito;
// en error, el error puede traer el body (ver httpclient.ErrorMessage).
type Submitter interface {
	SubmitAppointment(ctx context.Context, p Payload) (body []byte, err error)
}

// Recorder guarda el resultado de cada envío (submissions.Service).
type Recorder interface {
	Record(ctx context.Context, kind submissions.Kind, reference string, ok bool, message string) error
}

type Deps struct {
	Catalog      CatalogSource
	Availability AvailabilitySource
	Captcha      CaptchaMounter
	Submitter    Submitter
	Recorder     Recorder // opcional
	Projector    *availability.Projector
	Metrics      *metrics.Metrics // opcional
	Tracer       trace.Tracer     // opcional, default otel global
	Log          logger.Logger
	IdleTTL      time.Duration
}

type Service struct {
	repo Repository
	deps Deps
	env  *env
	now  func() time.Time
}

func NewService(repo Repository, deps Deps) *Service {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Projector == nil {
		deps.Projector = availability.NewProjector(time.UTC)
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("vet-clinic-web/appointments")
	}
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = DefaultIdleTTL
	}

	siteKey := ""
	if deps.Captcha != nil {
		siteKey = deps.Captcha.SiteKey()
	}

	return &Service{
		repo: repo,
		deps: deps,
		env: &env{
			submitter: deps.Submitter,
			recorder:  deps.Recorder,
			projector: deps.Projector,
			metrics:   deps.Metrics,
			tracer:    deps.Tracer,
			log:       deps.Log,
			siteKey:   siteKey,
		},
		now: time.Now,
	}
}

// Open monta un formulario nuevo: draft por defecto, fetch de catálogo y
// disponibilidad en paralelo y montaje del captcha. No espera a ninguno; la
// vista queda en loading hasta que llegan los resultados.
func (s *Service) Open(ctx context.Context) (*Session, error) {
	sess := newSession(uuid.NewString(), s.env, s.now())
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	sess.start()
	s.deps.Metrics.SessionOpened()

	// Las cargas siguen aunque el request que abrió la sesión termine.
	bg := context.WithoutCancel(ctx)

	go func() {
		c, err := s.deps.Catalog.Services(bg)
		if err != nil {
			s.deps.Log.Warn("services fetch failed", logger.Fields{"session_id": sess.ID, "err": err})
		}
		sess.post(func(st *Session) { st.servicesFetched(c, err) })
	}()

	go func() {
		m, err := s.deps.Availability.Fetch(bg)
		if err != nil {
			s.deps.Log.Warn("availability fetch failed", logger.Fields{"session_id": sess.ID, "err": err})
		}
		sess.post(func(st *Session) { st.availabilityFetched(m, err) })
	}()

	if s.deps.Captcha != nil {
		go func() {
			w := s.deps.Captcha.Mount(bg, sess.Container(), sess)
			if w == nil {
				return
			}
			if !sess.post(func(st *Session) { st.widget = w }) {
				w.Remove()
			}
		}()
	}

	s.deps.Log.Debug("appointment session opened", logger.Fields{"session_id": sess.ID})
	return sess, nil
}

// Get busca una sesión abierta y la marca como activa.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Closed() {
		return nil, ErrNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

// Close desmonta la sesión. Lo que llegue después (fetch, envío) se descarta.
func (s *Service) Close(ctx context.Context, id string) error {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.closeSession(sess)
	return nil
}

// Sweep cierra las sesiones sin actividad por más de IdleTTL. Devuelve cuántas cerró.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.deps.IdleTTL)
	n := 0
	for _, sess := range all {
		if sess.Touched().After(cutoff) {
			continue
		}
		if err := s.repo.Delete(ctx, sess.ID); err != nil {
			s.deps.Log.Warn("could not expire session", logger.Fields{"session_id": sess.ID, "err": err})
			continue
		}
		s.closeSession(sess)
		n++
	}
	return n, nil
}

// RunJanitor ejecuta Sweep cada interval hasta que ctx termine.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.deps.Log.Warn("session sweep failed", logger.Fields{"err": err})
				continue
			}
			if n > 0 {
				s.deps.Log.Info("idle sessions expired", logger.Fields{"count": n})
			}
		}
	}
}

func (s *Service) closeSession(sess *Session) {
	if !sess.Close() {
		return
	}
	s.deps.Metrics.SessionClosed()
	s.deps.Log.Debug("appointment session closed", logger.Fields{"session_id": sess.ID})
}
