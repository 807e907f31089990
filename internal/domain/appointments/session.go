package appointments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vet-clinic-web/internal/domain/availability"
	"vet-clinic-web/internal/domain/captcha"
	"vet-clinic-web/internal/domain/catalog"
	"vet-clinic-web/internal/domain/submissions"
	"vet-clinic-web/internal/platform/httpclient"
	"vet-clinic-web/internal/platform/logger"
	"vet-clinic-web/internal/platform/metrics"
)

// ErrFormLocked: el formulario no se edita con la confirmación abierta o un envío en curso.
var ErrFormLocked = errors.New("form is locked")

// Phase es el estado del flujo revisar -> confirmar.
type Phase string

const (
	PhaseEditing    Phase = "editing"
	PhaseReviewing  Phase = "reviewing"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

const (
	MsgSubmitted          = "Solicitud enviada."
	MsgSubmitFailed       = "Error al confirmar la cita."
	MsgServicesLoadFailed = "No se pudieron cargar los servicios."
	MsgSlotsLoadFailed    = "No se pudo cargar la disponibilidad."
)

const inboxSize = 16

// Feedback es el banner de resultado del último envío.
type Feedback struct {
	Success string `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CaptchaView es lo que el navegador necesita para su widget. Resets sube cada
// vez que el widget se reinicia del lado servidor.
type CaptchaView struct {
	SiteKey   string `json:"siteKey"`
	Container string `json:"container"`
	WidgetID  string `json:"widgetId,omitempty"`
	Resets    int    `json:"resets"`
}

// View es una foto consistente de la sesión.
type View struct {
	ID                string                 `json:"id"`
	Phase             Phase                  `json:"phase"`
	Draft             Draft                  `json:"draft"`
	Errors            FieldErrors            `json:"errors"`
	TotalPrice        int64                  `json:"totalPrice"`
	Loading           bool                   `json:"loading"`
	ServicesError     string                 `json:"servicesError,omitempty"`
	AvailabilityError string                 `json:"availabilityError,omitempty"`
	Services          catalog.Catalog        `json:"services"`
	Days              []availability.DayView `json:"days"`
	Review            *Review                `json:"review,omitempty"`
	Submitting        bool                   `json:"submitting"`
	Feedback          Feedback               `json:"feedback"`
	Captcha           CaptchaView            `json:"captcha"`
}

// env son las dependencias compartidas por todas las sesiones.
type env struct {
	submitter Submitter
	recorder  Recorder
	projector *availability.Projector
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	log       logger.Logger
	siteKey   string
}

type mutation func(s *Session)

type result struct {
	view View
	err  error
}

// Session es un formulario de agenda montado. Una sola goroutine (loop) es dueña
// del estado; todo cambio llega como mutation por inbox, incluidos los callbacks
// del captcha y los resultados de fetch y envío. Después de Close los mensajes
// pendientes se descartan.
type Session struct {
	ID string

	env       *env
	inbox     chan mutation
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	touched   atomic.Int64

	// estado de loop
	draft          Draft
	errors         FieldErrors
	phase          Phase
	review         *Review
	feedback       Feedback
	services       catalog.Catalog
	servicesLoaded bool
	servicesErr    string
	avail          availability.Map
	availLoaded    bool
	availErr       string
	expanded       map[string]bool
	widget         *captcha.Widget
	captchaResets  int
}

func newSession(id string, e *env, now time.Time) *Session {
	s := &Session{
		ID:       id,
		env:      e,
		inbox:    make(chan mutation, inboxSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		draft:    NewDraft(),
		errors:   FieldErrors{},
		phase:    PhaseEditing,
		expanded: map[string]bool{},
	}
	s.touched.Store(now.UnixNano())
	return s
}

func (s *Session) start() {
	go s.loop()
}

func (s *Session) loop() {
	defer close(s.done)
	defer func() { s.widget.Remove() }()

	for {
		select {
		case <-s.quit:
			return
		case m := <-s.inbox:
			select {
			case <-s.quit:
				return
			default:
			}
			m(s)
		}
	}
}

// Close desmonta la sesión. Devuelve true solo en la llamada que la cerró.
func (s *Session) Close() bool {
	closed := false
	s.closeOnce.Do(func() {
		close(s.quit)
		closed = true
	})
	return closed
}

// Closed indica si la sesión ya fue desmontada.
func (s *Session) Closed() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// Touched es la última vez que un caller interactuó con la sesión.
func (s *Session) Touched() time.Time {
	return time.Unix(0, s.touched.Load())
}

func (s *Session) touch(now time.Time) {
	s.touched.Store(now.UnixNano())
}

// Container es el id del contenedor del widget de captcha de esta sesión.
func (s *Session) Container() string {
	return "turnstile-" + s.ID
}

// post encola una mutación sin esperar resultado. Devuelve false si la sesión
// ya se cerró (el mensaje se descarta).
func (s *Session) post(m mutation) bool {
	select {
	case <-s.quit:
		return false
	default:
	}
	select {
	case s.inbox <- m:
		return true
	case <-s.quit:
		return false
	}
}

// call ejecuta fn en la goroutine de la sesión y devuelve la vista resultante.
func (s *Session) call(ctx context.Context, fn func(s *Session) error) (View, error) {
	reply := make(chan result, 1)
	m := func(s *Session) {
		err := fn(s)
		reply <- result{view: s.view(), err: err}
	}

	select {
	case s.inbox <- m:
	case <-s.quit:
		return View{}, ErrSessionClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.view, r.err
	case <-s.quit:
		return View{}, ErrSessionClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// View devuelve la foto actual.
func (s *Session) View(ctx context.Context) (View, error) {
	return s.call(ctx, func(*Session) error { return nil })
}

// SetField asigna un campo y lo revalida (solo ese campo).
// El token de captcha solo lo escribe el widget.
func (s *Session) SetField(ctx context.Context, f Field, raw []byte) (View, error) {
	return s.call(ctx, func(s *Session) error {
		if f == FieldCaptchaToken {
			return fmt.Errorf("%w: %s is set by the captcha widget", ErrInvalidValue, f)
		}
		if !KnownField(f) {
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
		if err := s.unlock(); err != nil {
			return err
		}
		if err := s.draft.Set(f, raw); err != nil {
			return err
		}
		s.revalidate(f)
		return nil
	})
}

// ToggleService agrega o quita un servicio y revalida la selección.
func (s *Session) ToggleService(ctx context.Context, id string) (View, error) {
	return s.call(ctx, func(s *Session) error {
		if err := s.unlock(); err != nil {
			return err
		}
		s.draft.ToggleService(id)
		s.revalidate(FieldServices)
		return nil
	})
}

// ToggleDay expande o colapsa las horas de un día.
func (s *Session) ToggleDay(ctx context.Context, date string) (View, error) {
	return s.call(ctx, func(s *Session) error {
		if s.expanded[date] {
			delete(s.expanded, date)
		} else {
			s.expanded[date] = true
		}
		return nil
	})
}

// Submit valida todo el formulario. Con errores queda en editing; sin errores
// abre la confirmación (reviewing).
func (s *Session) Submit(ctx context.Context) (View, error) {
	return s.call(ctx, func(s *Session) error {
		if s.phase == PhaseSubmitting {
			return ErrSubmissionInFlight
		}
		s.feedback = Feedback{}
		if !s.validateAll() {
			s.phase = PhaseEditing
			s.review = nil
			return ErrInvalidDraft
		}
		r := BuildReview(s.draft, s.services, s.env.projector.Location)
		s.review = &r
		s.phase = PhaseReviewing
		return nil
	})
}

// Cancel cierra la confirmación sin tocar el draft.
func (s *Session) Cancel(ctx context.Context) (View, error) {
	return s.call(ctx, func(s *Session) error {
		switch s.phase {
		case PhaseReviewing, PhaseFailed:
		case PhaseSubmitting:
			return ErrSubmissionInFlight
		default:
			return ErrNotReviewing
		}
		s.phase = PhaseEditing
		s.review = nil
		s.feedback = Feedback{}
		return nil
	})
}

// Reset vuelve el formulario a sus valores por defecto y reinicia el captcha.
func (s *Session) Reset(ctx context.Context) (View, error) {
	return s.call(ctx, func(s *Session) error {
		if s.phase == PhaseSubmitting {
			return ErrSubmissionInFlight
		}
		s.draft = NewDraft()
		s.errors = FieldErrors{}
		s.review = nil
		s.feedback = Feedback{}
		s.phase = PhaseEditing
		s.resetCaptcha()
		return nil
	})
}

// Confirm envía la cita y espera el resultado. Solo desde reviewing o failed
// (reintento); con un envío en curso devuelve ErrSubmissionInFlight.
// El draft se revalida antes de enviar: si dejó de ser válido (p.ej. expiró el
// captcha) vuelve a editing con ErrInvalidDraft.
// Si el backend rechaza, devuelve la vista en failed junto con ErrSubmissionFailed.
// El envío no se cancela si ctx termina; el caller solo deja de esperar.
func (s *Session) Confirm(ctx context.Context) (View, error) {
	settled := make(chan result, 1)
	v, err := s.call(ctx, func(s *Session) error {
		return s.startSubmission(ctx, settled)
	})
	if err != nil {
		return v, err
	}

	select {
	case r := <-settled:
		return r.view, r.err
	case <-s.quit:
		return View{}, ErrSessionClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// PushCaptcha recibe los callbacks del widget (implementa captcha.Sink).
func (s *Session) PushCaptcha(ev captcha.Event) {
	s.post(func(s *Session) { s.applyCaptcha(ev) })
}

// --- goroutine de loop ---

// unlock: editar desde succeeded vuelve a editing.
func (s *Session) unlock() error {
	switch s.phase {
	case PhaseEditing:
		return nil
	case PhaseSucceeded:
		s.phase = PhaseEditing
		s.feedback = Feedback{}
		return nil
	case PhaseSubmitting:
		return ErrSubmissionInFlight
	default:
		return ErrFormLocked
	}
}

func (s *Session) revalidate(f Field) {
	var fe *FieldError
	if err := ValidateField(f, s.draft); errors.As(err, &fe) {
		s.errors[f] = fe.Message
		return
	}
	delete(s.errors, f)
}

func (s *Session) validateAll() bool {
	errs := ValidateAll(s.draft, s.services, s.avail)
	// Si el widget ya informó la causa (expirado, error de carga) se conserva ese mensaje.
	if _, ok := errs[FieldCaptchaToken]; ok {
		if prev, had := s.errors[FieldCaptchaToken]; had {
			errs[FieldCaptchaToken] = prev
		}
	}
	s.errors = errs
	for f := range s.errors {
		s.env.metrics.ObserveValidationFailure(string(submissions.KindAppointment), string(f))
	}
	return len(s.errors) == 0
}

func (s *Session) startSubmission(ctx context.Context, settled chan<- result) error {
	switch s.phase {
	case PhaseReviewing, PhaseFailed:
	case PhaseSubmitting:
		return ErrSubmissionInFlight
	default:
		return ErrNotReviewing
	}

	if !s.validateAll() {
		s.phase = PhaseEditing
		s.review = nil
		s.feedback = Feedback{}
		return ErrInvalidDraft
	}
	p, err := BuildPayload(s.draft)
	if err != nil {
		return err
	}

	s.phase = PhaseSubmitting
	s.feedback = Feedback{}
	go s.submit(context.WithoutCancel(ctx), p, settled)
	return nil
}

// submit corre fuera del loop; el resultado vuelve como mutación.
func (s *Session) submit(ctx context.Context, p Payload, settled chan<- result) {
	ctx, span := s.env.tracer.Start(ctx, "appointments.confirm", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("appointment.slot", p.SlotKey()),
		attribute.Int("appointment.services", len(p.Services)),
	))
	defer span.End()

	body, err := s.env.submitter.SubmitAppointment(ctx, p)
	ok := err == nil

	var msg string
	if ok {
		msg = httpclient.MessageFromBody(body, MsgSubmitted)
	} else {
		msg = httpclient.ErrorMessage(err, MsgSubmitFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		s.env.log.Warn("appointment submission failed", logger.Fields{"session_id": s.ID, "slot": p.SlotKey(), "err": err})
	}

	s.env.metrics.ObserveSubmission(string(submissions.KindAppointment), ok)
	if s.env.recorder != nil {
		if rerr := s.env.recorder.Record(ctx, submissions.KindAppointment, p.SlotKey(), ok, msg); rerr != nil {
			s.env.log.Error("could not record submission", logger.Fields{"session_id": s.ID, "err": rerr})
		}
	}

	s.post(func(s *Session) {
		s.settle(ok, msg)
		r := result{view: s.view()}
		if !ok {
			r.err = fmt.Errorf("%w: %s", ErrSubmissionFailed, msg)
		}
		settled <- r
	})
}

func (s *Session) settle(ok bool, msg string) {
	if !ok {
		// La confirmación queda abierta con el error; draft y token intactos.
		s.phase = PhaseFailed
		s.feedback = Feedback{Error: msg}
		return
	}
	s.phase = PhaseSucceeded
	s.feedback = Feedback{Success: msg}
	s.draft = NewDraft()
	s.errors = FieldErrors{}
	s.review = nil
	s.resetCaptcha()
}

func (s *Session) resetCaptcha() {
	if err := s.widget.Reset(); err != nil {
		s.env.log.Warn("captcha reset failed", logger.Fields{"session_id": s.ID, "err": err})
	}
	s.draft.CaptchaToken = ""
	s.captchaResets++
}

func (s *Session) applyCaptcha(ev captcha.Event) {
	switch ev.Kind {
	case captcha.EventSolved:
		s.draft.CaptchaToken = ev.Token
		delete(s.errors, FieldCaptchaToken)
	case captcha.EventError:
		s.draft.CaptchaToken = ""
		s.errors[FieldCaptchaToken] = captcha.MsgWidgetErr
	case captcha.EventExpired:
		s.draft.CaptchaToken = ""
		s.errors[FieldCaptchaToken] = captcha.MsgExpired
	case captcha.EventLoadFailed:
		s.draft.CaptchaToken = ""
		s.errors[FieldCaptchaToken] = captcha.MsgLoadFailed
	}
}

func (s *Session) servicesFetched(c catalog.Catalog, err error) {
	s.servicesLoaded = true
	if err != nil {
		s.servicesErr = MsgServicesLoadFailed
		return
	}
	s.services = c
	s.servicesErr = ""
}

func (s *Session) availabilityFetched(m availability.Map, err error) {
	s.availLoaded = true
	if err != nil {
		s.availErr = MsgSlotsLoadFailed
		return
	}
	s.avail = m
	s.availErr = ""
}

func (s *Session) view() View {
	v := View{
		ID:                s.ID,
		Phase:             s.phase,
		Draft:             s.draft.clone(),
		Errors:            s.errors.clone(),
		TotalPrice:        s.services.TotalPrice(s.draft.SelectedServiceIDs),
		Loading:           !s.servicesLoaded || !s.availLoaded,
		ServicesError:     s.servicesErr,
		AvailabilityError: s.availErr,
		Services:          append(catalog.Catalog{}, s.services...),
		Days:              []availability.DayView{},
		Submitting:        s.phase == PhaseSubmitting,
		Feedback:          s.feedback,
		Captcha: CaptchaView{
			SiteKey:   s.env.siteKey,
			Container: s.Container(),
			Resets:    s.captchaResets,
		},
	}
	if s.widget != nil {
		v.Captcha.WidgetID = s.widget.ID
	}
	if s.review != nil {
		r := *s.review
		r.Services = append([]ReviewService{}, s.review.Services...)
		v.Review = &r
	}
	if s.avail != nil {
		days, _ := s.env.projector.Project(s.avail)
		for _, d := range days {
			v.Days = append(v.Days, availability.NewDayView(d, s.expanded[d.Date]))
		}
	}
	return v
}
