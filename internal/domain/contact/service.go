package contact

import (
	"context"
	"errors"
	"fmt"

	"vet-clinic-web/internal/domain/submissions"
	"vet-clinic-web/internal/platform/httpclient"
	"vet-clinic-web/internal/platform/logger"
	"vet-clinic-web/internal/platform/metrics"
)

var (
	ErrInvalidForm = errors.New("invalid contact form")
	ErrSendFailed  = errors.New("contact form send failed")
)

// Sender es el backend del formulario (POST /contact-form).
type Sender interface {
	SendContactForm(ctx context.Context, f Form) (body []byte, err error)
}

// Recorder guarda el resultado del envío (submissions.Service).
type Recorder interface {
	Record(ctx context.Context, kind submissions.Kind, reference string, ok bool, message string) error
}

// Result es lo que ve el usuario después de enviar.
type Result struct {
	Message string      `json:"message"`
	Errors  FieldErrors `json:"errors,omitempty"`
}

type Service struct {
	sender   Sender
	recorder Recorder
	metrics  *metrics.Metrics
	log      logger.Logger
}

// NewService: recorder y m pueden ser nil.
func NewService(sender Sender, recorder Recorder, m *metrics.Metrics, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{sender: sender, recorder: recorder, metrics: m, log: log}
}

// Submit valida y envía. Con errores de validación devuelve ErrInvalidForm y
// Result.Errors, sin llamar al backend. Si el backend falla devuelve
// ErrSendFailed con el mensaje extraído de la respuesta.
func (s *Service) Submit(ctx context.Context, in Form) (Result, error) {
	f := in.Normalize()
	if errs := f.Validate(); len(errs) > 0 {
		for field := range errs {
			s.metrics.ObserveValidationFailure(string(submissions.KindContact), field)
		}
		return Result{Errors: errs}, ErrInvalidForm
	}

	body, err := s.sender.SendContactForm(ctx, f)
	ok := err == nil

	var msg string
	if ok {
		msg = httpclient.MessageFromBody(body, MsgSent)
	} else {
		msg = httpclient.ErrorMessage(err, MsgSendFailed)
		s.log.Warn("contact form send failed", logger.Fields{"preference": f.ContactPreference, "err": err})
	}

	s.metrics.ObserveSubmission(string(submissions.KindContact), ok)
	if s.recorder != nil {
		if rerr := s.recorder.Record(ctx, submissions.KindContact, f.ContactPreference, ok, msg); rerr != nil {
			s.log.Error("could not record submission", logger.Fields{"err": rerr})
		}
	}

	if !ok {
		return Result{Message: msg}, fmt.Errorf("%w: %s", ErrSendFailed, msg)
	}
	return Result{Message: msg}, nil
}
