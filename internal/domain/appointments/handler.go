package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vet-clinic-web/internal/domain/captcha"
)

// CaptchaDispatcher entrega al widget registrado un callback que reportó el navegador.
type CaptchaDispatcher interface {
	Dispatch(widgetID string, ev captcha.Event) error
}

func RegisterRoutes(r chi.Router, svc *Service, captchas CaptchaDispatcher) {
	r.Route("/appointments/sessions", func(sr chi.Router) {
		sr.Post("/", openSessionHandler(svc))

		sr.Route("/{sessionID}", func(one chi.Router) {
			one.Get("/", getSessionHandler(svc))
			one.Delete("/", closeSessionHandler(svc))

			one.Patch("/fields", setFieldHandler(svc))
			one.Post("/services/{serviceID}/toggle", toggleServiceHandler(svc))
			one.Post("/days/{date}/toggle", toggleDayHandler(svc))
			one.Post("/captcha", captchaEventHandler(svc, captchas))

			one.Post("/submit", submitHandler(svc))
			one.Post("/confirm", confirmHandler(svc))
			one.Post("/cancel", cancelHandler(svc))
			one.Post("/reset", resetHandler(svc))
		})
	})
}

type setFieldRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type captchaEventRequest struct {
	Event string `json:"event"` // solved | error | expired
	Token string `json:"token"`
}

// openSessionHandler godoc
// @Summary Montar formulario de agenda
// @Description Crea una sesión con el draft por defecto. Catálogo, disponibilidad y captcha cargan en segundo plano (loading=true hasta que lleguen).
// @Tags appointments
// @Produce json
// @Success 201 {object} View
// @Failure 500 {string} string "could not open session"
// @Router /appointments/sessions [post]
func openSessionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Open(r.Context())
		if err != nil {
			http.Error(w, "could not open session", http.StatusInternalServerError)
			return
		}
		v, err := sess.View(r.Context())
		if err != nil {
			writeError(w, v, err)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

// getSessionHandler godoc
// @Summary Estado del formulario
// @Tags appointments
// @Produce json
// @Param sessionID path string true "Session ID"
// @Success 200 {object} View
// @Failure 404 {string} string "session not found"
// @Router /appointments/sessions/{sessionID} [get]
func getSessionHandler(svc *Service) http.HandlerFunc {
	return withSession(svc, func(ctx context.Context, sess *Session, _ *http.Request) (View, error) {
		return sess.View(ctx)
	})
}

// closeSessionHandler godoc
// @Summary Desmontar formulario
// @Description Resultados pendientes (cargas o envío) que lleguen después se descartan.
// @Tags appointments
// @Param sessionID path string true "Session ID"
// @Success 204
// @Failure 404 {string} string "session not found"
// @Router /appointments/sessions/{sessionID} [delete]
func closeSessionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if err := svc.Close(r.Context(), id); err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			http.Error(w, "could not close session", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// setFieldHandler godoc
// @Summary Cambiar un campo
// @Description Asigna el campo y lo revalida solo a él (sin reglas cruzadas). selectedServiceIds recibe una lista; el resto, string.
// @Tags appointments
// @Accept json
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param body body setFieldRequest true "Campo y valor"
// @Success 200 {object} View
// @Failure 400 {string} string "invalid field"
// @Failure 404 {string} string "session not found"
// @Failure 409 {string} string "form is locked"
// @Router /appointments/sessions/{sessionID}/fields [patch]
func setFieldHandler(svc *Service) http.HandlerFunc {
	return withSession(svc, func(ctx context.Context, sess *Session, r *http.Request) (View, error) {
		var req setFieldRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return View{}, ErrInvalidValue
		}
		if len(req.Value) == 0 {
			return View{}, ErrInvalidValue
		}
		return sess.SetField(ctx, Field(strings.TrimSpace(req.Field)), req.Value)
	})
}

// toggleServiceHandler godoc
// @Summary Seleccionar o quitar un servicio
// @Tags appointments
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param serviceID path string true "Service ID"
// @Success 200 {object} View
// @Failure 404 {string} string "session not found"
// @Failure 409 {string} string "form is locked"
// @Router /appointments/sessions/{sessionID}/services/{serviceID}/toggle [post]
func toggleServiceHandler(svc *Service) http.HandlerFunc {
	return withSession(svc, func(ctx context.Context, sess *Session, r *http.Request) (View, error) {
		return sess.ToggleService(ctx, chi.URLParam(r, "serviceID"))
	})
}

// toggleDayHandler godoc
// @Summary Expandir o colapsar las horas de un día
// @Tags appointments
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param date path string true "Fecha YYYY-MM-DD"
// @Success 200 {object} View
// @Failure 404 {string} string "session not found"
// @Router /appointments/sessions/{sessionID}/days/{date}/toggle [post]
func toggleDayHandler(svc *Service) http.HandlerFunc {
	return withSession(svc, func(ctx context.Context, sess *Session, r *http.Request) (View, error) {
		return sess.ToggleDay(ctx, chi.URLParam(r, "date"))
	})
}

// captchaEventHandler godoc
// @Summary Callback del widget de captcha
// @Description El navegador reporta solved (con token), error o expired del widget montado para la sesión.
// @Tags appointments
// @Accept json
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param body body captchaEventRequest true "Evento"
// @Success 200 {object} View
// @Failure 400 {string} string "invalid captcha event"
// @Failure 404 {string} string "session not found"
// @Failure 409 {string} string "captcha not mounted"
// @Router /appointments/sessions/{sessionID}/captcha [post]
func captchaEventHandler(svc *Service, captchas CaptchaDispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		var req captchaEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid captcha event", http.StatusBadRequest)
			return
		}
		ev, ok := parseCaptchaEvent(req)
		if !ok {
			http.Error(w, "invalid captcha event", http.StatusBadRequest)
			return
		}

		v, err := sess.View(r.Context())
		if err != nil {
			writeError(w, v, err)
			return
		}
		if v.Captcha.WidgetID == "" || captchas == nil {
			http.Error(w, "captcha not mounted", http.StatusConflict)
			return
		}
		if err := captchas.Dispatch(v.Captcha.WidgetID, ev); err != nil {
			http.Error(w, "captcha not mounted", http.StatusConflict)
			return
		}

		// El callback ya está en la cola de la sesión; esta lectura lo ve aplicado.
		v, err = sess.View(r.Context())
		if err != nil {
			writeError(w, v, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// submitHandler godoc
// @Summary Enviar formulario (abre la confirmación)
// @Description Valida todo el formulario. 422 con errors si algo falla; 200 en reviewing con la vista de confirmación.
// @Tags appointments
// @Produce json
// @Param sessionID path string true "Session ID"
// @Success 200 {object} View
// @Failure 404 {string} string "session not found"
// @Failure 409 {string} string "submission already in flight"
// @Failure 422 {object} View
// @Router /appointments/sessions/{sessionID}/submit [post]
func submitHandler(svc *Service) http.HandlerFunc {
	return withSession(svc, func(ctx context.Context, sess *Session, _ *http.Request) (View, error) {
		return sess.Submit(ctx)
	})
}

// confirmHandler godoc
// @Summary Confirmar la cita
// @Description Envía la cita al backend (a lo más un envío en curso por sesión). 200 succeeded; 502 failed con feedback.error y la confirmación abierta; 422 si el draft dejó de ser válido.
// @Tags appointments
// @Produce json
// @Param sessionID path string true "Session ID"
// @Success 200 {object} View
// @Failure 404 {string} string "session not found"
// @Failure 409 {string} string "submission already in flight"
// @Failure 422 {object} View
// @Failure 502 {object} View
// @Router /appointments/sessions/{sessionID}/confirm [post]
func confirmHandler(svc *Service) http.HandlerFunc {
	return withSession(svc, func(ctx context.Context, sess *Session, _ *http.Request) (View, error) {
		return sess.Confirm(ctx)
	})
}

// cancelHandler godoc
// @Summary Cerrar la confirmación
// @Description Vuelve a editing sin tocar el draft.
// @Tags appointments
// @Produce json
// @Param sessionID path string true "Session ID"
// @Success 200 {object} View
// @Failure 404 {string} string "session not found"
// @Failure 409 {string} string "no confirmation in progress"
// @Router /appointments/sessions/{sessionID}/cancel [post]
func cancelHandler(svc *Service) http.HandlerFunc {
	return withSession(svc, func(ctx context.Context, sess *Session, _ *http.Request) (View, error) {
		return sess.Cancel(ctx)
	})
}

// resetHandler godoc
// @Summary Limpiar el formulario
// @Description Draft por defecto, sin errores, captcha reiniciado.
// @Tags appointments
// @Produce json
// @Param sessionID path string true "Session ID"
// @Success 200 {object} View
// @Failure 404 {string} string "session not found"
// @Failure 409 {string} string "submission already in flight"
// @Router /appointments/sessions/{sessionID}/reset [post]
func resetHandler(svc *Service) http.HandlerFunc {
	return withSession(svc, func(ctx context.Context, sess *Session, _ *http.Request) (View, error) {
		return sess.Reset(ctx)
	})
}

// withSession resuelve {sessionID} y escribe la vista o el error.
func withSession(svc *Service, fn func(ctx context.Context, sess *Session, r *http.Request) (View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			http.Error(w, "could not load session", http.StatusInternalServerError)
			return
		}

		v, err := fn(r.Context(), sess, r)
		if err != nil {
			writeError(w, v, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func writeError(w http.ResponseWriter, v View, err error) {
	switch {
	case errors.Is(err, ErrInvalidDraft):
		writeJSON(w, http.StatusUnprocessableEntity, v)
	case errors.Is(err, ErrSubmissionFailed):
		writeJSON(w, http.StatusBadGateway, v)
	case errors.Is(err, ErrSessionClosed), errors.Is(err, ErrNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, ErrUnknownField), errors.Is(err, ErrInvalidValue):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrSubmissionInFlight), errors.Is(err, ErrFormLocked), errors.Is(err, ErrNotReviewing):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		http.Error(w, "request cancelled", http.StatusGatewayTimeout)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseCaptchaEvent(req captchaEventRequest) (captcha.Event, bool) {
	switch captcha.EventKind(strings.TrimSpace(req.Event)) {
	case captcha.EventSolved:
		if strings.TrimSpace(req.Token) == "" {
			return captcha.Event{}, false
		}
		return captcha.Event{Kind: captcha.EventSolved, Token: req.Token}, true
	case captcha.EventError:
		return captcha.Event{Kind: captcha.EventError}, true
	case captcha.EventExpired:
		return captcha.Event{Kind: captcha.EventExpired}, true
	default:
		return captcha.Event{}, false
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
