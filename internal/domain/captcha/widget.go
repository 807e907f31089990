package captcha

import (
	"context"

	"vet-clinic-web/internal/platform/logger"
)

// Mensajes de error que ve el usuario en el campo del captcha.
const (
	MsgRequired   = "Resuelve el captcha."
	MsgWidgetErr  = "Error al cargar el captcha."
	MsgExpired    = "Captcha expirado. Vuelve a intentarlo."
	MsgLoadFailed = "No se pudo cargar el captcha."
)

// EventKind identifica un callback del widget.
type EventKind string

const (
	EventSolved     EventKind = "solved"
	EventError      EventKind = "error"
	EventExpired    EventKind = "expired"
	EventLoadFailed EventKind = "load_failed"
)

// Event es lo que el widget empuja hacia el estado del formulario.
type Event struct {
	Kind  EventKind
	Token string // solo en EventSolved
}

// Sink recibe los eventos del widget (la sesión del formulario lo implementa).
type Sink interface {
	PushCaptcha(ev Event)
}

// RenderOptions son las opciones del render imperativo del proveedor.
type RenderOptions struct {
	SiteKey string
	Theme   string
	Retry   string

	OnSolved  func(token string)
	OnError   func()
	OnExpired func()
}

// Provider es la API imperativa del proveedor una vez cargado el script.
type Provider interface {
	Render(ctx context.Context, container string, opts RenderOptions) (widgetID string, err error)
	Reset(widgetID string) error
	Remove(widgetID string)
}

// Widget es un widget renderizado y ligado a un contenedor.
type Widget struct {
	ID       string
	provider Provider
}

// Reset pide un token nuevo. Un widget nil (no montado) no hace nada.
func (w *Widget) Reset() error {
	if w == nil || w.provider == nil {
		return nil
	}
	return w.provider.Reset(w.ID)
}

// Remove libera el widget en el proveedor (al desmontar el formulario).
func (w *Widget) Remove() {
	if w == nil || w.provider == nil {
		return
	}
	w.provider.Remove(w.ID)
}

// Adapter conecta el proveedor con el formulario: carga el script, renderiza y
// traduce los tres callbacks en eventos hacia el Sink.
type Adapter struct {
	loader   *Loader
	provider Provider
	siteKey  string
	log      logger.Logger
}

func NewAdapter(loader *Loader, provider Provider, siteKey string, log logger.Logger) *Adapter {
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{loader: loader, provider: provider, siteKey: siteKey, log: log}
}

func (a *Adapter) SiteKey() string {
	return a.siteKey
}

// Mount carga el script (una vez por proceso) y renderiza un widget en container.
// Si la carga o el render fallan, empuja EventLoadFailed al sink y devuelve nil: el caller no recibe error.
func (a *Adapter) Mount(ctx context.Context, container string, sink Sink) *Widget {
	if err := a.loader.Load(ctx); err != nil {
		a.log.Warn("captcha script load failed", logger.Fields{"container": container, "err": err})
		sink.PushCaptcha(Event{Kind: EventLoadFailed})
		return nil
	}

	id, err := a.provider.Render(ctx, container, RenderOptions{
		SiteKey: a.siteKey,
		Theme:   "auto",
		Retry:   "auto",
		OnSolved: func(token string) {
			sink.PushCaptcha(Event{Kind: EventSolved, Token: token})
		},
		OnError: func() {
			sink.PushCaptcha(Event{Kind: EventError})
		},
		OnExpired: func() {
			sink.PushCaptcha(Event{Kind: EventExpired})
		},
	})
	if err != nil {
		a.log.Warn("captcha render failed", logger.Fields{"container": container, "err": err})
		sink.PushCaptcha(Event{Kind: EventLoadFailed})
		return nil
	}

	return &Widget{ID: id, provider: a.provider}
}
