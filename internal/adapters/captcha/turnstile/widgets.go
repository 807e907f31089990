package turnstile

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"vet-clinic-web/internal/domain/captcha"
)

var (
	ErrMissingSiteKey = errors.New("turnstile: site key required")
	ErrUnknownWidget  = errors.New("turnstile: unknown widget")
)

type widget struct {
	container string
	opts      captcha.RenderOptions
	resets    int
}

// Widgets es el registro de widgets renderizados. El navegador reporta los
// callbacks reales y Dispatch los entrega, en el mismo goroutine, a los
// callbacks registrados en Render.
type Widgets struct {
	mu   sync.Mutex
	byID map[string]*widget
}

func NewWidgets() *Widgets {
	return &Widgets{byID: make(map[string]*widget)}
}

func (w *Widgets) Render(_ context.Context, container string, opts captcha.RenderOptions) (string, error) {
	if strings.TrimSpace(opts.SiteKey) == "" {
		return "", ErrMissingSiteKey
	}

	id := uuid.NewString()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.byID[id] = &widget{container: container, opts: opts}
	return id, nil
}

func (w *Widgets) Reset(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	wd, ok := w.byID[id]
	if !ok {
		return ErrUnknownWidget
	}
	wd.resets++
	return nil
}

func (w *Widgets) Remove(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.byID, id)
}

// Dispatch invoca el callback del widget para ev.
func (w *Widgets) Dispatch(id string, ev captcha.Event) error {
	w.mu.Lock()
	wd, ok := w.byID[id]
	var opts captcha.RenderOptions
	if ok {
		opts = wd.opts
	}
	w.mu.Unlock()

	if !ok {
		return ErrUnknownWidget
	}

	switch ev.Kind {
	case captcha.EventSolved:
		if opts.OnSolved != nil {
			opts.OnSolved(ev.Token)
		}
	case captcha.EventError:
		if opts.OnError != nil {
			opts.OnError()
		}
	case captcha.EventExpired:
		if opts.OnExpired != nil {
			opts.OnExpired()
		}
	default:
		return errors.New("turnstile: unsupported event " + string(ev.Kind))
	}
	return nil
}

// Resets cuenta los reset pedidos para id (0 si no existe).
func (w *Widgets) Resets(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if wd, ok := w.byID[id]; ok {
		return wd.resets
	}
	return 0
}

// Len es la cantidad de widgets vivos.
func (w *Widgets) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.byID)
}
