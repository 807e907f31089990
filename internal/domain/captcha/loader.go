package captcha

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrScriptLoad = errors.New("captcha: script load failed")

const defaultLoadTimeout = 15 * time.Second

// ScriptFetcher descarga el script del proveedor (p.ej. Turnstile api.js).
type ScriptFetcher interface {
	FetchScript(ctx context.Context, url string) error
}

// Loader carga el script del proveedor una sola vez por proceso.
// Llamadas concurrentes comparten la carga en curso; el resultado (éxito o error)
// queda memorizado. La carga corre con un contexto desacoplado del caller:
// una vez iniciada no se cancela, el caller solo deja de esperar.
type Loader struct {
	fetcher ScriptFetcher
	url     string
	timeout time.Duration

	group singleflight.Group

	mu      sync.Mutex
	settled bool
	err     error
}

func NewLoader(fetcher ScriptFetcher, url string) *Loader {
	return &Loader{
		fetcher: fetcher,
		url:     url,
		timeout: defaultLoadTimeout,
	}
}

func (l *Loader) Load(ctx context.Context) error {
	if done, err := l.result(); done {
		return err
	}

	ch := l.group.DoChan(l.url, func() (any, error) {
		if done, err := l.result(); done {
			return nil, err
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		var err error
		if l.fetcher == nil {
			err = fmt.Errorf("%w: no fetcher configured", ErrScriptLoad)
		} else if ferr := l.fetcher.FetchScript(loadCtx, l.url); ferr != nil {
			err = fmt.Errorf("%w: %v", ErrScriptLoad, ferr)
		}

		l.mu.Lock()
		l.settled = true
		l.err = err
		l.mu.Unlock()
		return nil, err
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loaded indica si el script ya cargó con éxito.
func (l *Loader) Loaded() bool {
	done, err := l.result()
	return done && err == nil
}

func (l *Loader) result() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settled, l.err
}
