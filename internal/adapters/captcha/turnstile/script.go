package turnstile

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"vet-clinic-web/internal/platform/httpclient"
)

const DefaultScriptURL = "https://challenges.cloudflare.com/turnstile/v0/api.js"

var ErrEmptyScript = errors.New("turnstile: empty script")

// ScriptFetcher descarga api.js para comprobar que el proveedor responde.
type ScriptFetcher struct {
	http *httpclient.Client
}

func NewScriptFetcher(c *httpclient.Client) *ScriptFetcher {
	if c == nil {
		c = httpclient.New(0)
	}
	return &ScriptFetcher{http: c}
}

func (f *ScriptFetcher) FetchScript(ctx context.Context, url string) error {
	if url == "" {
		url = DefaultScriptURL
	}
	body, err := f.http.Do(ctx, http.MethodGet, url, map[string]string{"Accept": "application/javascript, */*"}, nil)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyScript
	}
	return nil
}
