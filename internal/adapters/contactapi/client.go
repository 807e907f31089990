package contactapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vet-clinic-web/internal/domain/contact"
	"vet-clinic-web/internal/platform/httpclient"
	"vet-clinic-web/internal/platform/metrics"
)

var (
	ErrContactNotConfigured = errors.New("contact api not configured")
	ErrContactUpstream      = errors.New("contact api upstream error")
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client es el backend del formulario de contacto.
type Client struct {
	http    *httpclient.Client
	metrics *metrics.Metrics
}

func NewClient(cfg Config, m *metrics.Metrics) (*Client, error) {
	hc, err := httpclient.NewWithBaseURL(strings.TrimSpace(cfg.BaseURL), cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, metrics: m}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http != nil && c.http.BaseURL != ""
}

// SendContactForm: POST /contact-form. En error, el *httpclient.HTTPError queda en la cadena.
func (c *Client) SendContactForm(ctx context.Context, f contact.Form) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrContactNotConfigured
	}

	start := time.Now()
	body, err := c.http.Do(ctx, http.MethodPost, "/contact-form", nil, f)
	c.metrics.ObserveUpstream("contact", err == nil, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContactUpstream, err)
	}
	return body, nil
}
