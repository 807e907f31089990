package cms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vet-clinic-web/internal/domain/appointments"
	"vet-clinic-web/internal/domain/availability"
	"vet-clinic-web/internal/domain/catalog"
	"vet-clinic-web/internal/platform/httpclient"
	"vet-clinic-web/internal/platform/metrics"
)

var (
	ErrCMSNotConfigured = errors.New("cms client not configured")
	ErrCMSUpstream      = errors.New("cms upstream error")
)

const (
	pathServices     = "/api/services"
	pathProducts     = "/api/products"
	pathAvailability = "/availability/week"
	pathAppointments = "/appointments"
)

type Config struct {
	BaseURL string
	Timeout time.Duration

	// AppointmentsPath permite apuntar a /appointment-form en despliegues antiguos.
	AppointmentsPath string
}

// Client habla con el CMS headless (servicios, productos, disponibilidad, citas).
type Client struct {
	http             *httpclient.Client
	appointmentsPath string
	metrics          *metrics.Metrics
}

// NewClient arma el cliente. Con BaseURL vacía el cliente queda sin configurar y
// toda llamada devuelve ErrCMSNotConfigured. m puede ser nil.
func NewClient(cfg Config, m *metrics.Metrics) (*Client, error) {
	hc, err := httpclient.NewWithBaseURL(strings.TrimSpace(cfg.BaseURL), cfg.Timeout)
	if err != nil {
		return nil, err
	}
	p := strings.TrimSpace(cfg.AppointmentsPath)
	if p == "" {
		p = pathAppointments
	}
	return &Client{http: hc, appointmentsPath: "/" + strings.TrimLeft(p, "/"), metrics: m}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http != nil && c.http.BaseURL != ""
}

type docsResponse[T any] struct {
	Docs []T `json:"docs"`
}

// ListServices: GET /api/services -> {docs: [...]}
func (c *Client) ListServices(ctx context.Context) ([]catalog.ServiceEntry, error) {
	var out docsResponse[catalog.ServiceEntry]
	if err := c.getJSON(ctx, "services", pathServices, &out); err != nil {
		return nil, err
	}
	if out.Docs == nil {
		out.Docs = []catalog.ServiceEntry{}
	}
	return out.Docs, nil
}

// ListProducts: GET /api/products -> {docs: [...]}
func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var out docsResponse[catalog.Product]
	if err := c.getJSON(ctx, "products", pathProducts, &out); err != nil {
		return nil, err
	}
	if out.Docs == nil {
		out.Docs = []catalog.Product{}
	}
	return out.Docs, nil
}

// GetProduct: GET /api/products/{id}. 404 -> catalog.ErrNotFound.
func (c *Client) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return catalog.Product{}, catalog.ErrInvalidInput
	}

	var out catalog.Product
	err := c.getJSON(ctx, "product", pathProducts+"/"+url.PathEscape(id), &out)
	var he *httpclient.HTTPError
	if errors.As(err, &he) && he.StatusCode == http.StatusNotFound {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Product{}, err
	}
	return out, nil
}

// WeekAvailability: GET /availability/week -> {fecha: [{hour, availability}]}
func (c *Client) WeekAvailability(ctx context.Context) (availability.Map, error) {
	out := availability.Map{}
	if err := c.getJSON(ctx, "availability", pathAvailability, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitAppointment: POST /appointments. Devuelve el body crudo; en error, el
// *httpclient.HTTPError queda en la cadena para extraer el mensaje.
func (c *Client) SubmitAppointment(ctx context.Context, p appointments.Payload) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrCMSNotConfigured
	}

	start := time.Now()
	body, err := c.http.Do(ctx, http.MethodPost, c.appointmentsPath, nil, p)
	c.metrics.ObserveUpstream("appointments", err == nil, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCMSUpstream, err)
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, resource, path string, out any) error {
	if !c.IsConfigured() {
		return ErrCMSNotConfigured
	}

	start := time.Now()
	err := c.http.DoJSON(ctx, http.MethodGet, path, nil, nil, out)
	c.metrics.ObserveUpstream(resource, err == nil, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCMSUpstream, err)
	}
	return nil
}
