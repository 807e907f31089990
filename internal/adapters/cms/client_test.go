package cms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vet-clinic-web/internal/domain/appointments"
	"vet-clinic-web/internal/domain/catalog"
	"vet-clinic-web/internal/platform/httpclient"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil)
	require.NoError(t, err)
	return c
}

func TestClient_ListServices(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/services", r.URL.Path)
		_, _ = io.WriteString(w, `{"docs":[{"id":1,"title":"Consulta","price":25000},{"id":"vac","title":"Vacuna","price":15000,"icon":"syringe"}]}`)
	}))

	got, err := c.ListServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.ServiceEntry{
		{ID: "1", Title: "Consulta", Price: 25000},
		{ID: "vac", Title: "Vacuna", Price: 15000, Icon: "syringe"},
	}, got)
}

func TestClient_WeekAvailability(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/availability/week", r.URL.Path)
		_, _ = io.WriteString(w, `{"2025-11-07":[{"hour":"09:00","availability":true},{"hour":"10:00","availability":false}]}`)
	}))

	m, err := c.WeekAvailability(context.Background())
	require.NoError(t, err)
	assert.True(t, m.Bookable("2025-11-07", "09:00"))
	assert.False(t, m.Bookable("2025-11-07", "10:00"))
}

func TestClient_GetProductNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/42", r.URL.Path)
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))

	_, err := c.GetProduct(context.Background(), "42")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestClient_SubmitAppointment(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/appointments", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"message":"Cita agendada"}`)
	}))

	body, err := c.SubmitAppointment(context.Background(), appointments.Payload{
		PetType:  "dog",
		Services: []appointments.ServiceRef{"3"},
		Date:     "2025-11-07",
		Time:     "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Cita agendada", httpclient.MessageFromBody(body, ""))
	assert.Equal(t, []any{float64(3)}, got["services"])
	assert.Equal(t, "09:00", got["time"])
}

func TestClient_SubmitAppointmentRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message":"Horario ocupado"}`)
	}))

	_, err := c.SubmitAppointment(context.Background(), appointments.Payload{})
	require.ErrorIs(t, err, ErrCMSUpstream)
	assert.Equal(t, "Horario ocupado", httpclient.ErrorMessage(err, "fallback"))
}

func TestClient_NotConfigured(t *testing.T) {
	c, err := NewClient(Config{}, nil)
	require.NoError(t, err)
	assert.False(t, c.IsConfigured())

	_, err = c.ListServices(context.Background())
	assert.ErrorIs(t, err, ErrCMSNotConfigured)
	_, err = c.SubmitAppointment(context.Background(), appointments.Payload{})
	assert.ErrorIs(t, err, ErrCMSNotConfigured)
}
