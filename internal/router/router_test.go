package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	cmsadapter "vet-clinic-web/internal/adapters/cms"
	"vet-clinic-web/internal/adapters/contactapi"
	"vet-clinic-web/internal/middleware"
	"vet-clinic-web/internal/router"
)

type okScript struct{}

func (okScript) FetchScript(context.Context, string) error { return nil }

// fakeBackend hace de CMS y de backend de contacto.
type fakeBackend struct {
	mu       sync.Mutex
	date     string
	booked   []map[string]any
	contacts int
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/services", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"docs":[{"id":1,"title":"Consulta general","price":25000},{"id":"vac","title":"Vacuna","price":15000}]}`)
	})
	mux.HandleFunc("GET /availability/week", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			b.date: []map[string]any{
				{"hour": "09:00", "availability": true},
				{"hour": "10:00", "availability": false},
			},
		})
	})
	mux.HandleFunc("POST /appointments", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode appointment: %v", err)
		}
		b.mu.Lock()
		b.booked = append(b.booked, body)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"message":"Cita agendada"}`)
	})
	mux.HandleFunc("POST /contact-form", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		b.contacts++
		b.mu.Unlock()
		_, _ = io.WriteString(w, `{"message":"Recibido"}`)
	})
	return mux
}

func newServer(t *testing.T) (*httptest.Server, *fakeBackend) {
	t.Helper()

	backend := &fakeBackend{date: time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")}
	upstream := httptest.NewServer(backend.handler(t))
	t.Cleanup(upstream.Close)

	cmsClient, err := cmsadapter.NewClient(cmsadapter.Config{BaseURL: upstream.URL, Timeout: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("cms client: %v", err)
	}
	contactClient, err := contactapi.NewClient(contactapi.Config{BaseURL: upstream.URL, Timeout: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("contact client: %v", err)
	}

	rt := router.NewRouter(router.Options{
		CMS:            cmsClient,
		Contact:        contactClient,
		ScriptFetcher:  okScript{},
		CaptchaSiteKey: "site-key",
		Location:       time.UTC,
		RateLimit:      middleware.RateLimitConfig{PerMinute: 60000, Burst: 1000},
	})
	ts := httptest.NewServer(rt)
	t.Cleanup(ts.Close)

	return ts, backend
}

type sessionView struct {
	ID       string            `json:"id"`
	Phase    string            `json:"phase"`
	Loading  bool              `json:"loading"`
	Errors   map[string]string `json:"errors"`
	Feedback struct {
		Success string `json:"success"`
		Error   string `json:"error"`
	} `json:"feedback"`
	Captcha struct {
		WidgetID string `json:"widgetId"`
	} `json:"captcha"`
	Review *struct {
		TotalPrice int64 `json:"totalPrice"`
	} `json:"review"`
}

func TestHTTP_EndToEnd_BookAppointment(t *testing.T) {
	ts, backend := newServer(t)

	st, body := doReq(t, ts.URL, "POST", "/appointments/sessions", nil)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 opening session, got %d body=%s", st, string(body))
	}
	v := decodeView(t, body)
	base := "/appointments/sessions/" + v.ID

	// Esperar catálogo, disponibilidad y widget
	v = waitFor(t, ts.URL, base, func(v sessionView) bool {
		return !v.Loading && v.Captcha.WidgetID != ""
	})

	fields := map[string]any{
		"petType":            "cat",
		"petSex":             "female",
		"petName":            "Mishi",
		"selectedServiceIds": []string{"1", "vac"},
		"selectedSlot":       backend.date + "::09:00",
		"rut":                "12.345.678-5",
		"firstName":          "Ana",
		"lastName":           "Pérez",
		"phone":              "+56 9 1234 5678",
		"email":              "ana@example.cl",
		"weight":             4.2,
	}
	for f, val := range fields {
		st, body := doReq(t, ts.URL, "PATCH", base+"/fields", map[string]any{"field": f, "value": val})
		if st != http.StatusOK {
			t.Fatalf("expected 200 setting %s, got %d body=%s", f, st, string(body))
		}
	}

	// Sin captcha no abre la revisión
	{
		st, body := doReq(t, ts.URL, "POST", base+"/submit", nil)
		if st != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 without captcha, got %d body=%s", st, string(body))
		}
		if v := decodeView(t, body); v.Errors["captchaToken"] == "" {
			t.Fatalf("expected captcha error, got %+v", v.Errors)
		}
	}

	{
		st, body := doReq(t, ts.URL, "POST", base+"/captcha", map[string]any{"event": "solved", "token": "tok-1"})
		if st != http.StatusOK {
			t.Fatalf("expected 200 on captcha callback, got %d body=%s", st, string(body))
		}
	}

	{
		st, body := doReq(t, ts.URL, "POST", base+"/submit", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 on submit, got %d body=%s", st, string(body))
		}
		v := decodeView(t, body)
		if v.Phase != "reviewing" || v.Review == nil || v.Review.TotalPrice != 40000 {
			t.Fatalf("expected review with total 40000, got %+v", v)
		}
	}

	{
		st, body := doReq(t, ts.URL, "POST", base+"/confirm", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 on confirm, got %d body=%s", st, string(body))
		}
		v := decodeView(t, body)
		if v.Phase != "succeeded" || v.Feedback.Success != "Cita agendada" {
			t.Fatalf("expected success feedback, got %+v", v)
		}
	}

	backend.mu.Lock()
	if len(backend.booked) != 1 {
		backend.mu.Unlock()
		t.Fatalf("expected 1 appointment posted, got %d", len(backend.booked))
	}
	got := backend.booked[0]
	backend.mu.Unlock()
	if got["date"] != backend.date || got["time"] != "09:00" || got["captchaToken"] != "tok-1" {
		t.Fatalf("unexpected payload: %+v", got)
	}

	// Log de envíos
	{
		st, body := doReq(t, ts.URL, "GET", "/submissions/recent", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 listing submissions, got %d", st)
		}
		var out struct {
			Items []map[string]any `json:"items"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("decode submissions: %v body=%s", err, string(body))
		}
		recs := out.Items
		if len(recs) != 1 || recs[0]["kind"] != "appointment" || recs[0]["status"] != "succeeded" {
			t.Fatalf("unexpected submissions: %s", string(body))
		}
	}

	{
		st, _ := doReq(t, ts.URL, "DELETE", base, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 closing session, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "GET", base, nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 after close, got %d", st)
		}
	}
}

func TestHTTP_ContactForm(t *testing.T) {
	ts, backend := newServer(t)

	{
		st, body := doReq(t, ts.URL, "POST", "/contact", map[string]any{
			"name":              "Ana",
			"email":             "no-es-email",
			"message":           "Hola",
			"contactPreference": "email",
		})
		if st != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for invalid email, got %d body=%s", st, string(body))
		}
	}

	{
		st, body := doReq(t, ts.URL, "POST", "/contact", map[string]any{
			"name":              "Ana",
			"email":             "ana@example.cl",
			"message":           "Hola, ¿atienden exóticos?",
			"contactPreference": "email",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 sending contact form, got %d body=%s", st, string(body))
		}
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.contacts != 1 {
		t.Fatalf("expected 1 contact form posted, got %d", backend.contacts)
	}
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	ts, _ := newServer(t)

	st, body := doReq(t, ts.URL, "GET", "/health", nil)
	if st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("expected ok health, got %d %q", st, string(body))
	}

	// Abrir una sesión deja el gauge en 1
	if st, _ := doReq(t, ts.URL, "POST", "/appointments/sessions", nil); st != http.StatusCreated {
		t.Fatalf("expected 201, got %d", st)
	}
	st, body = doReq(t, ts.URL, "GET", "/metrics", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 on /metrics, got %d", st)
	}
	if !strings.Contains(string(body), "vetclinic_appointments_sessions_open 1") {
		t.Fatalf("expected open sessions gauge, got:\n%s", string(body))
	}

	st, _ = doReq(t, ts.URL, "GET", "/services", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 on /services, got %d", st)
	}
}

func waitFor(t *testing.T, baseURL, path string, cond func(sessionView) bool) sessionView {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		st, body := doReq(t, baseURL, "GET", path, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 reading session, got %d body=%s", st, string(body))
		}
		v := decodeView(t, body)
		if cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never settled: %s", string(body))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func decodeView(t *testing.T, body []byte) sessionView {
	t.Helper()
	var v sessionView
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode view: %v body=%s", err, string(body))
	}
	return v
}

func doReq(t *testing.T, baseURL, method, path string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}
