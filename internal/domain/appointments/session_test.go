package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vet-clinic-web/internal/domain/availability"
	"vet-clinic-web/internal/domain/captcha"
	"vet-clinic-web/internal/domain/catalog"
	"vet-clinic-web/internal/domain/submissions"
	"vet-clinic-web/internal/platform/httpclient"
)

// --- fakes ---

type fakeCatalog struct {
	c   catalog.Catalog
	err error
}

func (f fakeCatalog) Services(context.Context) (catalog.Catalog, error) { return f.c, f.err }

type fakeAvailability struct {
	m    availability.Map
	err  error
	gate chan struct{}
}

func (f fakeAvailability) Fetch(context.Context) (availability.Map, error) {
	if f.gate != nil {
		<-f.gate
	}
	return f.m, f.err
}

type fakeSubmitter struct {
	mu      sync.Mutex
	calls   atomic.Int32
	results []submitResult
	got     []Payload
	gate    chan struct{}
}

type submitResult struct {
	body []byte
	err  error
}

func (f *fakeSubmitter) SubmitAppointment(_ context.Context, p Payload) ([]byte, error) {
	n := int(f.calls.Add(1))
	f.mu.Lock()
	f.got = append(f.got, p)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if n > len(f.results) {
		return []byte(`"ok"`), nil
	}
	r := f.results[n-1]
	return r.body, r.err
}

func (f *fakeSubmitter) payloads() []Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Payload(nil), f.got...)
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []string
}

func (f *fakeRecorder) Record(_ context.Context, kind submissions.Kind, ref string, ok bool, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := "failed"
	if ok {
		status = "succeeded"
	}
	f.recs = append(f.recs, string(kind)+"|"+ref+"|"+status+"|"+msg)
	return nil
}

func (f *fakeRecorder) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.recs...)
}

type okFetcher struct{ err error }

func (f okFetcher) FetchScript(context.Context, string) error { return f.err }

type fakeProvider struct {
	mu      sync.Mutex
	opts    captcha.RenderOptions
	resets  []string
	removed []string
}

func (p *fakeProvider) Render(_ context.Context, _ string, opts captcha.RenderOptions) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts = opts
	return "w-1", nil
}

func (p *fakeProvider) Reset(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets = append(p.resets, id)
	return nil
}

func (p *fakeProvider) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, id)
}

func (p *fakeProvider) solve(token string) {
	p.mu.Lock()
	cb := p.opts.OnSolved
	p.mu.Unlock()
	cb(token)
}

func (p *fakeProvider) expire() {
	p.mu.Lock()
	cb := p.opts.OnExpired
	p.mu.Unlock()
	cb()
}

func (p *fakeProvider) resetIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.resets...)
}

func (p *fakeProvider) removedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.removed...)
}

type mapRepo struct {
	mu   sync.Mutex
	byID map[string]*Session
}

func newMapRepo() *mapRepo { return &mapRepo{byID: map[string]*Session{}} }

func (r *mapRepo) Save(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = s
	return nil
}

func (r *mapRepo) Get(_ context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *mapRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *mapRepo) List(context.Context) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out, nil
}

// --- harness ---

type harness struct {
	svc       *Service
	repo      *mapRepo
	submitter *fakeSubmitter
	provider  *fakeProvider
	recorder  *fakeRecorder
}

type harnessOpts struct {
	catalog      fakeCatalog
	availability fakeAvailability
	fetchErr     error
}

func newHarness(t *testing.T, opts *harnessOpts) *harness {
	t.Helper()
	if opts == nil {
		opts = &harnessOpts{
			catalog:      fakeCatalog{c: testCatalog()},
			availability: fakeAvailability{m: testAvailability()},
		}
	}

	h := &harness{
		repo:      newMapRepo(),
		submitter: &fakeSubmitter{},
		provider:  &fakeProvider{},
		recorder:  &fakeRecorder{},
	}

	projector := availability.NewProjector(time.UTC)
	projector.Now = func() time.Time { return time.Date(2025, 11, 7, 8, 0, 0, 0, time.UTC) }

	h.svc = NewService(h.repo, Deps{
		Catalog:      opts.catalog,
		Availability: opts.availability,
		Captcha:      captcha.NewAdapter(captcha.NewLoader(okFetcher{err: opts.fetchErr}, "api.js"), h.provider, "site-key", nil),
		Submitter:    h.submitter,
		Recorder:     h.recorder,
		Projector:    projector,
	})
	return h
}

func (h *harness) open(t *testing.T) *Session {
	t.Helper()
	sess, err := h.svc.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	return sess
}

func ready(t *testing.T, sess *Session) View {
	t.Helper()
	var v View
	require.Eventually(t, func() bool {
		var err error
		v, err = sess.View(context.Background())
		return err == nil && !v.Loading && v.Captcha.WidgetID != ""
	}, time.Second, 5*time.Millisecond)
	return v
}

func set(t *testing.T, sess *Session, f Field, v any) View {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	view, err := sess.SetField(context.Background(), f, raw)
	require.NoError(t, err)
	return view
}

// fill deja el formulario válido y con el captcha resuelto.
func fill(t *testing.T, h *harness, sess *Session) View {
	t.Helper()
	set(t, sess, FieldPetSex, PetSexMale)
	set(t, sess, FieldPetName, "Milo")
	set(t, sess, FieldServices, []string{"1", "2"})
	set(t, sess, FieldSlot, "2025-11-07::09:00")
	set(t, sess, FieldRUT, "12.345.678-5")
	set(t, sess, FieldFirstName, "Ana")
	set(t, sess, FieldLastName, "Pérez")
	set(t, sess, FieldPhone, "+56 9 1234 5678")
	set(t, sess, FieldEmail, "ana@example.cl")
	set(t, sess, FieldWeight, 8.2)
	h.provider.solve("tok-1")

	v, err := sess.View(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", v.Draft.CaptchaToken)
	require.Empty(t, v.Errors)
	return v
}

// --- tests ---

func TestSession_OpenLoadsDataAndMountsCaptcha(t *testing.T) {
	h := newHarness(t, nil)
	sess := h.open(t)

	v := ready(t, sess)
	assert.Equal(t, PhaseEditing, v.Phase)
	assert.Equal(t, NewDraft(), v.Draft)
	assert.Len(t, v.Services, 2)
	require.Len(t, v.Days, 1)
	assert.Equal(t, "Viernes 07/11", v.Days[0].Label)
	assert.Equal(t, "w-1", v.Captcha.WidgetID)
	assert.Equal(t, "site-key", v.Captcha.SiteKey)
	assert.Equal(t, "turnstile-"+sess.ID, v.Captcha.Container)
}

func TestSession_FetchErrorsAreSurfacedNotFatal(t *testing.T) {
	h := newHarness(t, &harnessOpts{
		catalog:      fakeCatalog{err: errors.New("cms down")},
		availability: fakeAvailability{err: errors.New("cms down")},
	})
	sess := h.open(t)

	v := ready(t, sess)
	assert.Equal(t, MsgServicesLoadFailed, v.ServicesError)
	assert.Equal(t, MsgSlotsLoadFailed, v.AvailabilityError)
	assert.Empty(t, v.Days)

	v = set(t, sess, FieldPetName, "Milo")
	assert.Equal(t, "Milo", v.Draft.PetName)
}

func TestSession_CaptchaLoadFailureIsAFieldError(t *testing.T) {
	h := newHarness(t, &harnessOpts{
		catalog:      fakeCatalog{c: testCatalog()},
		availability: fakeAvailability{m: testAvailability()},
		fetchErr:     errors.New("blocked"),
	})
	sess := h.open(t)

	require.Eventually(t, func() bool {
		v, err := sess.View(context.Background())
		return err == nil && v.Errors[FieldCaptchaToken] == captcha.MsgLoadFailed
	}, time.Second, 5*time.Millisecond)
}

func TestSession_SetFieldValidatesOnlyThatField(t *testing.T) {
	h := newHarness(t, nil)
	sess := h.open(t)
	ready(t, sess)

	v := set(t, sess, FieldPetName, "  ")
	assert.Equal(t, FieldErrors{FieldPetName: MsgPetName}, v.Errors)

	v = set(t, sess, FieldPetName, "Milo")
	assert.Empty(t, v.Errors)

	// horario reservado: sin error hasta el submit
	v = set(t, sess, FieldSlot, "2025-11-07::10:00")
	assert.Empty(t, v.Errors)

	_, err := sess.SetField(context.Background(), Field("owner"), []byte(`"x"`))
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = sess.SetField(context.Background(), FieldCaptchaToken, []byte(`"forged"`))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSession_ToggleServiceAndTotal(t *testing.T) {
	h := newHarness(t, nil)
	sess := h.open(t)
	ready(t, sess)

	v, err := sess.ToggleService(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, v.Draft.SelectedServiceIDs)
	assert.Equal(t, int64(25000), v.TotalPrice)

	v, err = sess.ToggleService(context.Background(), "99")
	require.NoError(t, err)
	assert.Equal(t, int64(25000), v.TotalPrice, "unknown ids count 0")

	v, err = sess.ToggleService(context.Background(), "1")
	require.NoError(t, err)
	v, err = sess.ToggleService(context.Background(), "99")
	require.NoError(t, err)
	assert.Empty(t, v.Draft.SelectedServiceIDs)
	assert.Equal(t, MsgServices, v.Errors[FieldServices])
}

func TestSession_SubmitWithErrorsStaysEditing(t *testing.T) {
	h := newHarness(t, nil)
	sess := h.open(t)
	ready(t, sess)

	v, err := sess.Submit(context.Background())
	require.ErrorIs(t, err, ErrInvalidDraft)
	assert.Equal(t, PhaseEditing, v.Phase)
	assert.Nil(t, v.Review)
	assert.Equal(t, MsgServices, v.Errors[FieldServices])
	assert.Equal(t, MsgCaptchaRequired, v.Errors[FieldCaptchaToken])
	assert.Zero(t, h.submitter.calls.Load())
}

func TestSession_SubmitBookedSlotBlocks(t *testing.T) {
	h := newHarness(t, nil)
	sess := h.open(t)
	ready(t, sess)
	fill(t, h, sess)
	set(t, sess, FieldSlot, "2025-11-07::10:00")

	v, err := sess.Submit(context.Background())
	require.ErrorIs(t, err, ErrInvalidDraft)
	assert.Equal(t, FieldErrors{FieldSlot: MsgSlotUnavailable}, v.Errors)
}

func TestSession_HappyPath(t *testing.T) {
	h := newHarness(t, nil)
	h.submitter.results = []submitResult{{body: []byte(`{"message":"Cita agendada","id":7}`)}}
	sess := h.open(t)
	ready(t, sess)
	fill(t, h, sess)

	v, err := sess.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseReviewing, v.Phase)
	require.NotNil(t, v.Review)
	assert.Equal(t, "Consulta general", v.Review.Services[0].Title)
	assert.Equal(t, int64(40000), v.Review.TotalPrice)

	_, err = sess.SetField(context.Background(), FieldPetName, []byte(`"Otro"`))
	assert.ErrorIs(t, err, ErrFormLocked)

	v, err = sess.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseSucceeded, v.Phase)
	assert.Equal(t, "Cita agendada", v.Feedback.Success)
	assert.Equal(t, NewDraft(), v.Draft)
	assert.Empty(t, v.Draft.CaptchaToken)
	assert.Nil(t, v.Review)
	assert.Equal(t, 1, v.Captcha.Resets)
	assert.Equal(t, []string{"w-1"}, h.provider.resetIDs())

	p := h.submitter.payloads()
	require.Len(t, p, 1)
	assert.Equal(t, "2025-11-07", p[0].Date)
	assert.Equal(t, "09:00", p[0].Time)
	assert.Equal(t, "tok-1", p[0].CaptchaToken)
	assert.Equal(t, []ServiceRef{"1", "2"}, p[0].Services)

	assert.Equal(t, []string{"appointment|2025-11-07::09:00|succeeded|Cita agendada"}, h.recorder.all())

	// editar después del éxito vuelve a editing
	v = set(t, sess, FieldPetName, "Milo")
	assert.Equal(t, PhaseEditing, v.Phase)
	assert.Empty(t, v.Feedback.Success)
}

func TestSession_EmptySuccessBodyUsesGenericMessage(t *testing.T) {
	h := newHarness(t, nil)
	h.submitter.results = []submitResult{{body: nil}}
	sess := h.open(t)
	ready(t, sess)
	fill(t, h, sess)

	_, err := sess.Submit(context.Background())
	require.NoError(t, err)
	v, err := sess.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MsgSubmitted, v.Feedback.Success)
}

func TestSession_RejectedSubmissionKeepsDraftAndReview(t *testing.T) {
	h := newHarness(t, nil)
	h.submitter.results = []submitResult{
		{err: &httpclient.HTTPError{StatusCode: 409, Body: `{"message":"Horario ocupado"}`}},
		{body: []byte(`"Reserva confirmada"`)},
	}
	sess := h.open(t)
	ready(t, sess)
	before := fill(t, h, sess)

	_, err := sess.Submit(context.Background())
	require.NoError(t, err)

	v, err := sess.Confirm(context.Background())
	require.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, PhaseFailed, v.Phase)
	assert.Equal(t, "Horario ocupado", v.Feedback.Error)
	assert.NotNil(t, v.Review, "confirmation stays open with the error")
	assert.Equal(t, before.Draft, v.Draft)
	assert.Equal(t, "tok-1", v.Draft.CaptchaToken)
	assert.Empty(t, h.provider.resetIDs())

	// reintento con el mismo draft
	v, err = sess.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseSucceeded, v.Phase)
	assert.Equal(t, "Reserva confirmada", v.Feedback.Success)
	assert.Equal(t, int32(2), h.submitter.calls.Load())
}

func TestSession_TransportErrorMessage(t *testing.T) {
	h := newHarness(t, nil)
	h.submitter.results = []submitResult{{err: errors.New("dial tcp: connection refused")}}
	sess := h.open(t)
	ready(t, sess)
	fill(t, h, sess)
	_, err := sess.Submit(context.Background())
	require.NoError(t, err)

	v, err := sess.Confirm(context.Background())
	require.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, "dial tcp: connection refused", v.Feedback.Error)
}

func TestSession_AtMostOneSubmissionInFlight(t *testing.T) {
	h := newHarness(t, nil)
	h.submitter.gate = make(chan struct{})
	sess := h.open(t)
	ready(t, sess)
	fill(t, h, sess)
	_, err := sess.Submit(context.Background())
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		_, err := sess.Confirm(context.Background())
		first <- err
	}()

	require.Eventually(t, func() bool {
		v, err := sess.View(context.Background())
		return err == nil && v.Submitting
	}, time.Second, 5*time.Millisecond)

	_, err = sess.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	_, err = sess.Cancel(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(h.submitter.gate)
	require.NoError(t, <-first)
	assert.Equal(t, int32(1), h.submitter.calls.Load())
}

func TestSession_ConfirmRevalidatesExpiredCaptcha(t *testing.T) {
	h := newHarness(t, nil)
	sess := h.open(t)
	ready(t, sess)
	fill(t, h, sess)
	_, err := sess.Submit(context.Background())
	require.NoError(t, err)

	h.provider.expire()

	v, err := sess.Confirm(context.Background())
	require.ErrorIs(t, err, ErrInvalidDraft)
	assert.Equal(t, PhaseEditing, v.Phase)
	assert.Equal(t, captcha.MsgExpired, v.Errors[FieldCaptchaToken])
	assert.Zero(t, h.submitter.calls.Load())
}

func TestSession_CaptchaCallbacks(t *testing.T) {
	h := newHarness(t, nil)
	sess := h.open(t)
	ready(t, sess)

	h.provider.solve("tok-1")
	v, err := sess.View(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", v.Draft.CaptchaToken)

	sess.PushCaptcha(captcha.Event{Kind: captcha.EventError})
	v, err = sess.View(context.Background())
	require.NoError(t, err)
	assert.Empty(t, v.Draft.CaptchaToken)
	assert.Equal(t, captcha.MsgWidgetErr, v.Errors[FieldCaptchaToken])

	h.provider.solve("tok-2")
	v, err = sess.View(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", v.Draft.CaptchaToken)
	assert.NotContains(t, v.Errors, FieldCaptchaToken)
}

func TestSession_CancelKeepsDraft(t *testing.T) {
	h := newHarness(t, nil)
	sess := h.open(t)
	ready(t, sess)
	before := fill(t, h, sess)

	_, err := sess.Cancel(context.Background())
	assert.ErrorIs(t, err, ErrNotReviewing)

	_, err = sess.Submit(context.Background())
	require.NoError(t, err)

	v, err := sess.Cancel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseEditing, v.Phase)
	assert.Nil(t, v.Review)
	assert.Equal(t, before.Draft, v.Draft)
}

func TestSession_ResetRestoresDefaults(t *testing.T) {
	h := newHarness(t, nil)
	sess := h.open(t)
	ready(t, sess)
	fill(t, h, sess)
	set(t, sess, FieldPetName, "")

	v, err := sess.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NewDraft(), v.Draft)
	assert.Empty(t, v.Errors)
	assert.Equal(t, 1, v.Captcha.Resets)
	assert.Equal(t, []string{"w-1"}, h.provider.resetIDs())
}

func TestSession_ToggleDayExpandsSlots(t *testing.T) {
	avail := availability.Map{"2025-11-08": {}}
	for i := 0; i < 14; i++ {
		avail["2025-11-08"] = append(avail["2025-11-08"], availability.Slot{
			Hour:         time.Date(2025, 11, 8, 8, i*30, 0, 0, time.UTC).Format("15:04"),
			Availability: true,
		})
	}
	h := newHarness(t, &harnessOpts{catalog: fakeCatalog{c: testCatalog()}, availability: fakeAvailability{m: avail}})
	sess := h.open(t)

	v := ready(t, sess)
	require.Len(t, v.Days, 1)
	assert.Len(t, v.Days[0].VisibleSlots, 12)
	assert.Equal(t, 2, v.Days[0].HiddenCount)

	v, err := sess.ToggleDay(context.Background(), "2025-11-08")
	require.NoError(t, err)
	assert.Len(t, v.Days[0].VisibleSlots, 14)
	assert.Zero(t, v.Days[0].HiddenCount)
}

func TestSession_CloseDropsLateResults(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, &harnessOpts{
		catalog:      fakeCatalog{c: testCatalog()},
		availability: fakeAvailability{m: testAvailability(), gate: gate},
	})
	sess := h.open(t)

	require.Eventually(t, func() bool {
		v, err := sess.View(context.Background())
		return err == nil && v.Captcha.WidgetID != ""
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.svc.Close(context.Background(), sess.ID))
	close(gate)

	<-sess.done
	_, err := sess.View(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, []string{"w-1"}, h.provider.removedIDs())

	_, err = h.svc.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSession_CloseDuringSubmissionDoesNotCancelIt(t *testing.T) {
	h := newHarness(t, nil)
	h.submitter.gate = make(chan struct{})
	sess := h.open(t)
	ready(t, sess)
	fill(t, h, sess)
	_, err := sess.Submit(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := sess.Confirm(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return h.submitter.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.svc.Close(context.Background(), sess.ID))
	assert.ErrorIs(t, <-done, ErrSessionClosed)

	close(h.submitter.gate)
	require.Eventually(t, func() bool { return len(h.recorder.all()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestService_SweepExpiresIdleSessions(t *testing.T) {
	h := newHarness(t, nil)
	base := time.Date(2025, 11, 7, 12, 0, 0, 0, time.UTC)
	now := base
	h.svc.now = func() time.Time { return now }

	idle := h.open(t)
	now = base.Add(20 * time.Minute)
	active := h.open(t)

	now = base.Add(35 * time.Minute)
	n, err := h.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, idle.Closed())
	assert.False(t, active.Closed())

	_, err = h.svc.Get(context.Background(), idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.svc.Get(context.Background(), active.ID)
	assert.NoError(t, err)
}
