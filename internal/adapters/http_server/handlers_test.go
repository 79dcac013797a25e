package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "alem_concierge/internal/adapters/http_server"
	redisad "alem_concierge/internal/adapters/redis"
	"alem_concierge/internal/app"
	"alem_concierge/internal/booking"
	"alem_concierge/internal/catalog"
	"alem_concierge/internal/contact"
	"alem_concierge/internal/domain"
	"alem_concierge/internal/page"
	"alem_concierge/internal/reveal"
)

// ---- fakes ----

type memLeads struct {
	mu    sync.Mutex
	leads []domain.Lead
	err   error
}

func (m *memLeads) InsertLead(ctx context.Context, l domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.leads = append(m.leads, l)
	return nil
}
func (m *memLeads) MarkDelivered(ctx context.Context, id string) error { return nil }
func (m *memLeads) MarkAttempt(ctx context.Context, id string, s domain.LeadStatus, reason string) error {
	return nil
}
func (m *memLeads) GetLead(ctx context.Context, id string) (domain.Lead, error) {
	return domain.Lead{}, domain.ErrNotFound
}
func (m *memLeads) ListPending(ctx context.Context, limit int) ([]domain.Lead, error) {
	return nil, nil
}

// ---- harness ----

type env struct {
	h     http.Handler
	leads *memLeads
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	leads := &memLeads{}
	s := httpserver.New()
	s.MountHandlers(&httpserver.Handlers{
		Catalog:        cat,
		Sessions:       app.NewSessionService(page.NewController(cat, nil), cache, leads, time.Hour),
		Contact:        contact.NewInfo("351912345678", "concierge@alem.pt"),
		WhatsApp:       "351912345678",
		CarouselPeriod: time.Hour,
	})
	return &env{h: s.Mux(), leads: leads}
}

func (e *env) do(t *testing.T, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	e.h.ServeHTTP(rr, req)
	return rr
}

type viewResp struct {
	ID            string                         `json:"id"`
	Scrolled      bool                           `json:"scrolled"`
	HeroOffset    float64                        `json:"hero_offset"`
	MenuOpen      bool                           `json:"menu_open"`
	Section       string                         `json:"section"`
	Filter        domain.Category                `json:"filter"`
	ActiveService *int                           `json:"active_service"`
	ActiveFAQ     *int                           `json:"active_faq"`
	Booking       booking.Wizard                 `json:"booking"`
	Services      []domain.ServiceOffering       `json:"services"`
	Modal         *domain.ServiceOffering        `json:"modal"`
	Presentations map[string]reveal.Presentation `json:"presentations"`
	Fired         bool                           `json:"fired"`
}

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) viewResp {
	t.Helper()
	var v viewResp
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (e *env) newSession(t *testing.T) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	v := decodeView(t, rr)
	require.NotEmpty(t, v.ID)
	assert.Equal(t, "/v1/sessions/"+v.ID, rr.Header().Get("Location"))
	return v.ID
}

// ---- catalog ----

func TestCatalog_ETagRoundTrip(t *testing.T) {
	e := newEnv(t)

	rr := e.do(t, http.MethodGet, "/v1/catalog/packages", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var pkgs []domain.Package
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pkgs))
	assert.Len(t, pkgs, 3)

	rr = e.do(t, http.MethodGet, "/v1/catalog/packages", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Equal(t, etag, rr.Header().Get("ETag"))
	assert.Empty(t, rr.Body.Bytes())
}

func TestCatalog_ServicesByCategory(t *testing.T) {
	e := newEnv(t)
	ids := func(path string) []int {
		rr := e.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var ss []domain.ServiceOffering
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ss))
		out := []int{}
		for _, s := range ss {
			out = append(out, s.ID)
		}
		return out
	}

	assert.Len(t, ids("/v1/catalog/services"), 12)
	assert.Len(t, ids("/v1/catalog/services?category=all"), 12)
	assert.Equal(t, []int{2, 6, 12}, ids("/v1/catalog/services?category=dining"))
	assert.Equal(t, []int{}, ids("/v1/catalog/services?category=submarines"))
}

func TestCatalog_ServiceByID(t *testing.T) {
	e := newEnv(t)

	rr := e.do(t, http.MethodGet, "/v1/catalog/services/3", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var s domain.ServiceOffering
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, "Yacht Charter", s.Title)

	rr = e.do(t, http.MethodGet, "/v1/catalog/services/99", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = e.do(t, http.MethodGet, "/v1/catalog/services/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBookingOptions(t *testing.T) {
	e := newEnv(t)
	rr := e.do(t, http.MethodGet, "/v1/booking/options", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Steps    int                    `json:"steps"`
		Guests   []int                  `json:"guests"`
		Budgets  []booking.BudgetOption `json:"budgets"`
		Services []struct{ ID int }     `json:"services"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, 3, out.Steps)
	assert.Equal(t, booking.GuestOptions, out.Guests)
	assert.Len(t, out.Budgets, 4)
	assert.Len(t, out.Services, 12)
}

func TestContact(t *testing.T) {
	e := newEnv(t)

	rr := e.do(t, http.MethodGet, "/v1/contact", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var info contact.Info
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, "+351 912 345 678", info.Phone)
	assert.Equal(t, "concierge@alem.pt", info.Email)

	rr = e.do(t, http.MethodGet, "/v1/contact/whatsapp?text=Hello%20there", nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://wa.me/351912345678?text=Hello%20there", rr.Header().Get("Location"))

	rr = e.do(t, http.MethodGet, "/v1/contact/whatsapp?text=Tom%20%26%20Jerry", nil)
	assert.Equal(t, "https://wa.me/351912345678?text=Tom%20%26%20Jerry", rr.Header().Get("Location"))

	rr = e.do(t, http.MethodGet, "/v1/contact/whatsapp", nil)
	assert.Equal(t, contact.WhatsAppLink("351912345678", contact.DefaultGreeting), rr.Header().Get("Location"))
}

// ---- sessions ----

func TestSession_PageInteractions(t *testing.T) {
	e := newEnv(t)
	sid := e.newSession(t)
	base := "/v1/sessions/" + sid

	v := decodeView(t, e.do(t, http.MethodPost, base+"/scroll", map[string]any{"y": 200}))
	assert.True(t, v.Scrolled)
	assert.InDelta(t, 70.0, v.HeroOffset, 1e-9)

	v = decodeView(t, e.do(t, http.MethodPost, base+"/menu", nil))
	assert.True(t, v.MenuOpen)
	v = decodeView(t, e.do(t, http.MethodPost, base+"/navigate", map[string]any{"section": "faq"}))
	assert.False(t, v.MenuOpen)
	assert.Equal(t, "faq", v.Section)

	rr := e.do(t, http.MethodPost, base+"/navigate", map[string]any{"section": "basement"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	v = decodeView(t, e.do(t, http.MethodPost, base+"/filter", map[string]any{"category": "wellness"}))
	assert.Equal(t, domain.CategoryWellness, v.Filter)
	for _, s := range v.Services {
		assert.Equal(t, domain.CategoryWellness, s.Category)
	}
	rr = e.do(t, http.MethodGet, base+"/services", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var ss []domain.ServiceOffering
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ss))
	assert.Equal(t, len(v.Services), len(ss))

	v = decodeView(t, e.do(t, http.MethodPost, base+"/modal", map[string]any{"service_id": 3}))
	require.NotNil(t, v.Modal)
	assert.Equal(t, 3, v.Modal.ID)
	v = decodeView(t, e.do(t, http.MethodPost, base+"/modal/book", nil))
	assert.Nil(t, v.Modal)
	assert.Equal(t, "booking", v.Section)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, base+"/modal", map[string]any{"service_id": 99}).Code)
	v = decodeView(t, e.do(t, http.MethodPost, base+"/modal", map[string]any{"service_id": 5}))
	require.NotNil(t, v.ActiveService)
	v = decodeView(t, e.do(t, http.MethodDelete, base+"/modal", nil))
	assert.Nil(t, v.ActiveService)

	v = decodeView(t, e.do(t, http.MethodPost, base+"/faq/2", nil))
	require.NotNil(t, v.ActiveFAQ)
	assert.Equal(t, 2, *v.ActiveFAQ)
	v = decodeView(t, e.do(t, http.MethodPost, base+"/faq/2", nil))
	assert.Nil(t, v.ActiveFAQ)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, base+"/faq/6", nil).Code)

	v = decodeView(t, e.do(t, http.MethodPost, base+"/reveal", map[string]any{"block": "faq", "fraction": 0.05}))
	assert.False(t, v.Fired)
	assert.Equal(t, 0.0, v.Presentations["faq"].Opacity)
	v = decodeView(t, e.do(t, http.MethodPost, base+"/reveal", map[string]any{"block": "faq", "fraction": 0.5}))
	assert.True(t, v.Fired)
	assert.Equal(t, 1.0, v.Presentations["faq"].Opacity)
	v = decodeView(t, e.do(t, http.MethodPost, base+"/reveal", map[string]any{"block": "faq", "fraction": 0}))
	assert.False(t, v.Fired, "a fired block stays fired")
	assert.Equal(t, 1.0, v.Presentations["faq"].Opacity)
}

func TestSession_Unknown(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/v1/sessions/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/v1/sessions/nope/menu", nil).Code)
}

func TestSession_Delete(t *testing.T) {
	e := newEnv(t)
	sid := e.newSession(t)
	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/v1/sessions/"+sid, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/v1/sessions/"+sid, nil).Code)
}

func TestSession_BadBody(t *testing.T) {
	e := newEnv(t)
	sid := e.newSession(t)
	rr := e.do(t, http.MethodPost, "/v1/sessions/"+sid+"/scroll", map[string]any{"x": 1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// ---- booking ----

func fillDraft(t *testing.T, e *env, base string) {
	t.Helper()
	rr := e.do(t, http.MethodPatch, base+"/booking/fields", map[string]string{
		"name": "Jane Doe", "email": "jane@example.com", "phone": "+1 555 0100",
		"arrival": "2026-06-01", "departure": "2026-06-05", "guests": "4",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestBooking_WizardFlow(t *testing.T) {
	e := newEnv(t)
	sid := e.newSession(t)
	base := "/v1/sessions/" + sid

	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPost, base+"/booking/retreat", nil).Code)
	fillDraft(t, e, base)

	v := decodeView(t, e.do(t, http.MethodPost, base+"/booking/advance", nil))
	assert.Equal(t, 2, v.Booking.Step)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, base+"/booking/services/4", nil).Code)
	v = decodeView(t, e.do(t, http.MethodPost, base+"/booking/services/1", nil))
	assert.Equal(t, []int{1, 4}, v.Booking.Draft.Services.IDs())
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, base+"/booking/services/77", nil).Code)

	v = decodeView(t, e.do(t, http.MethodPost, base+"/booking/advance", nil))
	assert.Equal(t, 3, v.Booking.Step)
	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPost, base+"/booking/advance", nil).Code)

	rr := e.do(t, http.MethodPost, base+"/booking/submit", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Session viewResp `json:"session"`
		LeadID  string   `json:"lead_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.True(t, out.Session.Booking.Submitted)
	require.Len(t, e.leads.leads, 1)
	assert.Equal(t, out.LeadID, e.leads.leads[0].ID)
	assert.Equal(t, "4", e.leads.leads[0].Guests)
	assert.Equal(t, []int{1, 4}, e.leads.leads[0].ServiceIDs)

	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPost, base+"/booking/submit", nil).Code)
	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPatch, base+"/booking/fields", map[string]string{"name": "x"}).Code)
	assert.Len(t, e.leads.leads, 1)
}

func TestBooking_SubmitInvalid(t *testing.T) {
	e := newEnv(t)
	sid := e.newSession(t)
	base := "/v1/sessions/" + sid
	e.do(t, http.MethodPost, base+"/booking/advance", nil)
	e.do(t, http.MethodPost, base+"/booking/advance", nil)
	e.do(t, http.MethodPatch, base+"/booking/fields", map[string]string{"name": "Jane", "email": "nope"})

	rr := e.do(t, http.MethodPost, base+"/booking/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var p struct {
		Status int               `json:"status"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, map[string]string{
		"email":     booking.MsgInvalidEmail,
		"phone":     booking.MsgRequired,
		"arrival":   booking.MsgRequired,
		"departure": booking.MsgRequired,
	}, p.Errors)

	v := decodeView(t, e.do(t, http.MethodGet, base, nil))
	assert.Equal(t, 3, v.Booking.Step)
	assert.Len(t, v.Booking.Errors, 4)
	assert.Empty(t, e.leads.leads)
}

func TestBooking_SubmitRules(t *testing.T) {
	e := newEnv(t)
	sid := e.newSession(t)
	base := "/v1/sessions/" + sid
	fillDraft(t, e, base)

	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPost, base+"/booking/submit", nil).Code, "only from the last step")

	e.do(t, http.MethodPost, base+"/booking/advance", nil)
	e.do(t, http.MethodPost, base+"/booking/advance", nil)
	e.leads.err = errors.New("db down")
	assert.Equal(t, http.StatusServiceUnavailable, e.do(t, http.MethodPost, base+"/booking/submit", nil).Code)

	e.leads.err = nil
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodPost, base+"/booking/submit", nil).Code)
}

func TestBooking_UnknownFieldRejectsPatch(t *testing.T) {
	e := newEnv(t)
	sid := e.newSession(t)
	base := "/v1/sessions/" + sid

	rr := e.do(t, http.MethodPatch, base+"/booking/fields", map[string]string{"name": "Jane", "shoe": "42"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	v := decodeView(t, e.do(t, http.MethodGet, base, nil))
	assert.Empty(t, v.Booking.Draft.Name)
}

func TestBooking_OverlongFieldRejectsPatch(t *testing.T) {
	e := newEnv(t)
	sid := e.newSession(t)
	base := "/v1/sessions/" + sid

	rr := e.do(t, http.MethodPatch, base+"/booking/fields", map[string]string{
		"email": "jane@example.com",
		"name":  strings.Repeat("x", 256),
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	v := decodeView(t, e.do(t, http.MethodGet, base, nil))
	assert.Empty(t, v.Booking.Draft.Email, "the whole patch is rejected")
	assert.Empty(t, v.Booking.Draft.Name)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	rr := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}
