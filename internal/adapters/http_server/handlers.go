// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"alem_concierge/internal/app"
	"alem_concierge/internal/booking"
	"alem_concierge/internal/catalog"
	"alem_concierge/internal/contact"
	"alem_concierge/internal/domain"
	"alem_concierge/internal/page"
)

const maxBodyBytes = 64 << 10

type Handlers struct {
	Catalog        *catalog.Catalog
	Sessions       *app.SessionService
	Contact        contact.Info
	WhatsApp       string
	CarouselPeriod time.Duration
}

type problem struct {
	Type   string                  `json:"type"`
	Title  string                  `json:"title"`
	Status int                     `json:"status"`
	Detail string                  `json:"detail,omitempty"`
	Errors domain.ValidationErrors `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/testimonials/carousel", h.carousel)

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(s.timeout))

		r.Get("/v1/catalog/services", h.listServices)
		r.Get("/v1/catalog/services/{id}", h.getService)
		r.Get("/v1/catalog/categories", cached(func() any { return h.Catalog.Categories() }))
		r.Get("/v1/catalog/packages", cached(func() any { return h.Catalog.Packages() }))
		r.Get("/v1/catalog/testimonials", cached(func() any { return h.Catalog.Testimonials() }))
		r.Get("/v1/catalog/faqs", cached(func() any { return h.Catalog.FAQs() }))
		r.Get("/v1/catalog/partners", cached(func() any { return h.Catalog.Partners() }))
		r.Get("/v1/booking/options", cached(h.bookingOptions))
		r.Get("/v1/contact", cached(func() any { return h.Contact }))
		r.Get("/v1/contact/whatsapp", h.whatsappRedirect)

		r.Post("/v1/sessions", h.createSession)
		r.Route("/v1/sessions/{sid}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.deleteSession)
			r.Get("/services", h.sessionServices)
			r.Post("/scroll", h.scroll)
			r.Post("/menu", h.mutate(func(c *page.Controller, s *page.Session) error { c.ToggleMenu(s); return nil }))
			r.Post("/navigate", h.navigate)
			r.Post("/filter", h.filter)
			r.Post("/modal", h.openModal)
			r.Delete("/modal", h.mutate(func(c *page.Controller, s *page.Session) error { c.CloseService(s); return nil }))
			r.Post("/modal/book", h.mutate(func(c *page.Controller, s *page.Session) error { c.BookActiveService(s); return nil }))
			r.Post("/faq/{index}", h.toggleFAQ)
			r.Post("/reveal", h.reveal)

			r.Post("/booking/advance", h.mutate(func(_ *page.Controller, s *page.Session) error { return s.Booking.Advance() }))
			r.Post("/booking/retreat", h.mutate(func(_ *page.Controller, s *page.Session) error { return s.Booking.Retreat() }))
			r.Patch("/booking/fields", h.setFields)
			r.Post("/booking/services/{id}", h.toggleBookingService)
			r.Post("/booking/submit", h.submit)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeError maps service and domain errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "session not found or expired")
	case errors.Is(err, page.ErrUnknownService), errors.Is(err, page.ErrUnknownFAQ), errors.Is(err, page.ErrUnknownBlock):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, page.ErrUnknownSection), errors.Is(err, booking.ErrUnknownField),
		errors.Is(err, booking.ErrFieldTooLong):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, booking.ErrNoNextStep), errors.Is(err, booking.ErrNoPreviousStep),
		errors.Is(err, booking.ErrAlreadySubmitted), errors.Is(err, app.ErrNotOnFinalStep):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, app.ErrSinkUnavailable):
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "booking could not be recorded, please try again")
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// decode reads a small JSON body into dst, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	return true
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v with a weak ETag, or 304 when the client already has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func cached(fn func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { writeCached(w, r, fn()) }
}

// ---- catalog ----

func (h *Handlers) listServices(w http.ResponseWriter, r *http.Request) {
	cat := domain.Category(r.URL.Query().Get("category"))
	if cat == "" {
		cat = domain.CategoryAll
	}
	writeCached(w, r, h.Catalog.Filter(cat))
}

func (h *Handlers) getService(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	svc, ok := h.Catalog.Service(id)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "service not found")
		return
	}
	writeCached(w, r, svc)
}

type serviceChoice struct {
	ID       int             `json:"id"`
	Title    string          `json:"title"`
	Category domain.Category `json:"category"`
}

type bookingOptions struct {
	Steps    int                    `json:"steps"`
	Guests   []int                  `json:"guests"`
	Budgets  []booking.BudgetOption `json:"budgets"`
	Services []serviceChoice        `json:"services"`
}

func (h *Handlers) bookingOptions() any {
	out := bookingOptions{Steps: booking.LastStep, Guests: booking.GuestOptions, Budgets: booking.BudgetOptions}
	for _, s := range h.Catalog.Services() {
		out.Services = append(out.Services, serviceChoice{ID: s.ID, Title: s.Title, Category: s.Category})
	}
	return out
}

func (h *Handlers) whatsappRedirect(w http.ResponseWriter, r *http.Request) {
	text := contact.DefaultGreeting
	if q := r.URL.Query(); q.Has("text") {
		text = q.Get("text")
	}
	http.Redirect(w, r, contact.WhatsAppLink(h.WhatsApp, text), http.StatusFound)
}

// ---- sessions ----

func (h *Handlers) view(s *page.Session) page.View { return h.Sessions.Controller().View(s) }

func (h *Handlers) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, h.view(sess))
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.Get(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(sess))
}

func (h *Handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Delete(r.Context(), chi.URLParam(r, "sid")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) sessionServices(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.Get(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Sessions.Controller().FilteredServices(sess))
}

// mutate applies fn to the session named in the path and responds with the
// resulting view.
func (h *Handlers) mutate(fn func(*page.Controller, *page.Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.Sessions.Update(r.Context(), chi.URLParam(r, "sid"), fn)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.view(sess))
	}
}

func (h *Handlers) scroll(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Y float64 `json:"y"`
	}
	if !decode(w, r, &in) {
		return
	}
	h.mutate(func(c *page.Controller, s *page.Session) error { c.Scroll(s, in.Y); return nil })(w, r)
}

func (h *Handlers) navigate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Section string `json:"section"`
	}
	if !decode(w, r, &in) {
		return
	}
	h.mutate(func(c *page.Controller, s *page.Session) error { return c.Navigate(s, in.Section) })(w, r)
}

func (h *Handlers) filter(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Category domain.Category `json:"category"`
	}
	if !decode(w, r, &in) {
		return
	}
	h.mutate(func(c *page.Controller, s *page.Session) error { c.SelectFilter(s, in.Category); return nil })(w, r)
}

func (h *Handlers) openModal(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ServiceID int `json:"service_id"`
	}
	if !decode(w, r, &in) {
		return
	}
	h.mutate(func(c *page.Controller, s *page.Session) error { return c.OpenService(s, in.ServiceID) })(w, r)
}

func (h *Handlers) toggleFAQ(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Index", "index must be a number")
		return
	}
	h.mutate(func(c *page.Controller, s *page.Session) error { return c.ToggleFAQ(s, i) })(w, r)
}

type revealResponse struct {
	page.View
	Fired bool `json:"fired"`
}

func (h *Handlers) reveal(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Block    string  `json:"block"`
		Fraction float64 `json:"fraction"`
	}
	if !decode(w, r, &in) {
		return
	}
	var fired bool
	sess, err := h.Sessions.Update(r.Context(), chi.URLParam(r, "sid"), func(c *page.Controller, s *page.Session) error {
		var err error
		fired, err = c.Reveal(s, in.Block, in.Fraction)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, revealResponse{View: h.view(sess), Fired: fired})
}

// ---- booking ----

// setFields overwrites the given draft fields. Keys are applied in sorted
// order; one unknown key rejects the whole patch.
func (h *Handlers) setFields(w http.ResponseWriter, r *http.Request) {
	var in map[string]string
	if !decode(w, r, &in) {
		return
	}
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h.mutate(func(_ *page.Controller, s *page.Session) error {
		for _, k := range keys {
			if err := s.Booking.SetField(k, in[k]); err != nil {
				return err
			}
		}
		return nil
	})(w, r)
}

func (h *Handlers) toggleBookingService(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	h.mutate(func(c *page.Controller, s *page.Session) error { return c.ToggleBookingService(s, id) })(w, r)
}

type submitResponse struct {
	Session page.View `json:"session"`
	LeadID  string    `json:"lead_id"`
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sessions.Submit(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Lead == nil {
		writeProblemBody(w, problem{
			Type:   "about:blank",
			Title:  "Invalid Booking",
			Status: http.StatusUnprocessableEntity,
			Detail: fmt.Sprintf("%d field(s) need attention", len(res.Session.Booking.Errors)),
			Errors: res.Session.Booking.Errors,
		})
		return
	}
	log.Info().Str("lead_id", res.Lead.ID).Str("session_id", res.Session.ID).Msg("booking accepted")
	writeJSON(w, http.StatusOK, submitResponse{Session: h.view(res.Session), LeadID: res.Lead.ID})
}
