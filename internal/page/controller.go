// Package page owns a visitor's presentational state: scroll position, menu,
// service filter, detail modal, FAQ accordion, fade-in blocks and the booking
// wizard. State lives in a Session value; the Controller applies every change
// to it, so nothing is held in ambient globals.
package page

import (
	"errors"
	"fmt"
	"time"

	"alem_concierge/internal/booking"
	"alem_concierge/internal/catalog"
	"alem_concierge/internal/domain"
	"alem_concierge/internal/reveal"
)

const (
	scrolledAfterPx = 50
	parallaxFactor  = 0.35
)

// Section anchors the navigation can scroll to.
const (
	SectionHero     = "hero"
	SectionServices = "services"
	SectionPackages = "packages"
	SectionAbout    = "about"
	SectionFAQ      = "faq"
	SectionBooking  = "booking"
)

var Sections = []string{SectionHero, SectionServices, SectionPackages, SectionAbout, SectionFAQ, SectionBooking}

var (
	ErrUnknownSection = errors.New("page: unknown section")
	ErrUnknownService = errors.New("page: unknown service")
	ErrUnknownFAQ     = errors.New("page: unknown faq item")
	ErrUnknownBlock   = errors.New("page: unknown reveal block")
)

// Block describes one fade-in region of the page.
type Block struct {
	Name      string
	Direction reveal.Direction
	Delay     float64
	Threshold float64
}

// DefaultBlocks are the fade-in regions of the landing page, top to bottom.
var DefaultBlocks = []Block{
	{Name: "hero-eyebrow", Direction: reveal.Up, Delay: 0.1},
	{Name: "hero-title", Direction: reveal.Up, Delay: 0.2},
	{Name: "hero-lead", Direction: reveal.Up, Delay: 0.35},
	{Name: "hero-actions", Direction: reveal.Up, Delay: 0.5},
	{Name: "hero-stats", Direction: reveal.Up, Delay: 0.65},
	{Name: "how-it-works", Direction: reveal.Up},
	{Name: "services", Direction: reveal.Up},
	{Name: "packages", Direction: reveal.Up},
	{Name: "about-gallery", Direction: reveal.Left, Delay: 0.2},
	{Name: "about-story", Direction: reveal.Right},
	{Name: "testimonials", Direction: reveal.Up},
	{Name: "partners", Direction: reveal.Up, Delay: 0.1},
	{Name: "faq", Direction: reveal.Up},
	{Name: "booking", Direction: reveal.Up},
}

// Session is one visitor's page state. It is plain data so it can be stored
// between requests.
type Session struct {
	ID            string                     `json:"id"`
	ScrollY       float64                    `json:"scroll_y"`
	Scrolled      bool                       `json:"scrolled"`
	HeroOffset    float64                    `json:"hero_offset"`
	MenuOpen      bool                       `json:"menu_open"`
	Section       string                     `json:"section"`
	Filter        domain.Category            `json:"filter"`
	ActiveService *int                       `json:"active_service"`
	ActiveFAQ     *int                       `json:"active_faq"`
	Reveals       map[string]*reveal.Trigger `json:"reveals"`
	Booking       *booking.Wizard            `json:"booking"`
	CreatedAt     time.Time                  `json:"created_at"`
}

type Controller struct {
	catalog *catalog.Catalog
	blocks  []Block
}

func NewController(c *catalog.Catalog, blocks []Block) *Controller {
	if blocks == nil {
		blocks = DefaultBlocks
	}
	return &Controller{catalog: c, blocks: blocks}
}

func (c *Controller) Catalog() *catalog.Catalog { return c.catalog }

func (c *Controller) NewSession(id string, now time.Time) (*Session, error) {
	s := &Session{
		ID:        id,
		Section:   SectionHero,
		Filter:    domain.CategoryAll,
		Reveals:   make(map[string]*reveal.Trigger, len(c.blocks)),
		Booking:   booking.NewWizard(),
		CreatedAt: now,
	}
	for _, b := range c.blocks {
		th := b.Threshold
		if th == 0 {
			th = reveal.DefaultThreshold
		}
		tr, err := reveal.New(th, b.Direction, b.Delay)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", b.Name, err)
		}
		s.Reveals[b.Name] = tr
	}
	return s, nil
}

func (c *Controller) Scroll(s *Session, y float64) {
	if y < 0 {
		y = 0
	}
	s.ScrollY = y
	s.Scrolled = y > scrolledAfterPx
	s.HeroOffset = y * parallaxFactor
}

func (c *Controller) ToggleMenu(s *Session) { s.MenuOpen = !s.MenuOpen }

// Navigate records a scroll-to-section request and closes the mobile menu.
func (c *Controller) Navigate(s *Session, section string) error {
	for _, known := range Sections {
		if section == known {
			s.MenuOpen = false
			s.Section = section
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownSection, section)
}

// SelectFilter sets the service filter. Any value is accepted; an unknown
// category simply filters everything out.
func (c *Controller) SelectFilter(s *Session, category domain.Category) {
	s.Filter = category
}

func (c *Controller) FilteredServices(s *Session) []domain.ServiceOffering {
	return c.catalog.Filter(s.Filter)
}

func (c *Controller) OpenService(s *Session, id int) error {
	if !c.catalog.HasService(id) {
		return fmt.Errorf("%w: %d", ErrUnknownService, id)
	}
	s.ActiveService = &id
	return nil
}

func (c *Controller) CloseService(s *Session) { s.ActiveService = nil }

// BookActiveService closes the detail modal and jumps to the booking form.
func (c *Controller) BookActiveService(s *Session) {
	s.ActiveService = nil
	s.MenuOpen = false
	s.Section = SectionBooking
}

// ToggleBookingService flips a catalog service in the booking selection.
func (c *Controller) ToggleBookingService(s *Session, id int) error {
	if !c.catalog.HasService(id) {
		return fmt.Errorf("%w: %d", ErrUnknownService, id)
	}
	return s.Booking.ToggleService(id)
}

// ToggleFAQ opens item i, or closes it if it is already open.
func (c *Controller) ToggleFAQ(s *Session, i int) error {
	if i < 0 || i >= len(c.catalog.FAQs()) {
		return fmt.Errorf("%w: %d", ErrUnknownFAQ, i)
	}
	if s.ActiveFAQ != nil && *s.ActiveFAQ == i {
		s.ActiveFAQ = nil
		return nil
	}
	s.ActiveFAQ = &i
	return nil
}

// Reveal feeds a visibility sample to a block's trigger and reports whether
// this sample fired it.
func (c *Controller) Reveal(s *Session, block string, fraction float64) (bool, error) {
	tr, ok := s.Reveals[block]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownBlock, block)
	}
	return tr.Observe(fraction), nil
}

// View is the render-ready projection of a session.
type View struct {
	*Session
	Presentations map[string]reveal.Presentation `json:"presentations"`
	Services      []domain.ServiceOffering       `json:"services"`
	Modal         *domain.ServiceOffering        `json:"modal,omitempty"`
}

func (c *Controller) View(s *Session) View {
	v := View{
		Session:       s,
		Presentations: make(map[string]reveal.Presentation, len(s.Reveals)),
		Services:      c.FilteredServices(s),
	}
	for name, tr := range s.Reveals {
		v.Presentations[name] = tr.Presentation()
	}
	if s.ActiveService != nil {
		if svc, ok := c.catalog.Service(*s.ActiveService); ok {
			v.Modal = &svc
		}
	}
	return v
}
