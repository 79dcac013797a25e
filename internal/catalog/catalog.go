// Package catalog holds the site's static content: services, packages,
// testimonials, FAQ and partners. It is parsed once from the embedded YAML
// document and never mutated afterwards; every accessor hands out copies.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"alem_concierge/internal/domain"
)

//go:embed catalog.yaml
var defaultYAML []byte

var ErrInvalidCatalog = errors.New("catalog: invalid document")

type imageRef struct {
	ID    string `yaml:"id"`
	Width int    `yaml:"width"`
}

type serviceDoc struct {
	ID          int      `yaml:"id"`
	Title       string   `yaml:"title"`
	Subtitle    string   `yaml:"subtitle"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	Price       int      `yaml:"price"`
	PriceLabel  string   `yaml:"price_label"`
	Duration    string   `yaml:"duration"`
	Includes    []string `yaml:"includes"`
	Image       string   `yaml:"image"`
}

type packageDoc struct {
	ID          int      `yaml:"id"`
	Title       string   `yaml:"title"`
	Duration    string   `yaml:"duration"`
	PriceLabel  string   `yaml:"price_label"`
	Description string   `yaml:"description"`
	Image       string   `yaml:"image"`
	Highlights  []string `yaml:"highlights"`
}

type document struct {
	ImageBase  string              `yaml:"image_base"`
	Images     map[string]imageRef `yaml:"images"`
	Categories []struct {
		ID    string `yaml:"id"`
		Label string `yaml:"label"`
	} `yaml:"categories"`
	Services     []serviceDoc `yaml:"services"`
	Packages     []packageDoc `yaml:"packages"`
	Testimonials []struct {
		Name     string `yaml:"name"`
		Location string `yaml:"location"`
		Text     string `yaml:"text"`
		Rating   int    `yaml:"rating"`
		Initials string `yaml:"initials"`
		Color    string `yaml:"color"`
	} `yaml:"testimonials"`
	Partners []struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"partners"`
	FAQs []struct {
		Question string `yaml:"question"`
		Answer   string `yaml:"answer"`
	} `yaml:"faqs"`
}

type Catalog struct {
	images       map[string]string
	categories   []domain.CategoryOption
	services     []domain.ServiceOffering
	byID         map[int]int // service id -> index in services
	packages     []domain.Package
	testimonials []domain.Testimonial
	partners     []domain.Partner
	faqs         []domain.FAQ
}

// Default parses the embedded catalog document.
func Default() (*Catalog, error) { return Parse(defaultYAML) }

// Parse decodes and validates a catalog document.
func Parse(b []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	c := &Catalog{
		images: make(map[string]string, len(doc.Images)),
		byID:   make(map[int]int, len(doc.Services)),
	}
	for name, ref := range doc.Images {
		c.images[name] = fmt.Sprintf(doc.ImageBase, ref.ID, ref.Width)
	}
	image := func(name string) (string, error) {
		if name == "" {
			return "", nil
		}
		u, ok := c.images[name]
		if !ok {
			return "", fmt.Errorf("%w: unknown image %q", ErrInvalidCatalog, name)
		}
		return u, nil
	}

	for _, cat := range doc.Categories {
		id := domain.Category(cat.ID)
		if id != domain.CategoryAll && !id.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidCatalog, cat.ID)
		}
		c.categories = append(c.categories, domain.CategoryOption{ID: id, Label: cat.Label})
	}

	for _, s := range doc.Services {
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate service id %d", ErrInvalidCatalog, s.ID)
		}
		cat := domain.Category(s.Category)
		if !cat.Valid() {
			return nil, fmt.Errorf("%w: service %d has category %q", ErrInvalidCatalog, s.ID, s.Category)
		}
		img, err := image(s.Image)
		if err != nil {
			return nil, err
		}
		c.byID[s.ID] = len(c.services)
		c.services = append(c.services, domain.ServiceOffering{
			ID:          s.ID,
			Title:       s.Title,
			Subtitle:    s.Subtitle,
			Category:    cat,
			Description: s.Description,
			Price:       s.Price,
			PriceLabel:  s.PriceLabel,
			Duration:    s.Duration,
			Includes:    s.Includes,
			Image:       img,
		})
	}

	for _, p := range doc.Packages {
		img, err := image(p.Image)
		if err != nil {
			return nil, err
		}
		c.packages = append(c.packages, domain.Package{
			ID:          p.ID,
			Title:       p.Title,
			Duration:    p.Duration,
			PriceLabel:  p.PriceLabel,
			Description: p.Description,
			Image:       img,
			Highlights:  p.Highlights,
		})
	}

	for _, t := range doc.Testimonials {
		if t.Rating < 1 || t.Rating > 5 {
			return nil, fmt.Errorf("%w: testimonial %q has rating %d", ErrInvalidCatalog, t.Name, t.Rating)
		}
		c.testimonials = append(c.testimonials, domain.Testimonial{
			Name: t.Name, Location: t.Location, Text: t.Text,
			Rating: t.Rating, Initials: t.Initials, Color: t.Color,
		})
	}
	for _, p := range doc.Partners {
		c.partners = append(c.partners, domain.Partner{Name: p.Name, Type: p.Type})
	}
	for _, f := range doc.FAQs {
		c.faqs = append(c.faqs, domain.FAQ{Question: f.Question, Answer: f.Answer})
	}
	return c, nil
}

// Filter returns the services in category, in catalog order. CategoryAll
// returns everything; an unknown category returns an empty slice.
func (c *Catalog) Filter(category domain.Category) []domain.ServiceOffering {
	out := make([]domain.ServiceOffering, 0, len(c.services))
	for _, s := range c.services {
		if category == domain.CategoryAll || s.Category == category {
			out = append(out, copyService(s))
		}
	}
	return out
}

func (c *Catalog) Services() []domain.ServiceOffering { return c.Filter(domain.CategoryAll) }

func (c *Catalog) Service(id int) (domain.ServiceOffering, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.ServiceOffering{}, false
	}
	return copyService(c.services[i]), true
}

func (c *Catalog) HasService(id int) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Catalog) Categories() []domain.CategoryOption {
	return append([]domain.CategoryOption(nil), c.categories...)
}

func (c *Catalog) Packages() []domain.Package {
	out := make([]domain.Package, len(c.packages))
	for i, p := range c.packages {
		p.Highlights = append([]string(nil), p.Highlights...)
		out[i] = p
	}
	return out
}

func (c *Catalog) Testimonials() []domain.Testimonial {
	return append([]domain.Testimonial(nil), c.testimonials...)
}

func (c *Catalog) Partners() []domain.Partner {
	return append([]domain.Partner(nil), c.partners...)
}

func (c *Catalog) FAQs() []domain.FAQ {
	return append([]domain.FAQ(nil), c.faqs...)
}

// Image resolves a named image (e.g. "hero") to its URL.
func (c *Catalog) Image(name string) (string, bool) {
	u, ok := c.images[name]
	return u, ok
}

func copyService(s domain.ServiceOffering) domain.ServiceOffering {
	s.Includes = append([]string(nil), s.Includes...)
	return s
}
