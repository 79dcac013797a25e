package domain

// Category is one of the fixed service categories. CategoryAll is the
// filter pseudo-category and never appears on a ServiceOffering.
type Category string

const (
	CategoryAll         Category = "all"
	CategoryExperiences Category = "experiences"
	CategoryDining      Category = "dining"
	CategoryWellness    Category = "wellness"
	CategoryTransport   Category = "transport"
	CategoryConvenience Category = "convenience"
)

// Categories lists the assignable categories in display order.
var Categories = []Category{
	CategoryExperiences,
	CategoryDining,
	CategoryWellness,
	CategoryTransport,
	CategoryConvenience,
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

type CategoryOption struct {
	ID    Category `json:"id"`
	Label string   `json:"label"`
}

type ServiceOffering struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Price       int      `json:"price"` // euros; 0 means complimentary
	PriceLabel  string   `json:"price_label"`
	Duration    string   `json:"duration"`
	Includes    []string `json:"includes"`
	Image       string   `json:"image"`
}

type Package struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Duration    string   `json:"duration"`
	PriceLabel  string   `json:"price_label"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Highlights  []string `json:"highlights"`
}

type Testimonial struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Text     string `json:"text"`
	Rating   int    `json:"rating"`
	Initials string `json:"initials"`
	Color    string `json:"color"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Partner struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
