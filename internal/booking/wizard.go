// Package booking implements the three-step booking wizard: dates and party
// on step 1, optional services on step 2, contact details on step 3.
package booking

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"alem_concierge/internal/domain"
)

const (
	FirstStep = 1
	LastStep  = 3
)

var (
	ErrNoNextStep       = errors.New("booking: already on the last step")
	ErrNoPreviousStep   = errors.New("booking: already on the first step")
	ErrUnknownField     = errors.New("booking: unknown field")
	ErrFieldTooLong     = errors.New("booking: field value too long")
	ErrAlreadySubmitted = errors.New("booking: already submitted")
)

// GuestOptions and BudgetOptions are the choices offered on step 1.
var GuestOptions = []int{1, 2, 3, 4, 5, 6, 7, 8}

type BudgetOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var BudgetOptions = []BudgetOption{
	{Value: "1-2.5k", Label: "€1,000 – €2,500"},
	{Value: "2.5-5k", Label: "€2,500 – €5,000"},
	{Value: "5k+", Label: "€5,000+"},
	{Value: "flexible", Label: "Flexible"},
}

// Wizard is the booking form controller. The zero value is not usable; call
// NewWizard. Exported fields exist so the wizard round-trips through the
// session store.
type Wizard struct {
	Step      int                     `json:"step"`
	Draft     domain.BookingDraft     `json:"draft"`
	Errors    domain.ValidationErrors `json:"errors"`
	Submitted bool                    `json:"submitted"`
}

func NewWizard() *Wizard {
	return &Wizard{
		Step:   FirstStep,
		Draft:  domain.NewBookingDraft(),
		Errors: domain.ValidationErrors{},
	}
}

func (w *Wizard) Advance() error {
	if w.Submitted {
		return ErrAlreadySubmitted
	}
	if w.Step >= LastStep {
		return ErrNoNextStep
	}
	w.Step++
	return nil
}

// Retreat moves back one step. The draft is left exactly as it was.
func (w *Wizard) Retreat() error {
	if w.Submitted {
		return ErrAlreadySubmitted
	}
	if w.Step <= FirstStep {
		return ErrNoPreviousStep
	}
	w.Step--
	return nil
}

// ToggleService adds id to the selection if absent and removes it if present.
func (w *Wizard) ToggleService(id int) error {
	if w.Submitted {
		return ErrAlreadySubmitted
	}
	if w.Draft.Services == nil {
		w.Draft.Services = domain.ServiceSet{}
	}
	if w.Draft.Services.Has(id) {
		delete(w.Draft.Services, id)
	} else {
		w.Draft.Services[id] = struct{}{}
	}
	return nil
}

// SetField overwrites one draft field. Only the length is checked; the
// content is validated on submit.
func (w *Wizard) SetField(name, value string) error {
	if w.Submitted {
		return ErrAlreadySubmitted
	}
	if limit, ok := domain.FieldMaxLen[name]; ok && utf8.RuneCountInString(value) > limit {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrFieldTooLong, name, limit)
	}
	d := &w.Draft
	switch name {
	case domain.FieldName:
		d.Name = value
	case domain.FieldEmail:
		d.Email = value
	case domain.FieldPhone:
		d.Phone = value
	case domain.FieldArrival:
		d.Arrival = value
	case domain.FieldDeparture:
		d.Departure = value
	case domain.FieldGuests:
		d.Guests = value
	case domain.FieldNotes:
		d.Notes = value
	case domain.FieldBudget:
		d.Budget = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// Submit validates the whole draft. On success it marks the wizard submitted;
// otherwise it replaces the error map and leaves step and draft untouched.
// It reports whether the draft was accepted.
func (w *Wizard) Submit() bool {
	if w.Submitted {
		return true
	}
	w.Errors = Validate(w.Draft)
	if !w.Errors.Empty() {
		return false
	}
	w.Submitted = true
	return true
}
