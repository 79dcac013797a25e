package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Draft field names, as used by SetField and as keys of ValidationErrors.
const (
	FieldName      = "name"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldArrival   = "arrival"
	FieldDeparture = "departure"
	FieldGuests    = "guests"
	FieldNotes     = "notes"
	FieldBudget    = "budget"
)

const DefaultGuests = "2"

// FieldMaxLen bounds each draft field, in characters. The limits match the
// leads table columns.
var FieldMaxLen = map[string]int{
	FieldName:      255,
	FieldEmail:     255,
	FieldPhone:     64,
	FieldArrival:   64,
	FieldDeparture: 64,
	FieldGuests:    64,
	FieldNotes:     4000,
	FieldBudget:    64,
}

// BookingDraft is the in-progress booking request. Field values are kept as
// entered; nothing is parsed until a lead is built from the draft.
type BookingDraft struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Arrival   string     `json:"arrival"`
	Departure string     `json:"departure"`
	Guests    string     `json:"guests"`
	Services  ServiceSet `json:"services"`
	Notes     string     `json:"notes"`
	Budget    string     `json:"budget"`
}

func NewBookingDraft() BookingDraft {
	return BookingDraft{Guests: DefaultGuests, Services: ServiceSet{}}
}

// ValidationErrors maps a draft field name to its message.
type ValidationErrors map[string]string

func (e ValidationErrors) Empty() bool { return len(e) == 0 }

// ServiceSet is an unordered set of selected service ids.
type ServiceSet map[int]struct{}

func (s ServiceSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in ascending order.
func (s ServiceSet) IDs() []int {
	out := make([]int, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func (s ServiceSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *ServiceSet) UnmarshalJSON(b []byte) error {
	var ids []int
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	out := make(ServiceSet, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	*s = out
	return nil
}

type LeadStatus string

const (
	LeadPending   LeadStatus = "pending"
	LeadDelivered LeadStatus = "delivered"
	LeadFailed    LeadStatus = "failed"
)

// Lead is a fully validated draft handed to the submission collaborator.
type Lead struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Arrival    string     `json:"arrival"`
	Departure  string     `json:"departure"`
	Guests     string     `json:"guests"`
	ServiceIDs []int      `json:"service_ids"`
	Notes      string     `json:"notes"`
	Budget     string     `json:"budget"`
	Status     LeadStatus `json:"status"`
	Attempts   int        `json:"attempts"`
	LastError  string     `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
