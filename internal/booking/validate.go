package booking

import (
	"regexp"
	"strings"

	"alem_concierge/internal/domain"
)

const (
	MsgRequired     = "Required"
	MsgInvalidEmail = "Invalid email"
)

// Deliberately loose: anything shaped like local@domain.tld.
var emailRE = regexp.MustCompile(`\S+@\S+\.\S+`)

// Validate checks every required field of d regardless of which wizard step
// collected it. Guests, notes, budget and services are never required.
func Validate(d domain.BookingDraft) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	if strings.TrimSpace(d.Name) == "" {
		errs[domain.FieldName] = MsgRequired
	}
	switch {
	case strings.TrimSpace(d.Email) == "":
		errs[domain.FieldEmail] = MsgRequired
	case !emailRE.MatchString(d.Email):
		errs[domain.FieldEmail] = MsgInvalidEmail
	}
	if strings.TrimSpace(d.Phone) == "" {
		errs[domain.FieldPhone] = MsgRequired
	}
	if d.Arrival == "" {
		errs[domain.FieldArrival] = MsgRequired
	}
	if d.Departure == "" {
		errs[domain.FieldDeparture] = MsgRequired
	}
	return errs
}
