package app

import (
	"strings"
	"time"

	"alem_concierge/internal/domain"
)

// leadFromDraft copies a validated draft into an outbox record. Text fields
// are trimmed; the service selection becomes a sorted id list.
func leadFromDraft(id, sessionID string, d domain.BookingDraft, now time.Time) domain.Lead {
	return domain.Lead{
		ID:         id,
		SessionID:  sessionID,
		Name:       strings.TrimSpace(d.Name),
		Email:      strings.TrimSpace(d.Email),
		Phone:      strings.TrimSpace(d.Phone),
		Arrival:    d.Arrival,
		Departure:  d.Departure,
		Guests:     d.Guests,
		ServiceIDs: d.Services.IDs(),
		Notes:      strings.TrimSpace(d.Notes),
		Budget:     d.Budget,
		Status:     domain.LeadPending,
		CreatedAt:  now.UTC(),
	}
}
