package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
)

// Cache is a TTL key/value store for JSON-encodable values.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// LeadRepository is the outbox for validated booking requests.
type LeadRepository interface {
	// Write paths
	InsertLead(ctx context.Context, l Lead) error
	MarkDelivered(ctx context.Context, id string) error
	MarkAttempt(ctx context.Context, id string, status LeadStatus, reason string) error

	// Read paths
	GetLead(ctx context.Context, id string) (Lead, error)
	ListPending(ctx context.Context, limit int) ([]Lead, error)
}

// LeadNotifier transmits a lead to the external messaging endpoint.
type LeadNotifier interface {
	DeliverLead(ctx context.Context, l Lead) error
}
