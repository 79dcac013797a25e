package app

import (
	"context"
	"errors"

	"alem_concierge/internal/adapters/observability"
	"alem_concierge/internal/domain"
)

// RelayService moves leads from the outbox to the messaging endpoint.
type RelayService struct {
	repo        domain.LeadRepository
	notifier    domain.LeadNotifier
	maxAttempts int
	permanent   func(error) bool
}

// NewRelayService builds a relay. permanent reports errors that retrying
// cannot fix (the lead is marked failed at once); nil treats every error as
// retryable until maxAttempts.
func NewRelayService(r domain.LeadRepository, n domain.LeadNotifier, maxAttempts int, permanent func(error) bool) *RelayService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if permanent == nil {
		permanent = func(error) bool { return false }
	}
	return &RelayService{repo: r, notifier: n, maxAttempts: maxAttempts, permanent: permanent}
}

func (s *RelayService) Pending(ctx context.Context, limit int) ([]domain.Lead, error) {
	return s.repo.ListPending(ctx, limit)
}

// Deliver sends one lead and records the outcome. It returns the delivery
// error after the outcome has been recorded, or the bookkeeping error if that
// failed.
func (s *RelayService) Deliver(ctx context.Context, l domain.Lead) error {
	derr := s.notifier.DeliverLead(ctx, l)
	if derr == nil {
		observability.ObserveDelivery("delivered")
		return s.repo.MarkDelivered(ctx, l.ID)
	}
	if errors.Is(derr, context.Canceled) || errors.Is(derr, context.DeadlineExceeded) {
		// shutting down; the lead stays pending without burning an attempt
		return derr
	}

	status := domain.LeadPending
	if s.permanent(derr) || l.Attempts+1 >= s.maxAttempts {
		status = domain.LeadFailed
	}
	observability.ObserveDelivery(deliveryLabel(status))
	if err := s.repo.MarkAttempt(ctx, l.ID, status, derr.Error()); err != nil {
		return err
	}
	return derr
}

func deliveryLabel(s domain.LeadStatus) string {
	if s == domain.LeadFailed {
		return "failed"
	}
	return "retry"
}
