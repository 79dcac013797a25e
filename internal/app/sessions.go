package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"alem_concierge/internal/adapters/observability"
	"alem_concierge/internal/booking"
	"alem_concierge/internal/domain"
	"alem_concierge/internal/page"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotOnFinalStep  = errors.New("booking can only be submitted from the last step")
	ErrSinkUnavailable = errors.New("booking could not be recorded")
)

// SessionService loads a visitor's page session, applies one change through
// the page controller and stores it back.
type SessionService struct {
	ctrl  *page.Controller
	store domain.Cache
	leads domain.LeadRepository
	ttl   time.Duration

	now   func() time.Time
	newID func() string
}

func NewSessionService(ctrl *page.Controller, store domain.Cache, leads domain.LeadRepository, ttl time.Duration) *SessionService {
	return &SessionService{
		ctrl:  ctrl,
		store: store,
		leads: leads,
		ttl:   ttl,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

func (s *SessionService) Controller() *page.Controller { return s.ctrl }

func sessionKey(id string) string { return "session:" + id }

func (s *SessionService) Create(ctx context.Context) (*page.Session, error) {
	sess, err := s.ctrl.NewSession(s.newID(), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*page.Session, error) {
	var sess page.Session
	ok, err := s.store.Get(ctx, sessionKey(id), &sess)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

// Delete ends a session. Deleting an unknown or expired session succeeds.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if err := s.store.Del(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Update applies fn to the stored session. Nothing is written when fn fails.
func (s *SessionService) Update(ctx context.Context, id string, fn func(*page.Controller, *page.Session) error) (*page.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s.ctrl, sess); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SubmitResult carries the session after a submit and, when the draft was
// accepted, the lead that was recorded for it.
type SubmitResult struct {
	Session *page.Session
	Lead    *domain.Lead
}

// Submit validates the whole booking draft. An invalid draft is not an
// error: the session is stored with its new error map and Lead is nil.
func (s *SessionService) Submit(ctx context.Context, id string) (SubmitResult, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	w := sess.Booking
	if w.Submitted {
		return SubmitResult{}, booking.ErrAlreadySubmitted
	}
	if w.Step != booking.LastStep {
		return SubmitResult{}, ErrNotOnFinalStep
	}

	if !w.Submit() {
		observability.ObserveSubmission("invalid")
		if err := s.save(ctx, sess); err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Session: sess}, nil
	}

	lead := leadFromDraft(s.newID(), sess.ID, w.Draft, s.now())
	if err := s.leads.InsertLead(ctx, lead); err != nil {
		// stored session still holds the unsubmitted draft; the visitor can retry
		observability.ObserveSubmission("sink_error")
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	observability.ObserveSubmission("accepted")

	if err := s.save(ctx, sess); err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Session: sess, Lead: &lead}, nil
}

func (s *SessionService) save(ctx context.Context, sess *page.Session) error {
	if err := s.store.Set(ctx, sessionKey(sess.ID), sess, int(s.ttl.Seconds())); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}
