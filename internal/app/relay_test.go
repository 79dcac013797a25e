package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alem_concierge/internal/app"
	"alem_concierge/internal/domain"
)

var errPermanent = errors.New("rejected")

func isPermanent(err error) bool { return errors.Is(err, errPermanent) }

func TestRelay_DeliveredIsMarked(t *testing.T) {
	repo := &fakeRepo{leads: []domain.Lead{{ID: "a", Status: domain.LeadPending}}}
	n := &fakeNotifier{}
	r := app.NewRelayService(repo, n, 3, isPermanent)

	pending, err := r.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, r.Deliver(context.Background(), pending[0]))
	assert.Equal(t, []string{"a"}, n.sent)
	assert.Equal(t, []string{"a"}, repo.delivered)
	assert.Empty(t, repo.attempts)
}

func TestRelay_RetryableFailureStaysPending(t *testing.T) {
	repo := &fakeRepo{}
	r := app.NewRelayService(repo, &fakeNotifier{err: errBoom}, 3, isPermanent)

	err := r.Deliver(context.Background(), domain.Lead{ID: "a", Attempts: 1})
	require.ErrorIs(t, err, errBoom)
	require.Len(t, repo.attempts, 1)
	assert.Equal(t, domain.LeadPending, repo.attempts[0].status)
	assert.Equal(t, "boom", repo.attempts[0].reason)
	assert.Empty(t, repo.delivered)
}

func TestRelay_LastAttemptFails(t *testing.T) {
	repo := &fakeRepo{}
	r := app.NewRelayService(repo, &fakeNotifier{err: errBoom}, 3, isPermanent)

	require.Error(t, r.Deliver(context.Background(), domain.Lead{ID: "a", Attempts: 2}))
	require.Len(t, repo.attempts, 1)
	assert.Equal(t, domain.LeadFailed, repo.attempts[0].status)
}

func TestRelay_PermanentFailsAtOnce(t *testing.T) {
	repo := &fakeRepo{}
	r := app.NewRelayService(repo, &fakeNotifier{err: errPermanent}, 3, isPermanent)

	require.ErrorIs(t, r.Deliver(context.Background(), domain.Lead{ID: "a"}), errPermanent)
	require.Len(t, repo.attempts, 1)
	assert.Equal(t, domain.LeadFailed, repo.attempts[0].status)
}

func TestRelay_CanceledIsNotAnAttempt(t *testing.T) {
	repo := &fakeRepo{}
	r := app.NewRelayService(repo, &fakeNotifier{err: context.Canceled}, 3, nil)

	require.ErrorIs(t, r.Deliver(context.Background(), domain.Lead{ID: "a"}), context.Canceled)
	assert.Empty(t, repo.attempts)
}
