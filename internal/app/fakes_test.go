package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"alem_concierge/internal/domain"
)

// ---- fakes ----

// fakeCache round-trips values through JSON like the Redis adapter does, so
// stored sessions never alias the caller's copy.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	ttls  map[string]int
	err   error
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.store == nil {
		c.store = map[string][]byte{}
		c.ttls = map[string]int{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	c.ttls[key] = ttlSec
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

type attempt struct {
	id     string
	status domain.LeadStatus
	reason string
}

type fakeRepo struct {
	mu        sync.Mutex
	leads     []domain.Lead
	delivered []string
	attempts  []attempt
	insertErr error
}

func (f *fakeRepo) InsertLead(ctx context.Context, l domain.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.leads = append(f.leads, l)
	return nil
}

func (f *fakeRepo) MarkDelivered(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, id)
	return nil
}

func (f *fakeRepo) MarkAttempt(ctx context.Context, id string, status domain.LeadStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt{id, status, reason})
	return nil
}

func (f *fakeRepo) GetLead(ctx context.Context, id string) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Lead{}, domain.ErrNotFound
}

func (f *fakeRepo) ListPending(ctx context.Context, limit int) ([]domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Lead
	for _, l := range f.leads {
		if l.Status == domain.LeadPending && len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	err  error
	sent []string
}

func (n *fakeNotifier) DeliverLead(ctx context.Context, l domain.Lead) error {
	n.sent = append(n.sent, l.ID)
	return n.err
}

var errBoom = errors.New("boom")
