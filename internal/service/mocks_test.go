package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/port"
)

// --- Mocks ---

var errStoreDown = errors.New("store unavailable")

// countingStore wraps a RecordStore and counts loads.
type countingStore[T any] struct {
	port.RecordStore[T]
	loads atomic.Int32
}

func (c *countingStore[T]) Load(ctx context.Context) ([]T, error) {
	c.loads.Add(1)
	return c.RecordStore.Load(ctx)
}

type failingStore[T any] struct{}

func (failingStore[T]) Load(context.Context) ([]T, error) { return nil, errStoreDown }
func (failingStore[T]) Save(context.Context, []T) error { return errStoreDown }
func (failingStore[T]) Upsert(context.Context, string, T) error { return errStoreDown }

type mockUsers struct {
	users map[string]domain.UserInfo
	err   error
}

func (m *mockUsers) LookupUser(_ context.Context, username string) (domain.UserInfo, error) {
	if m.err != nil {
		return domain.UserInfo{}, m.err
	}
	info, ok := m.users[username]
	if !ok {
		return domain.UserInfo{}, &domain.ErrNotFound{Resource: "subscriber", ID: username}
	}
	return info, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Message)
	}
	return out
}
