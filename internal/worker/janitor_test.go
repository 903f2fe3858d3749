package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockCleanupStore implements driven.KVStore for testing
type mockCleanupStore struct {
	mu        sync.Mutex
	cleanups  int
	cleanupFn func() error
}

func (m *mockCleanupStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}

func (m *mockCleanupStore) Get(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (m *mockCleanupStore) GetDel(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (m *mockCleanupStore) Delete(ctx context.Context, key string) error {
	return nil
}

func (m *mockCleanupStore) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups++
	if m.cleanupFn != nil {
		return m.cleanupFn()
	}
	return nil
}

func (m *mockCleanupStore) cleanupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanups
}

func TestJanitorSweeps(t *testing.T) {
	store := &mockCleanupStore{}
	j := NewJanitor(JanitorConfig{
		Store:    store,
		Interval: 10 * time.Millisecond,
	})

	j.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	j.Stop()

	if store.cleanupCount() == 0 {
		t.Error("expected at least one cleanup sweep")
	}
}

func TestJanitorStopIsIdempotent(t *testing.T) {
	j := NewJanitor(JanitorConfig{
		Store:    &mockCleanupStore{},
		Interval: 10 * time.Millisecond,
	})

	j.Start(context.Background())
	j.Stop()
	j.Stop()
}

func TestJanitorKeepsSweepingAfterError(t *testing.T) {
	store := &mockCleanupStore{
		cleanupFn: func() error { return errors.New("backend unavailable") },
	}
	j := NewJanitor(JanitorConfig{
		Store:    store,
		Interval: 10 * time.Millisecond,
	})

	j.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	j.Stop()

	if store.cleanupCount() < 2 {
		t.Errorf("expected repeated sweeps despite errors, got %d", store.cleanupCount())
	}
}

func TestJanitorContextCancellation(t *testing.T) {
	store := &mockCleanupStore{}
	j := NewJanitor(JanitorConfig{
		Store:    store,
		Interval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	j.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-j.doneCh:
	case <-time.After(time.Second):
		t.Fatal("janitor did not exit after context cancellation")
	}
}
