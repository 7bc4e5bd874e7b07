package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Stop()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	data, ok, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok || string(data) != "v" {
		t.Fatalf("unexpected value: %q (found=%v)", data, ok)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Stop()

	_, ok, err := m.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Fatalf("expected a miss")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Stop()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), 30*time.Millisecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	// Reads must not extend the entry's life.
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatalf("entry should still be live")
	}
	time.Sleep(60 * time.Millisecond)

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("entry should have expired")
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Stop()
	ctx := context.Background()

	_ = m.Set(ctx, "k", []byte("v"), time.Minute)
	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("entry should be gone")
	}
}
