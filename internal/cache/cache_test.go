package cache

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New[string](Options{Provider: "redis", MaxItems: 10, TTL: time.Minute})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("New() error = %v, want ErrUnknownProvider", err)
	}
}

func TestNew_DefaultProvider(t *testing.T) {
	c, err := New[int](Options{MaxItems: 10, TTL: time.Minute})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c == nil {
		t.Fatal("New() returned nil cache")
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c, err := New[string](Options{Provider: ProviderMemory, MaxItems: 10, TTL: time.Minute})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c.Set("k", "v")

	got, err := c.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCache_MissingKey(t *testing.T) {
	c, _ := New[string](Options{Provider: ProviderMemory, MaxItems: 10, TTL: time.Minute})

	_, err := c.Get("absent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestCache_Expiry(t *testing.T) {
	c, _ := New[string](Options{Provider: ProviderMemory, MaxItems: 10, TTL: 20 * time.Millisecond})

	c.Set("k", "v")
	if _, err := c.Get("k"); err != nil {
		t.Fatalf("Get() before TTL error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if _, err := c.Get("k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after TTL error = %v, want ErrCacheMiss", err)
	}
}

func TestCache_Delete(t *testing.T) {
	c, _ := New[string](Options{Provider: ProviderMemory, MaxItems: 10, TTL: time.Minute})

	c.Set("k", "v")
	c.Delete("k")

	if _, err := c.Get("k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Delete error = %v, want ErrCacheMiss", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestCache_EvictsWhenFull(t *testing.T) {
	c, _ := New[int](Options{Provider: ProviderMemory, MaxItems: 3, TTL: time.Minute})

	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	// Oldest entry is evicted first.
	if _, err := c.Get("k0"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get(k0) error = %v, want ErrCacheMiss after eviction", err)
	}
	if _, err := c.Get("k3"); err != nil {
		t.Errorf("Get(k3) error = %v, want nil", err)
	}
}
