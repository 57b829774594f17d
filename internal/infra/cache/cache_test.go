package cache_test

import (
	"testing"
	"time"

	"github.com/poa-mx/poa-insights-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[int](5 * time.Minute)

	c.Set("score:acme", 78)
	val, ok := c.Get("score:acme")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != 78 {
		t.Errorf("expected 78, got %d", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[int](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("dashboard:acme", "stale")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("dashboard:acme")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("k", "v")
	c.Delete("k")

	_, ok := c.Get("k")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_Flush(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Flush()

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected cache to be empty after flush")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected cache to be empty after flush")
	}
}
