package cache

import (
	"testing"
	"time"
)

func TestInMemoryCacheSetGet(t *testing.T) {
	c := NewInMemoryCache()

	c.Set("key", []byte("value"), time.Minute)

	got, ok := c.Get("key")
	if !ok {
		t.Fatal("Get reported a miss for a fresh entry")
	}
	if string(got) != "value" {
		t.Fatalf("Get returned %q, want value", got)
	}
}

func TestInMemoryCacheExpiry(t *testing.T) {
	c := NewInMemoryCache()

	c.Set("key", []byte("value"), -time.Second)

	if _, ok := c.Get("key"); ok {
		t.Fatal("Get returned an expired entry")
	}
}

func TestInMemoryCacheInvalidate(t *testing.T) {
	c := NewInMemoryCache()

	c.Set("key", []byte("value"), time.Minute)
	c.Invalidate("key")

	if _, ok := c.Get("key"); ok {
		t.Fatal("Get returned an invalidated entry")
	}
}

func TestInMemoryCacheFlush(t *testing.T) {
	c := NewInMemoryCache()

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)
	c.Flush()

	if _, ok := c.Get("a"); ok {
		t.Fatal("Get returned an entry after Flush")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("Get returned an entry after Flush")
	}
}
