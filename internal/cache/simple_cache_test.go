package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestTTLCache_SetGet(t *testing.T) {
	c := New[string, int](Options{})
	if !c.Set("a", 1, time.Minute) {
		t.Fatalf("expected Set to store the value")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit with value 1, got ok=%v v=%v", ok, v)
	}
	if c.Set("b", 2, 0) {
		t.Fatalf("expected zero ttl to be refused")
	}
	if c.Len() != 1 {
		t.Fatalf("expected Len=1, got %d", c.Len())
	}
}

func TestTTLCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := New[string, string](Options{Now: clock.Now})

	c.Set("k", "v", time.Second)
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("expected hit before expiry")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss at expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired key to be dropped on read, Len=%d", c.Len())
	}

	c.Set("x", "1", time.Second)
	c.Set("y", "2", time.Hour)
	clock.Advance(2 * time.Second)
	c.PurgeExpired()
	if c.Len() != 1 {
		t.Fatalf("expected Len=1 after purge, got %d", c.Len())
	}
}

func TestTTLCache_MaxEntries(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := New[int, int](Options{MaxEntries: 2, Now: clock.Now})

	c.Set(1, 1, time.Second)
	c.Set(2, 2, time.Hour)
	if c.Set(3, 3, time.Hour) {
		t.Fatalf("expected full cache to refuse a new key")
	}
	if !c.Set(2, 20, time.Hour) {
		t.Fatalf("expected overwrite of an existing key to succeed")
	}

	clock.Advance(2 * time.Second)
	if !c.Set(3, 3, time.Hour) {
		t.Fatalf("expected expired entry to make room")
	}
	if _, ok := c.Get(1); ok {
		t.Fatalf("expected key 1 to be purged")
	}
}

func TestTTLCache_ConcurrentUse(t *testing.T) {
	c := New[int, int](Options{})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < 200; r++ {
				c.Set(i, r, time.Minute)
				_, _ = c.Get(i)
			}
		}()
	}
	wg.Wait()
	for i := 0; i < 100; i++ {
		if _, ok := c.Get(i); !ok {
			t.Fatalf("expected key %d to be present", i)
		}
	}
}
