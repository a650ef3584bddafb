package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("2024-01", "jan")
	c.Set("2024-02", "feb")
	now = now.Add(30 * time.Second)
	c.Set("2024-03", "mar")

	now = now.Add(45 * time.Second)
	if _, ok := c.Get("2024-01"); ok {
		t.Error("expired entry returned")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
	if v, ok := c.Get("2024-03"); !ok || v != "mar" {
		t.Errorf("Get(2024-03) = %q, %v", v, ok)
	}
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}
	if n := c.Purge(); n != 1 {
		t.Errorf("Purge() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d after purge", c.Size())
	}
	c.Set("c", 3)
	if c.Size() != 1 {
		t.Error("cache unusable after purge")
	}
}

func TestMonthKey(t *testing.T) {
	tests := []struct {
		year, month int
		expected    string
	}{
		{2024, 1, "2024-01"},
		{2024, 12, "2024-12"},
		{2024, 0, "all"},
	}
	for _, tt := range tests {
		if got := MonthKey(tt.year, tt.month); got != tt.expected {
			t.Errorf("MonthKey(%d, %d) = %q, want %q", tt.year, tt.month, got, tt.expected)
		}
	}
}

func TestLoader_CachesAndCollapses(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute))
	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, _, err := l.Get(context.Background(), "2024-01", load); err != nil || v != 42 {
				t.Errorf("Get() = %d, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n < 1 || n > 8 {
		t.Fatalf("unexpected load count %d", n)
	}
	before := atomic.LoadInt32(&calls)
	v, hit, err := l.Get(context.Background(), "2024-01", load)
	if err != nil || !hit || v != 42 {
		t.Fatalf("expected cache hit, got %d %v %v", v, hit, err)
	}
	if atomic.LoadInt32(&calls) != before {
		t.Fatal("cache hit must not load")
	}
}

func TestLoader_ErrorsNotCached(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute))
	boom := errors.New("boom")
	if _, _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, hit, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || hit || v != 7 {
		t.Fatalf("expected fresh load, got %d %v %v", v, hit, err)
	}
}

func TestLoader_Invalidate(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute))
	n := 0
	load := func(context.Context) (int, error) { n++; return n, nil }

	l.Get(context.Background(), "k", load)
	l.Invalidate()
	v, hit, _ := l.Get(context.Background(), "k", load)
	if hit || v != 2 {
		t.Fatalf("expected reload after invalidate, got %d hit=%v", v, hit)
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewLRUCache[int](1, time.Minute))
	m.Stop()

	m = NewManager(nil)
	m.Register(NewLRUCache[int](1, time.Minute))
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
}
