package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestTTL_GetSet(t *testing.T) {
	c := NewTTL[string, int](3, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTTL_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewTTL[string, int](3, 5*time.Minute, WithClock[string, int](clock.Now))

	c.Set("a", 1)
	clock.Advance(4*time.Minute + 59*time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok, "entry younger than ttl should be served")

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry at ttl age should be expired")
	assert.Equal(t, 0, c.Len(), "expired entry should be purged on access")
}

func TestTTL_EvictsOldestInsertion(t *testing.T) {
	c := NewTTL[string, int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // reads do not affect eviction order
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest insertion should be evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestTTL_ResetMovesToBack(t *testing.T) {
	c := NewTTL[string, int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b is now the oldest and should be evicted")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestTTL_CopyIsolation(t *testing.T) {
	copySlice := func(in []string) []string {
		out := make([]string, len(in))
		copy(out, in)
		return out
	}
	c := NewTTL[string, []string](2, time.Minute, WithCopy[string, []string](copySlice))

	orig := []string{"x"}
	c.Set("k", orig)
	orig[0] = "mutated-after-set"

	got, _ := c.Get("k")
	assert.Equal(t, "x", got[0])

	got[0] = "mutated-after-get"
	again, _ := c.Get("k")
	assert.Equal(t, "x", again[0])
}

func TestTTL_MinimumCapacity(t *testing.T) {
	c := NewTTL[int, int](0, time.Minute)
	c.Set(1, 1)
	c.Set(2, 2)
	assert.Equal(t, 1, c.Len())
}

func TestTTL_Delete(t *testing.T) {
	c := NewTTL[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("absent")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTTL_ConcurrentAccess(t *testing.T) {
	c := NewTTL[string, int](16, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%40)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
