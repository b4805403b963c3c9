package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
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
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, maxSize int, ttl time.Duration) (*LocalCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLocalCache(maxSize, ttl)
	c.now = clock.Now
	t.Cleanup(c.Stop)
	return c, clock
}

func TestLocalCache_GetSet(t *testing.T) {
	c, _ := newTestCache(t, 0, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("stats", 42, 0)
	v, ok := c.Get("stats")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, c.Len())

	// 覆盖不增加条目数
	c.Set("stats", 43, 0)
	assert.Equal(t, 1, c.Len())
}

func TestLocalCache_Expiry(t *testing.T) {
	c, clock := newTestCache(t, 0, 10*time.Second)

	c.Set("short", "a", time.Second)
	c.Set("default", "b", 0)

	clock.Advance(2 * time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok)
	_, ok = c.Get("default")
	assert.True(t, ok)

	clock.Advance(10 * time.Second)
	_, ok = c.Get("default")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLocalCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(t, 0, time.Minute)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Delete("a")
	c.Delete("a")
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("b")
	assert.False(t, ok)
}

func TestLocalCache_MaxSize(t *testing.T) {
	c, clock := newTestCache(t, 2, time.Minute)

	c.Set("a", 1, time.Second)
	c.Set("b", 2, 0)
	c.Set("c", 3, 0)
	_, ok := c.Get("c")
	assert.False(t, ok, "已满时拒绝新 key")

	// 已存在的 key 仍然可以更新
	c.Set("b", 20, 0)
	v, _ := c.Get("b")
	assert.Equal(t, 20, v)

	// 过期条目被清理后可以写入
	clock.Advance(2 * time.Second)
	c.Set("c", 3, 0)
	v, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestLocalCache_StopIdempotent(t *testing.T) {
	c := NewLocalCache(0, time.Minute)
	c.Stop()
	c.Stop()
}
