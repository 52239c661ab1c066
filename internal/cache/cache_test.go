package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(start time.Time) (*Cache, *time.Time) {
	now := start
	c := New()
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC))

	c.Set("k", "v", time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c, now := newTestCache(time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC))

	c.Set("k", true, time.Minute)

	*now = now.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	*now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	// Expired entry was evicted, a re-set works again
	c.Set("k", false, time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, false, v)
}

func TestCache_Overwrite(t *testing.T) {
	c, _ := newTestCache(time.Now())

	c.Set("k", 1, time.Minute)
	c.Set("k", 2, time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(time.Now())

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
}
