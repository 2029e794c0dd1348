package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(nil)

	c.Set("k1", []byte("v1"), time.Minute)
	got, err := c.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(nil)

	c.Set("k", []byte("v"), time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get("k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheEviction(t *testing.T) {
	c := NewMemoryCache(&Options{MaxEntries: 2, DefaultTTL: time.Minute})

	c.Set("a", []byte("1"), 0)
	time.Sleep(time.Millisecond)
	c.Set("b", []byte("2"), 0)
	time.Sleep(time.Millisecond)

	// Touch "a" so "b" becomes least recently used.
	_, err := c.Get("a")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	c.Set("c", []byte("3"), 0)

	_, err = c.Get("b")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	_, err = c.Get("a")
	assert.NoError(t, err)
	_, err = c.Get("c")
	assert.NoError(t, err)
}

func TestMemoryCacheReturnsCopy(t *testing.T) {
	c := NewMemoryCache(nil)
	c.Set("k", []byte("abc"), time.Minute)

	got, err := c.Get("k")
	require.NoError(t, err)
	got[0] = 'x'

	again, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestContentHashIsStable(t *testing.T) {
	type payload struct {
		A int    `json:"a"`
		B string `json:"b"`
	}

	h1, err := ContentHash(payload{A: 1, B: "x"})
	require.NoError(t, err)
	h2, err := ContentHash(payload{A: 1, B: "x"})
	require.NoError(t, err)
	h3, err := ContentHash(payload{A: 2, B: "x"})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestContentHashSortsMapKeys(t *testing.T) {
	h1, err := ContentHash(map[string]int{"a": 1, "b": 2, "c": 3})
	require.NoError(t, err)
	h2, err := ContentHash(map[string]int{"c": 3, "b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestSeedFromHash(t *testing.T) {
	h, err := ContentHash("spec")
	require.NoError(t, err)

	s1 := SeedFromHash(h)
	s2 := SeedFromHash(h)
	assert.Equal(t, s1, s2)

	assert.Equal(t, uint64(0), SeedFromHash("not-hex"))
	assert.Equal(t, uint64(0), SeedFromHash("abcd"))
}

func TestBuildPlanKey(t *testing.T) {
	key := BuildPlanKey("shipping-choice", "deadbeef")
	assert.Equal(t, "plan:shipping-choice:deadbeef", key)
}
