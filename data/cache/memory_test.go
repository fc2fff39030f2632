package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore()

	store.Set("a", 42, time.Minute)

	value, ok := store.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 42, value)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()

	store.Set("expired", "x", -time.Second)
	store.Set("alive", "y", time.Minute)

	_, ok := store.Get("expired")
	assert.False(t, ok)
	_, ok = store.Get("alive")
	assert.True(t, ok)
}

func TestMemoryStoreClearExpired(t *testing.T) {
	store := NewMemoryStore()

	store.Set("expired1", 1, -time.Second)
	store.Set("expired2", 2, -time.Second)
	store.Set("alive", 3, time.Minute)

	removed := store.ClearExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.Len())

	_, ok := store.Get("alive")
	assert.True(t, ok)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()

	store.Set("a", 1, time.Minute)
	store.Delete("a")

	_, ok := store.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}
