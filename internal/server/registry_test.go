package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionRegistry_RegisterAndLookup(t *testing.T) {
	r := NewSessionRegistry()
	c := &Client{}

	evicted := r.Register(1, c)
	assert.Nil(t, evicted, "expected no eviction on first register")

	got, ok := r.Lookup(1)
	assert.True(t, ok, "expected user 1 to be registered")
	assert.Same(t, c, got, "expected lookup to return the registered client")

	userId, ok := r.UserFor(c)
	assert.True(t, ok, "expected reverse lookup to succeed")
	assert.Equal(t, 1, userId)
	assert.Equal(t, 1, r.Len())
}

func TestSessionRegistry_LastAuthenticatedWins(t *testing.T) {
	r := NewSessionRegistry()
	first := &Client{}
	second := &Client{}

	assert.Nil(t, r.Register(1, first))

	evicted := r.Register(1, second)
	assert.Same(t, first, evicted, "expected the older connection to be evicted")

	got, ok := r.Lookup(1)
	assert.True(t, ok)
	assert.Same(t, second, got, "expected the newest connection to own the user")

	_, ok = r.UserFor(first)
	assert.False(t, ok, "expected evicted connection to lose its reverse mapping")
	assert.Equal(t, 1, r.Len())
}

func TestSessionRegistry_ReauthSameConnection(t *testing.T) {
	r := NewSessionRegistry()
	c := &Client{}

	assert.Nil(t, r.Register(1, c))
	assert.Nil(t, r.Register(1, c), "expected no eviction when re-authenticating the same connection")

	// Re-auth as a different user drops the old forward mapping.
	assert.Nil(t, r.Register(2, c))

	_, ok := r.Lookup(1)
	assert.False(t, ok, "expected user 1's mapping to be gone")

	got, ok := r.Lookup(2)
	assert.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, r.Len())
}

func TestSessionRegistry_UnregisterClient(t *testing.T) {
	t.Run("removes both mappings", func(t *testing.T) {
		r := NewSessionRegistry()
		c := &Client{}
		r.Register(1, c)

		userId, ok := r.UnregisterClient(c)
		assert.True(t, ok, "expected unregister to report an active session")
		assert.Equal(t, 1, userId)

		_, ok = r.Lookup(1)
		assert.False(t, ok, "expected forward mapping to be removed")
		assert.Equal(t, 0, r.Len())
	})

	t.Run("evicted connection does not unmap the new owner", func(t *testing.T) {
		r := NewSessionRegistry()
		first := &Client{}
		second := &Client{}
		r.Register(1, first)
		r.Register(1, second)

		// The evicted connection's teardown must not disturb the
		// replacement session.
		_, ok := r.UnregisterClient(first)
		assert.False(t, ok, "expected evicted connection to have no session")

		got, ok := r.Lookup(1)
		assert.True(t, ok)
		assert.Same(t, second, got)
	})

	t.Run("unknown client", func(t *testing.T) {
		r := NewSessionRegistry()

		_, ok := r.UnregisterClient(&Client{})
		assert.False(t, ok, "expected unregister of unknown client to report false")
	})
}
