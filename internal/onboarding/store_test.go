package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	assert.Zero(t, s.Len())

	_, ok := s.Get(1)
	assert.False(t, ok)

	s.Put(1, awaitingCredentials{})
	s.Put(2, awaitingCredentials{})
	assert.Equal(t, 2, s.Len())

	got, ok := s.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "credentials", got.Step())

	// Put for an existing user replaces the session in place.
	s.Put(1, awaitingCode{client: &fakeClient{}})
	got, ok = s.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "code", got.Step())

	s.Delete(1)
	_, ok = s.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())

	// Deleting an absent key is a no-op.
	s.Delete(99)
	assert.Equal(t, 1, s.Len())
}
