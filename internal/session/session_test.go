package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	s := NewStore(time.Hour)
	sess := s.Create("alice", "grader")
	require.NotEmpty(t, sess.Token)

	got, ok := s.Get(sess.Token)
	require.True(t, ok)
	assert.Equal(t, "alice", got.Subject)
	assert.Equal(t, "grader", got.Role)
	assert.Equal(t, 1, s.Active())
}

func TestGetUnknownToken(t *testing.T) {
	s := NewStore(time.Hour)
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

func TestExpiredSessionDropped(t *testing.T) {
	s := NewStore(time.Nanosecond)
	sess := s.Create("bob", "student")
	time.Sleep(time.Millisecond)

	_, ok := s.Get(sess.Token)
	assert.False(t, ok)
	assert.Zero(t, s.Active())
}

func TestDelete(t *testing.T) {
	s := NewStore(time.Hour)
	sess := s.Create("carol", "admin")
	s.Delete(sess.Token)
	_, ok := s.Get(sess.Token)
	assert.False(t, ok)
}

func TestTokensUnique(t *testing.T) {
	s := NewStore(time.Hour)
	a := s.Create("a", "student")
	b := s.Create("b", "student")
	assert.NotEqual(t, a.Token, b.Token)
}
