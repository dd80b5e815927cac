package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDMatchesGrammar(t *testing.T) {
	for _, prefix := range []string{"doc", "block", "rubric_item", "eval"} {
		id := NewID(prefix)
		assert.True(t, ValidID(id), id)
		assert.Equal(t, prefix, IDPrefix(id))
	}
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("rubric_item_1698768000000_abc123"))
	assert.False(t, ValidID("rubric_item_123_abc123"))       // short timestamp
	assert.False(t, ValidID("rubric_item_1698768000000_ab")) // short suffix
	assert.False(t, ValidID("no-dashes_1698768000000_abc123"))
	assert.False(t, ValidID(""))
}

func TestIDTimestamp(t *testing.T) {
	id := NewDocID()
	ts, ok := IDTimestamp(id)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)

	_, ok = IDTimestamp("garbage")
	assert.False(t, ok)
}

func TestIsIDType(t *testing.T) {
	assert.True(t, IsIDType(NewRubricItemID(), "rubric_item"))
	assert.False(t, IsIDType(NewRubricItemID(), "rubric"))
	assert.False(t, IsIDType("garbage", "rubric"))
}

func TestNewIDsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for range 100 {
		id := NewBlockID()
		_, dup := seen[id]
		require.False(t, dup, id)
		seen[id] = struct{}{}
	}
}
