package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)

	assert.True(t, c.Has("grader", "eval:run"))
	assert.True(t, c.Has("grader", "rubric:create"))
	assert.False(t, c.Has("student", "eval:run"))
	assert.True(t, c.Has("student", "submission:create"))
	assert.True(t, c.Has("admin", "anything:at-all"))
	assert.False(t, c.Has("unknown-role", "rubric:view"))
}

func TestWildcardPatterns(t *testing.T) {
	c := NewChecker(map[string][]string{
		"auditor": {"result:*"},
	})
	assert.True(t, c.Has("auditor", "result:view"))
	assert.True(t, c.Has("auditor", "result:view-own"))
	assert.False(t, c.Has("auditor", "rubric:view"))
}

func TestAny(t *testing.T) {
	c := NewChecker(nil)
	assert.True(t, c.Any("student", "result:view", "result:view-own"))
	assert.False(t, c.Any("student", "eval:run", "rubric:create"))
}
