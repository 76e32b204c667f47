package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComparisonSelection(t *testing.T) {
	sel := NewComparisonSelection()
	assert.Zero(t, sel.Len())

	assert.True(t, sel.Add("t1"))
	assert.True(t, sel.Add("t2"))
	assert.False(t, sel.Add("t1"), "duplicates are ignored")
	assert.Equal(t, 2, sel.Len())
	assert.Equal(t, []string{"t1", "t2"}, sel.IDs(), "insertion order is preserved")
	assert.True(t, sel.Contains("t2"))

	sel.Remove("t1")
	assert.False(t, sel.Contains("t1"))
	assert.Equal(t, []string{"t2"}, sel.IDs())

	// Removing an absent id is a no-op.
	sel.Remove("t9")
	assert.Equal(t, 1, sel.Len())

	// An id can be re-added after removal.
	assert.True(t, sel.Add("t1"))
	assert.Equal(t, []string{"t2", "t1"}, sel.IDs())
}
