package xset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashSetBasics(t *testing.T) {
	s := NewHashSet[string]()
	assert.True(t, s.IsEmpty())
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Contains("a"))
	assert.Equal(t, 1, s.Size())
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
}

func TestLinkedSetPreservesInsertionOrder(t *testing.T) {
	s := NewLinkedSet[int]()
	s.AddAll(3, 1, 2, 1)
	assert.Equal(t, []int{3, 1, 2}, s.ToSlice())

	s.Remove(1)
	assert.Equal(t, []int{3, 2}, s.ToSlice())
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewHashSet[int](1, 2, 3)
	c := s.Clone()
	c.Add(4)
	assert.False(t, s.Contains(4))
	assert.True(t, c.Contains(4))
}
