package nvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreelistReleaseAcquire(t *testing.T) {
	f := NewFreelist()
	assert.EqualValues(t, 0, f.Len())

	f.Release(5)
	f.Release(3)
	f.Release(9)
	assert.EqualValues(t, 3, f.Len())
	assert.True(t, f.Contains(5))

	slot, ok := f.Acquire()
	assert.True(t, ok)
	assert.EqualValues(t, 3, slot, "Acquire should return the lowest free slot")
	assert.False(t, f.Contains(3))
	assert.EqualValues(t, 2, f.Len())
}

func TestFreelistAcquireEmpty(t *testing.T) {
	f := NewFreelist()
	_, ok := f.Acquire()
	assert.False(t, ok)
}
