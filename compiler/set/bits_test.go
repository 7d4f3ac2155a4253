package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBits(t *testing.T) {
	var s Bits[int]

	assert.False(t, s.Has(3))
	assert.Equal(t, 0, s.Len())

	assert.True(t, s.Add(3))
	assert.False(t, s.Add(3))
	assert.True(t, s.Add(130))

	assert.True(t, s.Has(3))
	assert.True(t, s.Has(130))
	assert.False(t, s.Has(64))
	assert.False(t, s.Has(1000))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []int{3, 130}, s.Keys())

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Keys())
}

func TestBitsCopyEqual(t *testing.T) {
	var a Bits[int]
	a.Add(1)
	a.Add(2)

	c := a.Copy()
	assert.True(t, c.Equal(a))

	c.Add(70)
	assert.False(t, c.Equal(a))
	assert.Equal(t, []int{1, 2, 70}, c.Keys())
	assert.Equal(t, []int{1, 2}, a.Keys(), "copy is independent")

	var empty, x Bits[int]
	x.Add(200)
	x.Reset()
	assert.True(t, empty.Equal(x), "trailing zero words do not matter")
	assert.True(t, x.Equal(empty))
}

func TestBitsRangeStops(t *testing.T) {
	var s Bits[int]
	s.Add(1)
	s.Add(5)
	s.Add(9)

	var got []int
	s.Range(func(k int) bool {
		got = append(got, k)
		return k < 5
	})

	assert.Equal(t, []int{1, 5}, got)
}
