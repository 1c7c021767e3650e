package collector

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_SortsAndDeduplicates(t *testing.T) {
	set := NewBuilder().
		AddName("q").
		AddName("a").
		AddName("z").
		AddName("m").
		AddName("a").
		Build()

	assert.Equal(t, []string{"a", "m", "q", "z"}, set.Names())
	assert.Equal(t, 4, set.Len())
}

func TestBuild_InsertionOrderDoesNotMatter(t *testing.T) {
	names := []string{"zeta", "Alpha", "alpha", "beta", "_x", "beta2"}

	b1 := NewBuilder()
	for _, n := range names {
		b1.AddName(n)
	}
	b2 := NewBuilder()
	for _, n := range slices.Backward(names) {
		b2.AddName(n)
	}

	got := b1.Build().Names()
	assert.Equal(t, got, b2.Build().Names())
	// Byte order: upper case before underscore before lower case.
	assert.Equal(t, []string{"Alpha", "_x", "alpha", "beta", "beta2", "zeta"}, got)
}

func TestBuild_Empty(t *testing.T) {
	set := NewBuilder().Build()
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Names())
	assert.Empty(t, slices.Collect(set.All()))
}

func TestBuilder_Len(t *testing.T) {
	b := NewBuilder()
	b.AddName("a").AddName("a").AddName("b")
	assert.Equal(t, 2, b.Len())
}

func TestBuilder_SingleShot(t *testing.T) {
	b := NewBuilder().AddName("a")
	b.Build()

	assert.Panics(t, func() { b.AddName("b") })
	assert.Panics(t, func() { b.Build() })
}

func TestNameSet_NamesIsACopy(t *testing.T) {
	set := NewBuilder().AddName("a").AddName("b").Build()

	names := set.Names()
	names[0] = "changed"

	assert.Equal(t, []string{"a", "b"}, set.Names())
}

func TestNameSet_AllAndContains(t *testing.T) {
	set := NewBuilder().AddName("b").AddName("a").Build()

	assert.Equal(t, []string{"a", "b"}, slices.Collect(set.All()))
	assert.True(t, set.Contains("a"))
	assert.False(t, set.Contains("c"))
	assert.False(t, NameSet{}.Contains("a"))
}
