package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBindDirect(t *testing.T) {
	assert.Equal(t, "smith", BindDirect.Bind("smith"))
	assert.Equal(t, 42, BindDirect.Bind(42))
}

func TestBindWildcards(t *testing.T) {
	assert.Equal(t, "%smith%", BindContaining.Bind("smith"))
	assert.Equal(t, "smith%", BindStartingWith.Bind("smith"))
	assert.Equal(t, "%smith", BindEndingWith.Bind("smith"))
}

func TestBindNilPassesThrough(t *testing.T) {
	assert.Nil(t, BindDirect.Bind(nil))
	assert.Nil(t, BindContaining.Bind(nil))
}

func TestBindStringifiesNonStrings(t *testing.T) {
	assert.Equal(t, "%42%", BindContaining.Bind(42))
	assert.Equal(t, "true%", BindStartingWith.Bind(true))
}

func TestBinderFor(t *testing.T) {
	assert.Equal(t, BindContaining, binderFor(OpContaining))
	assert.Equal(t, BindContaining, binderFor(OpNotContaining))
	assert.Equal(t, BindStartingWith, binderFor(OpStartingWith))
	assert.Equal(t, BindEndingWith, binderFor(OpEndingWith))
	assert.Equal(t, BindDirect, binderFor(OpEquals))
	assert.Equal(t, BindDirect, binderFor(OpLike))
}
