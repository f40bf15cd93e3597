package tagging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeTags_AppendsNewTags(t *testing.T) {
	merged, changed := MergeTags([]string{"handmade", "sale"}, []string{"premium"})

	assert.True(t, changed)
	assert.Equal(t, []string{"handmade", "sale", "premium"}, merged)
}

func TestMergeTags_NoChangeWhenAllPresent(t *testing.T) {
	merged, changed := MergeTags([]string{"premium", "sale"}, []string{"sale", "premium"})

	assert.False(t, changed)
	assert.Equal(t, []string{"premium", "sale"}, merged)
}

func TestMergeTags_PreservesExistingOrder(t *testing.T) {
	merged, changed := MergeTags([]string{"z", "a", "m"}, []string{"a", "b"})

	assert.True(t, changed)
	assert.Equal(t, []string{"z", "a", "m", "b"}, merged)
}

func TestMergeTags_EmptyCurrent(t *testing.T) {
	merged, changed := MergeTags(nil, []string{"sale"})

	assert.True(t, changed)
	assert.Equal(t, []string{"sale"}, merged)
}

func TestMergeTags_EmptyMatched(t *testing.T) {
	merged, changed := MergeTags([]string{"sale"}, nil)

	assert.False(t, changed)
	assert.Equal(t, []string{"sale"}, merged)
}

func TestMergeTags_DedupesMatched(t *testing.T) {
	merged, changed := MergeTags(nil, []string{"sale", "sale", "featured"})

	assert.True(t, changed)
	assert.Equal(t, []string{"sale", "featured"}, merged)
}
