package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSortMode(t *testing.T) {
	tests := map[string]SortMode{
		"rating":    SortRating,
		" Name ":    SortName,
		"AUTHOR":    SortAuthor,
		"relevance": SortRelevance,
		"":          SortRelevance,
		"price":     SortRelevance,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseSortMode(in), in)
	}
}

func TestNewFilterState_DropsBlankAndRepeatedTags(t *testing.T) {
	s := NewFilterState([]string{"AI", " ", "Robotics", "AI", " Robotics "}, "bot", "")
	assert.Equal(t, []string{"AI", "Robotics"}, s.SelectedTags)
	assert.Equal(t, SortRelevance, s.SortBy)
}

func TestToggleTag(t *testing.T) {
	s := NewFilterState(nil, "", SortRelevance)
	s.ToggleTag("AI")
	s.ToggleTag("Robotics")
	assert.Equal(t, []string{"AI", "Robotics"}, s.SelectedTags)

	s.ToggleTag("AI")
	assert.Equal(t, []string{"Robotics"}, s.SelectedTags)
}

func TestToggleTag_DoesNotAliasCopies(t *testing.T) {
	s := NewFilterState([]string{"A", "B", "C"}, "", "")
	copied := s
	s.ToggleTag("A")
	assert.Equal(t, []string{"A", "B", "C"}, copied.SelectedTags)
	assert.Equal(t, []string{"B", "C"}, s.SelectedTags)
}

func TestClearFilters_IsIdempotentAndKeepsSort(t *testing.T) {
	s := NewFilterState([]string{"AI"}, "robot", SortRating)

	s.ClearFilters()
	once := s
	s.ClearFilters()

	assert.Equal(t, once, s)
	assert.Empty(t, s.SelectedTags)
	assert.Empty(t, s.SearchQuery)
	assert.Equal(t, SortRating, s.SortBy)
	assert.False(t, s.Active())
}

func TestSetSearchAndSort(t *testing.T) {
	var s FilterState
	s.SetSearch("  ")
	assert.False(t, s.Active())
	s.SetSearch("Bot")
	assert.True(t, s.Active())
	assert.Equal(t, "bot", s.query())

	s.SetSort(SortAuthor)
	assert.Equal(t, SortAuthor, s.SortBy)
}
