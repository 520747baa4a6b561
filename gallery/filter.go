package gallery

import (
	"slices"
	"strings"
)

// SortMode selects the ordering of the gallery.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortRating    SortMode = "rating"
	SortName      SortMode = "name"
	SortAuthor    SortMode = "author"
)

// ParseSortMode maps user input to a SortMode; anything unknown is relevance.
func ParseSortMode(s string) SortMode {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SortRating, SortName, SortAuthor:
		return m
	default:
		return SortRelevance
	}
}

// FilterState is what the user has chosen in the gallery controls.
type FilterState struct {
	SelectedTags []string `json:"selectedTags"`
	SearchQuery  string   `json:"searchQuery"`
	SortBy       SortMode `json:"sortBy"`
}

// NewFilterState builds a state from raw inputs, dropping blank and repeated tags.
func NewFilterState(tags []string, query string, sortBy SortMode) FilterState {
	s := FilterState{SelectedTags: []string{}, SearchQuery: query, SortBy: sortBy}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(s.SelectedTags, t) {
			continue
		}
		s.SelectedTags = append(s.SelectedTags, t)
	}
	if s.SortBy == "" {
		s.SortBy = SortRelevance
	}
	return s
}

// ToggleTag selects tag, or deselects it if already selected.
func (s *FilterState) ToggleTag(tag string) {
	if i := slices.Index(s.SelectedTags, tag); i >= 0 {
		s.SelectedTags = slices.Delete(slices.Clone(s.SelectedTags), i, i+1)
		return
	}
	s.SelectedTags = append(slices.Clone(s.SelectedTags), tag)
}

func (s *FilterState) SetSearch(q string) {
	s.SearchQuery = q
}

func (s *FilterState) SetSort(m SortMode) {
	s.SortBy = m
}

// ClearFilters drops tags and search. The sort mode is kept.
func (s *FilterState) ClearFilters() {
	s.SelectedTags = []string{}
	s.SearchQuery = ""
}

// query is the normalized search text; "" means no search.
func (s FilterState) query() string {
	return strings.ToLower(strings.TrimSpace(s.SearchQuery))
}

// Active reports whether tags or a search narrow the catalog.
func (s FilterState) Active() bool {
	return len(s.SelectedTags) > 0 || s.query() != ""
}

func (s FilterState) isSelected(tag string) bool {
	return slices.Contains(s.SelectedTags, tag)
}
