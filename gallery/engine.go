package gallery

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	popularLimit = 8
	relatedLimit = 6

	tagWeight    = 0.7
	ratingWeight = 0.2
	freeBonus    = 0.1
	titleBonus   = 0.3
	tagHitBonus  = 0.2
)

// Suggestion labels shown next to the suggested tags.
const (
	LabelPopular = "Popular"
	LabelRelated = "Related"
)

// TagCount is a tag and the number of records carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Result is a record in the ordered view. Score is only set when tags or a
// search were active.
type Result struct {
	ProjectRecord
	Score float64 `json:"score,omitempty"`
}

// View is the gallery as the user currently sees it.
type View struct {
	Results         []Result    `json:"results"`
	Total           int         `json:"total"`
	TagFrequencies  []TagCount  `json:"tagFrequencies"`
	SuggestedTags   []TagCount  `json:"suggestedTags"`
	SuggestionLabel string      `json:"suggestionLabel"`
	FiltersActive   bool        `json:"filtersActive"`
	NoResults       bool        `json:"noResults"`
	Filter          FilterState `json:"filter"`
}

// ComputeView filters, scores, sorts and suggests tags. It never fails and
// does not modify catalog.
func ComputeView(catalog []ProjectRecord, state FilterState) View {
	if state.SelectedTags == nil {
		state.SelectedTags = []string{}
	}
	if state.SortBy == "" {
		state.SortBy = SortRelevance
	}

	results := filter(catalog, state)
	if state.Active() {
		for i := range results {
			results[i].Score = Score(results[i].ProjectRecord, state)
		}
	}
	sortResults(results, state)

	frequencies := TagFrequencies(catalog)
	label := LabelPopular
	if len(state.SelectedTags) > 0 {
		label = LabelRelated
	}

	return View{
		Results:         results,
		Total:           len(results),
		TagFrequencies:  frequencies,
		SuggestedTags:   suggest(catalog, frequencies, state),
		SuggestionLabel: label,
		FiltersActive:   state.Active(),
		NoResults:       len(results) == 0,
		Filter:          state,
	}
}

func filter(catalog []ProjectRecord, state FilterState) []Result {
	q := state.query()
	out := make([]Result, 0, len(catalog))
	for _, rec := range catalog {
		if len(state.SelectedTags) > 0 && !matchesAnyTag(rec, state.SelectedTags) {
			continue
		}
		if q != "" && !matchesSearch(rec, q) {
			continue
		}
		out = append(out, Result{ProjectRecord: rec})
	}
	return out
}

func matchesAnyTag(rec ProjectRecord, selected []string) bool {
	for _, tag := range selected {
		if rec.hasTag(tag) {
			return true
		}
	}
	return false
}

func matchesSearch(rec ProjectRecord, q string) bool {
	return strings.Contains(strings.ToLower(rec.Title), q) ||
		strings.Contains(strings.ToLower(rec.Description), q) ||
		strings.Contains(strings.ToLower(rec.Author), q) ||
		anyTagContains(rec, q)
}

func anyTagContains(rec ProjectRecord, q string) bool {
	for _, t := range rec.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Score is the relevance of rec under state. The search bonus is added
// unweighted, so scores can exceed 1.
func Score(rec ProjectRecord, state FilterState) float64 {
	var tagScore float64
	if n := len(state.SelectedTags); n > 0 {
		matched := 0
		for _, tag := range state.SelectedTags {
			if rec.hasTag(tag) {
				matched++
			}
		}
		tagScore = float64(matched) / float64(max(1, n))
	}

	var searchBonus float64
	if q := state.query(); q != "" {
		if strings.Contains(strings.ToLower(rec.Title), q) {
			searchBonus += titleBonus
		}
		if anyTagContains(rec, q) {
			searchBonus += tagHitBonus
		}
	}

	var free float64
	if rec.Price == FreePrice {
		free = freeBonus
	}

	return tagScore*tagWeight + (rec.Rating/5)*ratingWeight + free + searchBonus
}

func sortResults(results []Result, state FilterState) {
	switch state.SortBy {
	case SortRating:
		slices.SortStableFunc(results, func(a, b Result) int {
			switch {
			case a.Rating > b.Rating:
				return -1
			case a.Rating < b.Rating:
				return 1
			}
			return 0
		})
	case SortName:
		c := collate.New(language.English)
		slices.SortStableFunc(results, func(a, b Result) int {
			return c.CompareString(a.Title, b.Title)
		})
	case SortAuthor:
		c := collate.New(language.English)
		slices.SortStableFunc(results, func(a, b Result) int {
			return c.CompareString(a.Author, b.Author)
		})
	default:
		if !state.Active() {
			return
		}
		slices.SortStableFunc(results, func(a, b Result) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return 0
		})
	}
}

// TagFrequencies counts, for every tag, how many records carry it. The result
// is ordered by count descending, ties in first-seen order.
func TagFrequencies(catalog []ProjectRecord) []TagCount {
	return countTags(catalog, nil)
}

func countTags(records []ProjectRecord, skip func(string) bool) []TagCount {
	index := make(map[string]int)
	var counts []TagCount
	for _, rec := range records {
		for _, tag := range rec.uniqueTags() {
			if skip != nil && skip(tag) {
				continue
			}
			i, ok := index[tag]
			if !ok {
				i = len(counts)
				index[tag] = i
				counts = append(counts, TagCount{Name: tag})
			}
			counts[i].Count++
		}
	}
	slices.SortStableFunc(counts, func(a, b TagCount) int {
		return b.Count - a.Count
	})
	if counts == nil {
		counts = []TagCount{}
	}
	return counts
}

func suggest(catalog []ProjectRecord, frequencies []TagCount, state FilterState) []TagCount {
	if len(state.SelectedTags) == 0 {
		return slices.Clone(frequencies[:min(popularLimit, len(frequencies))])
	}

	var matching []ProjectRecord
	for _, rec := range catalog {
		if matchesAnyTag(rec, state.SelectedTags) {
			matching = append(matching, rec)
		}
	}
	related := countTags(matching, state.isSelected)
	return related[:min(relatedLimit, len(related))]
}
