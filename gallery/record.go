// Package gallery filters, ranks and suggests tags for the project catalog.
// Everything here is a pure function of the catalog and a FilterState.
package gallery

import (
	"github.com/rpupo63/projectdal-backend/models"
)

// FreePrice is the price literal that earns the free bonus when ranking.
const FreePrice = "Free"

// ProjectRecord is one card in the gallery.
type ProjectRecord struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Author      string   `json:"author" yaml:"author"`
	Category    string   `json:"category" yaml:"category"`
	Tags        []string `json:"tags" yaml:"tags"`
	Rating      float64  `json:"rating" yaml:"rating"`
	Price       string   `json:"price" yaml:"price"`
	Image       string   `json:"image" yaml:"image"`
}

// Normalize makes a record safe for the engine: tags are never nil and the
// rating is clamped to 0..5.
func (r ProjectRecord) Normalize() ProjectRecord {
	if r.Tags == nil {
		r.Tags = []string{}
	}
	switch {
	case r.Rating < 0:
		r.Rating = 0
	case r.Rating > 5:
		r.Rating = 5
	}
	return r
}

// FromProject converts a stored project into a gallery record.
func FromProject(p *models.Project) ProjectRecord {
	return ProjectRecord{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		Author:      p.UploaderName,
		Category:    p.Category,
		Tags:        p.TagValues(),
		Rating:      p.Rating,
		Price:       p.Price,
		Image:       p.CoverImage(),
	}.Normalize()
}

func (r ProjectRecord) hasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// uniqueTags returns the record's tags with repeats dropped, first occurrence kept.
func (r ProjectRecord) uniqueTags() []string {
	seen := make(map[string]bool, len(r.Tags))
	out := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
