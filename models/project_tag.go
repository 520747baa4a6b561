package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectTag represents a tag associated with a project. Position keeps the
// order the uploader typed them in.
type ProjectTag struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	ProjectID uuid.UUID `json:"project_id" db:"project_id" gorm:"type:uuid;not null;index:idx_project_tag_project_id"`
	Value     string    `json:"value" db:"value" gorm:"type:text;not null;index:idx_project_tag_value"`
	Position  int       `json:"position" db:"position" gorm:"type:integer;not null;default:0"`
}

func (t *ProjectTag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// NewProjectTags builds tag rows from values, preserving order.
func NewProjectTags(values []string) []ProjectTag {
	tags := make([]ProjectTag, 0, len(values))
	for i, v := range values {
		tags = append(tags, ProjectTag{Value: v, Position: i})
	}
	return tags
}
