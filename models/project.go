package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UploadPrice is stored on every uploaded project; price is not user controlled.
const UploadPrice = "free"

// Project is a submitted engineering project as stored in engineering_projects.
type Project struct {
	ID           uuid.UUID                   `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	Title        string                      `json:"title" db:"title" gorm:"type:text;not null"`
	Subtitle     string                      `json:"subtitle" db:"subtitle" gorm:"type:text;not null"`
	Description  string                      `json:"description" db:"description" gorm:"type:text;not null"`
	UploaderName string                      `json:"uploader_name" db:"uploader_name" gorm:"type:text;not null"`
	Category     string                      `json:"category" db:"category" gorm:"type:text;not null;index:idx_engineering_projects_category"`
	Price        string                      `json:"price" db:"price" gorm:"type:text;not null;default:'free'"`
	Rating       float64                     `json:"rating" db:"rating" gorm:"type:numeric(2,1);not null;default:0"`
	ImageURLs    datatypes.JSONSlice[string] `json:"image_urls" db:"image_urls" gorm:"type:jsonb;not null"`
	FileURL      *string                     `json:"file_url,omitempty" db:"file_url" gorm:"type:text"`
	GithubRepo   *string                     `json:"github_repo,omitempty" db:"github_repo" gorm:"type:text"`
	Drive        *string                     `json:"drive,omitempty" db:"drive" gorm:"type:text"`
	UserID       string                      `json:"user_id" db:"user_id" gorm:"type:text;not null;index:idx_engineering_projects_user_id"`
	CreatedAt    time.Time                   `json:"created_at" db:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	Tags         []ProjectTag                `json:"tags,omitempty" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Project) TableName() string {
	return "engineering_projects"
}

// BeforeCreate assigns ids client side so tags can reference the project
// inside the same insert.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Price == "" {
		p.Price = UploadPrice
	}
	if p.ImageURLs == nil {
		p.ImageURLs = datatypes.JSONSlice[string]{}
	}
	return nil
}

// TagValues returns the tag values in stored order.
func (p Project) TagValues() []string {
	values := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		values = append(values, t.Value)
	}
	return values
}

// CoverImage is the first uploaded image, or "" when there is none.
func (p Project) CoverImage() string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}
