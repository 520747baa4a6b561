package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Feedback is a message left through the feedback form.
type Feedback struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	Email     string    `json:"email" db:"email" gorm:"type:text;not null"`
	Message   string    `json:"message" db:"message" gorm:"type:text;not null"`
	UserID    *string   `json:"user_id,omitempty" db:"user_id" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Feedback) TableName() string {
	return "feedback"
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
