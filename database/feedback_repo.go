package database

import (
	"context"

	"github.com/rpupo63/projectdal-backend/models"
	"gorm.io/gorm"
)

type FeedbackRepo struct {
	db *gorm.DB
}

func NewFeedbackRepo(db *gorm.DB) *FeedbackRepo {
	return &FeedbackRepo{db}
}

// Add inserts a feedback entry.
func (r *FeedbackRepo) Add(ctx context.Context, feedback *models.Feedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}
