package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rpupo63/projectdal-backend/models"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

func withOrderedTags(db *gorm.DB) *gorm.DB {
	return db.Preload("Tags", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

// FindAll returns every project, oldest first, so the gallery's baseline
// order is stable between requests.
func (r *ProjectRepo) FindAll(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project
	err := withOrderedTags(r.db.WithContext(ctx)).
		Order("created_at ASC").
		Find(&projects).Error
	return projects, err
}

// FindByUser returns the projects uploaded by one user, newest first. It
// reads from the primary so a user sees their upload right after inserting it.
func (r *ProjectRepo) FindByUser(ctx context.Context, userID string) ([]*models.Project, error) {
	var projects []*models.Project
	err := withOrderedTags(r.db.WithContext(ctx).Clauses(dbresolver.Write)).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

// FindByID returns a project by its ID, or nil when it does not exist.
func (r *ProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := withOrderedTags(r.db.WithContext(ctx)).First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// InsertProject writes the project and its tags in one transaction.
func (r *ProjectRepo) InsertProject(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}
