package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestProjectBeforeCreateDefaults(t *testing.T) {
	p := &Project{Title: "Line follower"}
	require.NoError(t, p.BeforeCreate(nil))

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, UploadPrice, p.Price)
	assert.NotNil(t, p.ImageURLs)
}

func TestProjectBeforeCreateKeepsID(t *testing.T) {
	id := uuid.New()
	p := &Project{ID: id, Price: "$15"}
	require.NoError(t, p.BeforeCreate(nil))

	assert.Equal(t, id, p.ID)
	assert.Equal(t, "$15", p.Price)
}

func TestNewProjectTagsKeepsOrder(t *testing.T) {
	tags := NewProjectTags([]string{"Robotics", "AI", "Robotics"})
	require.Len(t, tags, 3)
	assert.Equal(t, 2, tags[2].Position)

	p := Project{Tags: tags}
	assert.Equal(t, []string{"Robotics", "AI", "Robotics"}, p.TagValues())
}

func TestCoverImage(t *testing.T) {
	assert.Equal(t, "", Project{}.CoverImage())
	p := Project{ImageURLs: datatypes.JSONSlice[string]{"https://cdn/a.png", "https://cdn/b.png"}}
	assert.Equal(t, "https://cdn/a.png", p.CoverImage())
}
