package errs

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestNewDatabaseError(t *testing.T) {
	tests := []struct {
		name   string
		cause  error
		status int
		target error
	}{
		{"duplicate", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), http.StatusConflict, ErrAlreadyExists},
		{"missing", gorm.ErrRecordNotFound, http.StatusNotFound, ErrNotFound},
		{"bad conn", driver.ErrBadConn, http.StatusServiceUnavailable, ErrDatabaseConnection},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, ErrDatabaseConnection},
		{"other", errors.New("syntax error at or near"), http.StatusInternalServerError, ErrDatabaseQuery},
		{"nil cause", nil, http.StatusInternalServerError, ErrDatabaseQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDatabaseError("insert", "project", tt.cause)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestIsDatabaseError(t *testing.T) {
	assert.True(t, IsDatabaseError(NewDatabaseError("find", "project", errors.New("boom"))))
	assert.True(t, IsDatabaseError(NewDatabaseError("find", "project", driver.ErrBadConn)))
	assert.False(t, IsDatabaseError(NewDatabaseError("find", "project", gorm.ErrRecordNotFound)))
	assert.False(t, IsDatabaseError(NewNotFoundError("project")))
}

func TestGetFullError(t *testing.T) {
	inner := NewStorageError("project-images", errors.New("timeout"))
	outer := NewDatabaseError("insert", "project", inner)

	assert.Equal(t,
		"database query failed: Failed to insert project -> storage upload failed: Upload to bucket project-images failed -> timeout",
		outer.GetFullError())
}
