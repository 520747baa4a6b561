package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rpupo63/projectdal-backend/auth"
	"github.com/rpupo63/projectdal-backend/config"
	"github.com/rpupo63/projectdal-backend/feedback"
	"github.com/rpupo63/projectdal-backend/gallery"
	"github.com/rpupo63/projectdal-backend/metrics"
	"github.com/rpupo63/projectdal-backend/models"
	"github.com/rpupo63/projectdal-backend/services"
	"github.com/rpupo63/projectdal-backend/storage"
	"github.com/rpupo63/projectdal-backend/upload"
)

// ProjectStore is the project persistence the handlers need.
type ProjectStore interface {
	FindByUser(ctx context.Context, userID string) ([]*models.Project, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	InsertProject(ctx context.Context, project *models.Project) error
}

// CatalogSource serves the merged gallery catalog.
type CatalogSource interface {
	Catalog(ctx context.Context) ([]gallery.ProjectRecord, error)
	Invalidate()
}

type FeedbackSubmitter interface {
	Submit(ctx context.Context, e feedback.Entry, userID string) (*models.Feedback, error)
}

type Notifier interface {
	Notify(ctx context.Context, n services.Notice) error
}

// Dependencies is everything the router wires into its handlers. Notifier,
// Metrics and Files may be nil.
type Dependencies struct {
	Projects     ProjectStore
	Catalog      CatalogSource
	Feedback     FeedbackSubmitter
	AuthProvider auth.Provider
	Storage      storage.Service
	Notifier     Notifier
	Metrics      *metrics.Metrics
	// Files serves locally stored uploads under /uploads/.
	Files http.Handler
}

type routeHandlers struct {
	galleryHandler  galleryHandler
	projectHandler  *projectHandler
	feedbackHandler feedbackHandler
	authHandler     authHandler
	healthHandler   healthHandler
}

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Dependencies, c map[string]string, opts router) *routeHandlers {
	uploadCfg := upload.Config{
		Buckets: upload.Buckets{
			Images: config.GetString(c, "STORAGE_IMAGES_BUCKET", "project-images"),
			Files:  config.GetString(c, "STORAGE_FILES_BUCKET", "project-files"),
		},
		SignInProvider:    config.GetString(c, "SIGN_IN_PROVIDER", "github"),
		UploadConcurrency: opts.uploadConcurrency,
		Metrics:           deps.Metrics,
	}

	projects := newProjectHandler(deps.Projects, deps.Catalog, deps.Storage, deps.Notifier, projectOptions{
		upload:         uploadCfg,
		maxUploadBytes: opts.maxUploadBytes,
		baseURL:        services.GetBaseURL(c),
		secureCookies:  opts.secureCookies,
	})

	return &routeHandlers{
		galleryHandler:  newGalleryHandler(deps.Catalog, deps.Metrics),
		projectHandler:  projects,
		feedbackHandler: newFeedbackHandler(deps.Feedback),
		authHandler:     newAuthHandler(opts.secureCookies),
		healthHandler:   newHealthHandler(opts.startupTime),
	}
}
