package api

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/projectdal-backend/errs"
	"github.com/rpupo63/projectdal-backend/models"
	"github.com/rpupo63/projectdal-backend/services"
	"github.com/rpupo63/projectdal-backend/storage"
	"github.com/rpupo63/projectdal-backend/upload"
)

const notifyTimeout = 30 * time.Second

var textFields = []string{
	upload.FieldProjectTitle,
	upload.FieldSubtitle,
	upload.FieldProjectDescription,
	upload.FieldUploaderName,
	upload.FieldProjectCategory,
	upload.FieldTags,
	upload.FieldGithubRepo,
	upload.FieldDrive,
}

type projectHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  ProjectStore
	catalog   CatalogSource
	storage   storage.Service
	notifier  Notifier
	opts      projectOptions

	// inFlight holds the user IDs with a submission running.
	inFlight sync.Map
}

type projectOptions struct {
	upload         upload.Config
	maxUploadBytes int64
	baseURL        string
	secureCookies  bool
}

func newProjectHandler(projects ProjectStore, catalog CatalogSource, store storage.Service, notifier Notifier, opts projectOptions) *projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return &projectHandler{
		responder: NewResponder(logger),
		logger:    logger,
		projects:  projects,
		catalog:   catalog,
		storage:   store,
		notifier:  notifier,
		opts:      opts,
	}
}

// getProject returns one project. Uploaded projects are read from the
// database; featured cards, whose ids are not UUIDs, come from the catalog.
// @Summary Get project
// @Description Retrieves a project by its ID
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project ID"
// @Success 200 {object} models.Project "Uploaded project"
// @Success 200 {object} gallery.ProjectRecord "Featured project"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid project ID"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error retrieving project"
// @Router /project/{projectID} [get]
func (h *projectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectIDStr := chi.URLParam(r, "projectID")
		if strings.TrimSpace(projectIDStr) == "" {
			h.responder.WriteError(w, errs.NewBadRequestError("invalid projectID"))
			return
		}

		if projectID, err := uuid.Parse(projectIDStr); err == nil {
			project, err := h.projects.FindByID(r.Context(), projectID)
			if err != nil {
				h.responder.WriteError(w, wrapDatabaseError("find project", "project", err))
				return
			}
			if project == nil {
				h.responder.WriteError(w, errs.NewNotFoundError("project not found"))
				return
			}
			h.responder.WriteJSON(w, project)
			return
		}

		records, err := h.catalog.Catalog(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("load catalog", "project", err))
			return
		}
		for _, rec := range records {
			if rec.ID == projectIDStr {
				h.responder.WriteJSON(w, rec)
				return
			}
		}
		h.responder.WriteError(w, errs.NewNotFoundError("project not found"))
	}
}

// getMyProjects returns the signed-in user's uploads
// @Summary List my projects
// @Description Returns every project uploaded by the signed-in user, oldest first
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProjectCollection
// @Failure 401 {object} ErrorResponse "Unauthorized - Sign in required"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error retrieving projects"
// @Router /my-projects [get]
func (h *projectHandler) getMyProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromCtx(r.Context())

		projects, err := h.projects.FindByUser(r.Context(), session.UserID)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find projects", "project", err))
			return
		}
		if projects == nil {
			projects = []*models.Project{}
		}

		h.responder.WriteJSON(w, ProjectCollection{Projects: projects, Total: len(projects)})
	}
}

// createProject submits the upload form
// @Summary Upload project
// @Description Validates the form, uploads its images and archive, and stores the project
// @Tags Projects
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Success 201 {object} SubmissionResponse "Stored project"
// @Failure 401 {object} AuthRequiredResponse "Sign in required - follow signInUrl"
// @Failure 409 {object} ErrorResponse "Conflict - A submission is already running"
// @Failure 415 {object} ErrorResponse "Unsupported Media Type - Body is not multipart/form-data"
// @Failure 422 {object} ValidationResponse "Invalid fields"
// @Failure 502 {object} SubmissionResponse "Upload failed"
// @Router /project [post]
func (h *projectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		authSvc := authFromCtx(ctx)

		if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "multipart/form-data" {
			h.responder.WriteError(w, errs.NewInvalidContentTypeError(r.Header.Get("Content-Type")))
			return
		}

		if session := sessionFromCtx(ctx); session != nil {
			if _, busy := h.inFlight.LoadOrStore(session.UserID, struct{}{}); busy {
				h.responder.WriteError(w, errs.NewConflictError("a submission is already in progress"))
				return
			}
			defer h.inFlight.Delete(session.UserID)
		}

		if r.ContentLength > h.opts.maxUploadBytes {
			h.responder.WriteError(w, errs.NewMaxBodySizeExceededError(h.opts.maxUploadBytes))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.responder.WriteError(w, errs.NewMaxBodySizeExceededError(h.opts.maxUploadBytes))
				return
			}
			h.responder.WriteError(w, errs.NewMalformedPayloadError("multipart", err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		form := upload.NewForm(ctx, authSvc, h.storage, h.projects, h.opts.upload)
		defer form.Close()

		for _, field := range textFields {
			if err := form.SetText(field, r.FormValue(field)); err != nil {
				h.responder.WriteError(w, errs.NewBadRequestError(err.Error()))
				return
			}
		}

		var images []storage.File
		for _, fh := range r.MultipartForm.File[upload.FieldImages] {
			images = append(images, storage.FromMultipart(fh))
		}
		form.SetImages(images)
		if files := r.MultipartForm.File[upload.FieldFiles]; len(files) > 0 {
			form.SetArchive(storage.FromMultipart(files[0]))
		}

		outcome, err := form.Submit(ctx)
		if err != nil {
			if errors.Is(err, upload.ErrSubmitInProgress) {
				h.responder.WriteError(w, errs.NewConflictError("a submission is already in progress"))
				return
			}
			h.responder.WriteError(w, err)
			return
		}

		h.writeOutcome(w, outcome)
	}
}

func (h *projectHandler) writeOutcome(w http.ResponseWriter, outcome *upload.Outcome) {
	switch outcome.Status {
	case upload.StatusSuccess:
		h.catalog.Invalidate()
		h.announce(outcome.Project)
		h.responder.WriteStatus(w, http.StatusCreated, SubmissionResponse{
			Status:  string(outcome.Status),
			Project: outcome.Project,
		})
	case upload.StatusInvalid:
		h.responder.WriteValidationErrors(w, outcome.Errors)
	case upload.StatusAuthRequired:
		setVerifierCookie(w, outcome.SignIn, h.opts.secureCookies)
		h.responder.WriteStatus(w, http.StatusUnauthorized, AuthRequiredResponse{
			Status:    string(outcome.Status),
			SignInURL: outcome.SignIn.URL,
			Provider:  outcome.SignIn.Provider,
		})
	default:
		h.responder.WriteStatus(w, http.StatusBadGateway, SubmissionResponse{
			Status:  string(outcome.Status),
			Message: outcome.Message,
		})
	}
}

// announce tells the maintainers about a new project without holding up the
// response.
func (h *projectHandler) announce(project *models.Project) {
	if h.notifier == nil || project == nil {
		return
	}
	notice := services.ProjectNotice(project, h.opts.baseURL)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := h.notifier.Notify(ctx, notice); err != nil {
			h.logger.Warn().Err(err).Str("projectID", project.ID.String()).Msg("project announcement failed")
		}
	}()
}
