package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/rpupo63/projectdal-backend/auth"
	"github.com/rpupo63/projectdal-backend/metrics"
	"github.com/rpupo63/projectdal-backend/models"
	"github.com/rpupo63/projectdal-backend/storage"
)

// ErrSubmitInProgress is returned when Submit is called while another
// submission of the same form is still running.
var ErrSubmitInProgress = errors.New("submission already in progress")

// FailureMessage is what the user sees when a collaborator fails.
const FailureMessage = "Upload failed, please try again."

type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateInvalid    State = "invalid"
	StateUploading  State = "uploading"
	StateInserting  State = "inserting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

type Status string

const (
	StatusSuccess      Status = "success"
	StatusInvalid      Status = "invalid"
	StatusAuthRequired Status = "auth_required"
	StatusFailed       Status = "failed"
)

// Authenticator is the session collaborator the form gates on.
type Authenticator interface {
	GetSession(ctx context.Context) (*auth.Session, error)
	OnChange(l auth.Listener) (unsubscribe func())
	SignInWithOAuth(ctx context.Context, provider string) (*auth.AuthRequest, error)
}

// Persistence stores a submitted project.
type Persistence interface {
	InsertProject(ctx context.Context, project *models.Project) error
}

type Buckets struct {
	Images string
	Files  string
}

type Config struct {
	Buckets        Buckets
	SignInProvider string
	// UploadConcurrency bounds parallel image uploads. Zero means 4.
	UploadConcurrency int
	Metrics           *metrics.Metrics
	// OnStateChange, when set, sees every state the form enters.
	OnStateChange func(State)
}

func (c Config) withDefaults() Config {
	if c.Buckets.Images == "" {
		c.Buckets.Images = "project-images"
	}
	if c.Buckets.Files == "" {
		c.Buckets.Files = "project-files"
	}
	if c.SignInProvider == "" {
		c.SignInProvider = "github"
	}
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = 4
	}
	return c
}

// Outcome is the result of one Submit.
type Outcome struct {
	Status  Status            `json:"status"`
	Message string            `json:"message,omitempty"`
	Errors  ErrorMap          `json:"errors,omitempty"`
	Project *models.Project   `json:"project,omitempty"`
	SignIn  *auth.AuthRequest `json:"signIn,omitempty"`
	Cause   error             `json:"-"`
}

// Form owns one draft and drives its submission.
type Form struct {
	auth        Authenticator
	storage     storage.Service
	persistence Persistence
	cfg         Config
	logger      zerolog.Logger

	submitting  atomic.Bool
	unsubscribe func()

	mu         sync.Mutex
	draft      Draft
	errors     ErrorMap
	state      State
	session    *auth.Session
	sessionSet bool
}

// NewForm creates an empty form and starts following session changes. Call
// Close when done with it.
func NewForm(ctx context.Context, a Authenticator, s storage.Service, p Persistence, cfg Config) *Form {
	f := &Form{
		auth:        a,
		storage:     s,
		persistence: p,
		cfg:         cfg.withDefaults(),
		logger:      log.With().Str("component", "uploadForm").Logger(),
		errors:      ErrorMap{},
		state:       StateIdle,
	}

	f.unsubscribe = a.OnChange(func(e auth.Event) {
		f.mu.Lock()
		f.session = e.Session
		f.sessionSet = true
		f.mu.Unlock()
	})

	session, err := a.GetSession(ctx)
	if err != nil {
		f.logger.Warn().Err(err).Msg("could not read session")
	}
	f.mu.Lock()
	if !f.sessionSet {
		f.session = session
	}
	f.mu.Unlock()
	return f
}

// Close stops following session changes.
func (f *Form) Close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
	}
}

// SetText sets one of the text fields and clears its error.
func (f *Form) SetText(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case FieldProjectTitle:
		f.draft.ProjectTitle = value
	case FieldSubtitle:
		f.draft.Subtitle = value
	case FieldProjectDescription:
		f.draft.ProjectDescription = value
	case FieldUploaderName:
		f.draft.UploaderName = value
	case FieldProjectCategory:
		f.draft.ProjectCategory = value
	case FieldTags:
		f.draft.Tags = value
	case FieldGithubRepo:
		f.draft.GithubRepo = value
	case FieldDrive:
		f.draft.Drive = value
	default:
		return fmt.Errorf("unknown text field %q", field)
	}
	f.errors.Clear(field)
	return nil
}

func (f *Form) SetImages(images []storage.File) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Images = append([]storage.File(nil), images...)
	f.errors.Clear(FieldImages)
}

// SetArchive attaches the project archive; nil removes it.
func (f *Form) SetArchive(archive storage.File) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Archive = archive
	f.errors.Clear(FieldFiles)
}

func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.draft
	d.Images = append([]storage.File(nil), f.draft.Images...)
	return d
}

func (f *Form) Errors() ErrorMap {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors.clone()
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submitting reports whether a submission is in flight.
func (f *Form) Submitting() bool {
	return f.submitting.Load()
}

func (f *Form) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
	if f.cfg.OnStateChange != nil {
		f.cfg.OnStateChange(s)
	}
}

// Submit validates the draft and, when it is valid and a user is signed in,
// uploads its files and stores the project. The user is read once at the
// start; later session changes do not affect a running submission.
func (f *Form) Submit(ctx context.Context) (*Outcome, error) {
	if !f.submitting.CompareAndSwap(false, true) {
		f.record(metrics.OutcomeBusy)
		return nil, ErrSubmitInProgress
	}
	defer f.submitting.Store(false)

	f.mu.Lock()
	session := f.session
	draft := f.draft
	f.mu.Unlock()

	if session == nil {
		req, err := f.auth.SignInWithOAuth(ctx, f.cfg.SignInProvider)
		if err != nil {
			return nil, err
		}
		f.record(metrics.OutcomeAuthRequired)
		return &Outcome{Status: StatusAuthRequired, SignIn: req}, nil
	}

	f.setState(StateValidating)
	if verrs := Validate(draft); !verrs.Empty() {
		f.mu.Lock()
		f.errors = verrs
		f.mu.Unlock()
		f.setState(StateInvalid)
		f.setState(StateIdle)
		f.record(metrics.OutcomeInvalid)
		return &Outcome{Status: StatusInvalid, Errors: verrs.clone()}, nil
	}
	f.mu.Lock()
	f.errors = ErrorMap{}
	f.mu.Unlock()

	start := time.Now()
	project, err := f.store(ctx, draft, session.UserID)
	if f.cfg.Metrics != nil {
		f.cfg.Metrics.SubmitDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		f.logger.Error().Err(err).Str("userID", session.UserID).Msg("project submission failed")
		f.setState(StateFailed)
		f.setState(StateIdle)
		f.record(metrics.OutcomeFailed)
		return &Outcome{Status: StatusFailed, Message: FailureMessage, Cause: err}, nil
	}

	f.mu.Lock()
	f.draft = Draft{}
	f.mu.Unlock()
	f.setState(StateSuccess)
	f.setState(StateIdle)
	f.record(metrics.OutcomeSuccess)
	f.logger.Info().Str("projectID", project.ID.String()).Str("userID", session.UserID).Msg("project submitted")
	return &Outcome{Status: StatusSuccess, Project: project}, nil
}

func (f *Form) store(ctx context.Context, draft Draft, userID string) (*models.Project, error) {
	f.setState(StateUploading)
	imageURLs, err := f.uploadImages(ctx, draft.Images)
	if err != nil {
		return nil, err
	}

	var fileURL string
	if draft.Archive != nil {
		fileURL, err = f.upload(ctx, f.cfg.Buckets.Files, draft.Archive)
		if err != nil {
			return nil, fmt.Errorf("upload archive: %w", err)
		}
	}

	f.setState(StateInserting)
	project := NewProject(draft, imageURLs, fileURL, userID)
	if err := f.persistence.InsertProject(ctx, project); err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return project, nil
}

// uploadImages uploads concurrently; each URL lands at its image's index.
func (f *Form) uploadImages(ctx context.Context, images []storage.File) ([]string, error) {
	urls := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.UploadConcurrency)
	for i, img := range images {
		g.Go(func() error {
			url, err := f.upload(gctx, f.cfg.Buckets.Images, img)
			if err != nil {
				return fmt.Errorf("upload image %d (%s): %w", i, img.Name(), err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func (f *Form) upload(ctx context.Context, bucket string, file storage.File) (string, error) {
	url, err := f.storage.Upload(ctx, bucket, file)
	if err != nil {
		return "", err
	}
	if f.cfg.Metrics != nil {
		f.cfg.Metrics.UploadedBytes.WithLabelValues(bucket).Add(float64(file.Size()))
	}
	return url, nil
}

func (f *Form) record(outcome string) {
	if f.cfg.Metrics != nil {
		f.cfg.Metrics.Submissions.WithLabelValues(outcome).Inc()
	}
}

// NewProject builds the row stored for a valid draft.
func NewProject(d Draft, imageURLs []string, fileURL, userID string) *models.Project {
	p := &models.Project{
		Title:        strings.TrimSpace(d.ProjectTitle),
		Subtitle:     strings.TrimSpace(d.Subtitle),
		Description:  strings.TrimSpace(d.ProjectDescription),
		UploaderName: strings.TrimSpace(d.UploaderName),
		Category:     strings.TrimSpace(d.ProjectCategory),
		Price:        models.UploadPrice,
		ImageURLs:    datatypes.JSONSlice[string](imageURLs),
		UserID:       userID,
		Tags:         models.NewProjectTags(ParseTags(d.Tags)),
	}
	if fileURL != "" {
		p.FileURL = &fileURL
	}
	if repo := strings.TrimSpace(d.GithubRepo); repo != "" {
		p.GithubRepo = &repo
	}
	if drive := strings.TrimSpace(d.Drive); drive != "" {
		p.Drive = &drive
	}
	return p
}
