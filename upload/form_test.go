package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/projectdal-backend/auth"
	"github.com/rpupo63/projectdal-backend/metrics"
	"github.com/rpupo63/projectdal-backend/models"
	"github.com/rpupo63/projectdal-backend/storage"
)

type fakeAuth struct {
	mu        sync.Mutex
	session   *auth.Session
	listeners map[int]auth.Listener
	nextID    int
	signIns   []string
	signInErr error
}

func newFakeAuth(session *auth.Session) *fakeAuth {
	return &fakeAuth{session: session, listeners: map[int]auth.Listener{}}
}

func (f *fakeAuth) GetSession(ctx context.Context) (*auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeAuth) OnChange(l auth.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = l
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeAuth) SignInWithOAuth(ctx context.Context, provider string) (*auth.AuthRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns = append(f.signIns, provider)
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &auth.AuthRequest{URL: "https://idp.test/" + provider, Provider: provider}, nil
}

func (f *fakeAuth) emit(e auth.Event) {
	f.mu.Lock()
	f.session = e.Session
	var ls []auth.Listener
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()
	for _, l := range ls {
		l(e)
	}
}

func (f *fakeAuth) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

type fakeStorage struct {
	mu      sync.Mutex
	delays  map[string]time.Duration
	failOn  string
	calls   []string
	started chan struct{}
	release chan struct{}
}

func (f *fakeStorage) Upload(ctx context.Context, bucket string, file storage.File) (string, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if d := f.delays[file.Name()]; d > 0 {
		time.Sleep(d)
	}
	f.mu.Lock()
	f.calls = append(f.calls, bucket+"/"+file.Name())
	f.mu.Unlock()
	if file.Name() == f.failOn {
		return "", errors.New("storage quota exceeded")
	}
	return fmt.Sprintf("https://cdn.test/%s/%s", bucket, file.Name()), nil
}

func (f *fakeStorage) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePersistence struct {
	mu       sync.Mutex
	projects []*models.Project
	err      error
}

func (f *fakePersistence) InsertProject(ctx context.Context, p *models.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.projects = append(f.projects, p)
	return nil
}

func fillValid(t *testing.T, f *Form) {
	t.Helper()
	d := validDraft()
	for field, v := range map[string]string{
		FieldProjectTitle:       d.ProjectTitle,
		FieldSubtitle:           d.Subtitle,
		FieldProjectDescription: d.ProjectDescription,
		FieldUploaderName:       d.UploaderName,
		FieldProjectCategory:    d.ProjectCategory,
		FieldTags:               d.Tags,
	} {
		require.NoError(t, f.SetText(field, v))
	}
	f.SetImages(d.Images)
}

var signedIn = &auth.Session{UserID: "user-1", Email: "ayesha@example.com"}

func TestSubmit_WithoutSessionSignsInOnce(t *testing.T) {
	a := newFakeAuth(nil)
	s := &fakeStorage{}
	p := &fakePersistence{}
	form := NewForm(context.Background(), a, s, p, Config{SignInProvider: "google"})
	defer form.Close()
	fillValid(t, form)

	out, err := form.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusAuthRequired, out.Status)
	assert.Equal(t, "https://idp.test/google", out.SignIn.URL)
	assert.Equal(t, []string{"google"}, a.signIns)
	assert.Zero(t, s.callCount())
	assert.Empty(t, p.projects)
	assert.Equal(t, StateIdle, form.State())
}

func TestSubmit_WithoutSessionSkipsValidation(t *testing.T) {
	a := newFakeAuth(nil)
	p := &fakePersistence{}
	form := NewForm(context.Background(), a, &fakeStorage{}, p, Config{})
	defer form.Close()

	out, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusAuthRequired, out.Status)
	assert.Len(t, a.signIns, 1)
	assert.Empty(t, p.projects)
}

func TestSubmit_SignInFailure(t *testing.T) {
	a := newFakeAuth(nil)
	a.signInErr = errors.New("idp down")
	form := NewForm(context.Background(), a, &fakeStorage{}, &fakePersistence{}, Config{})
	defer form.Close()

	_, err := form.Submit(context.Background())
	assert.EqualError(t, err, "idp down")
}

func TestSubmit_InvalidDraftHasNoSideEffects(t *testing.T) {
	var states []State
	s := &fakeStorage{}
	p := &fakePersistence{}
	form := NewForm(context.Background(), newFakeAuth(signedIn), s, p, Config{
		OnStateChange: func(st State) { states = append(states, st) },
	})
	defer form.Close()
	require.NoError(t, form.SetText(FieldProjectTitle, "ab"))

	out, err := form.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusInvalid, out.Status)
	assert.Contains(t, out.Errors, FieldProjectTitle)
	assert.Equal(t, out.Errors, form.Errors())
	assert.Zero(t, s.callCount())
	assert.Empty(t, p.projects)
	assert.Equal(t, []State{StateValidating, StateInvalid, StateIdle}, states)
	assert.Equal(t, "ab", form.Draft().ProjectTitle)
}

func TestSubmit_EditingClearsFieldError(t *testing.T) {
	form := NewForm(context.Background(), newFakeAuth(signedIn), &fakeStorage{}, &fakePersistence{}, Config{})
	defer form.Close()

	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.Contains(t, form.Errors(), FieldTags)
	require.Contains(t, form.Errors(), FieldImages)

	require.NoError(t, form.SetText(FieldTags, "AI"))
	form.SetImages([]storage.File{sized("a.png", 1)})
	assert.NotContains(t, form.Errors(), FieldTags)
	assert.NotContains(t, form.Errors(), FieldImages)
	assert.Contains(t, form.Errors(), FieldProjectTitle)

	assert.Error(t, form.SetText("price", "$5"))
}

func TestSubmit_Success(t *testing.T) {
	var states []State
	s := &fakeStorage{}
	p := &fakePersistence{}
	m := metrics.New()
	form := NewForm(context.Background(), newFakeAuth(signedIn), s, p, Config{
		Buckets:       Buckets{Images: "imgs", Files: "files"},
		Metrics:       m,
		OnStateChange: func(st State) { states = append(states, st) },
	})
	defer form.Close()
	fillValid(t, form)
	require.NoError(t, form.SetText(FieldGithubRepo, "https://github.com/ayesha/line-follower"))
	form.SetArchive(sized("code.zip", 100))

	out, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, out.Status)

	require.Len(t, p.projects, 1)
	got := p.projects[0]
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, models.UploadPrice, got.Price)
	assert.Equal(t, []string{"https://cdn.test/imgs/robot.png"}, []string(got.ImageURLs))
	require.NotNil(t, got.FileURL)
	assert.Equal(t, "https://cdn.test/files/code.zip", *got.FileURL)
	assert.Equal(t, []string{"Arduino", "Robotics"}, got.TagValues())

	assert.Equal(t, Draft{}, form.Draft(), "draft resets after success")
	assert.Empty(t, form.Errors())
	assert.Equal(t, []State{StateValidating, StateUploading, StateInserting, StateSuccess, StateIdle}, states)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 1124.0, testutil.ToFloat64(m.UploadedBytes.WithLabelValues("imgs"))+testutil.ToFloat64(m.UploadedBytes.WithLabelValues("files")))
}

func TestSubmit_PreservesImageOrder(t *testing.T) {
	s := &fakeStorage{delays: map[string]time.Duration{
		"first.png":  60 * time.Millisecond,
		"second.png": 30 * time.Millisecond,
	}}
	p := &fakePersistence{}
	form := NewForm(context.Background(), newFakeAuth(signedIn), s, p, Config{Buckets: Buckets{Images: "i"}})
	defer form.Close()
	fillValid(t, form)
	form.SetImages([]storage.File{sized("first.png", 1), sized("second.png", 1), sized("third.png", 1)})

	out, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, out.Status)

	assert.Equal(t, []string{
		"https://cdn.test/i/first.png",
		"https://cdn.test/i/second.png",
		"https://cdn.test/i/third.png",
	}, []string(p.projects[0].ImageURLs))
}

func TestSubmit_FailurePreservesDraft(t *testing.T) {
	tests := []struct {
		name    string
		storage *fakeStorage
		persist *fakePersistence
	}{
		{"image upload", &fakeStorage{failOn: "robot.png"}, &fakePersistence{}},
		{"archive upload", &fakeStorage{failOn: "code.zip"}, &fakePersistence{}},
		{"insert", &fakeStorage{}, &fakePersistence{err: errors.New("duplicate key")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var states []State
			form := NewForm(context.Background(), newFakeAuth(signedIn), tt.storage, tt.persist, Config{
				OnStateChange: func(st State) { states = append(states, st) },
			})
			defer form.Close()
			fillValid(t, form)
			form.SetArchive(sized("code.zip", 10))
			before := form.Draft()

			out, err := form.Submit(context.Background())
			require.NoError(t, err)

			assert.Equal(t, StatusFailed, out.Status)
			assert.Equal(t, FailureMessage, out.Message)
			assert.Error(t, out.Cause)
			assert.Equal(t, before, form.Draft())
			assert.Empty(t, tt.persist.projects)
			assert.Equal(t, StateFailed, states[len(states)-2])
			assert.Equal(t, StateIdle, form.State())
		})
	}
}

func TestSubmit_SecondSubmitWhileInFlightIsRejected(t *testing.T) {
	a := newFakeAuth(signedIn)
	s := &fakeStorage{started: make(chan struct{}), release: make(chan struct{})}
	p := &fakePersistence{}
	form := NewForm(context.Background(), a, s, p, Config{})
	defer form.Close()
	fillValid(t, form)

	done := make(chan *Outcome)
	go func() {
		out, err := form.Submit(context.Background())
		assert.NoError(t, err)
		done <- out
	}()

	<-s.started
	assert.True(t, form.Submitting())
	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	// Signing out mid-flight does not change who the running submission is for.
	a.emit(auth.Event{Type: auth.EventSignedOut})
	close(s.release)

	out := <-done
	require.Equal(t, StatusSuccess, out.Status)
	require.Len(t, p.projects, 1)
	assert.Equal(t, "user-1", p.projects[0].UserID)
	assert.False(t, form.Submitting())

	// The sign-out gates the next submission.
	fillValid(t, form)
	s.started = nil
	out, err = form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusAuthRequired, out.Status)
	assert.Len(t, p.projects, 1)
}

func TestForm_FollowsSessionChanges(t *testing.T) {
	a := newFakeAuth(nil)
	p := &fakePersistence{}
	form := NewForm(context.Background(), a, &fakeStorage{}, p, Config{})
	fillValid(t, form)

	a.emit(auth.Event{Type: auth.EventSignedIn, Session: &auth.Session{UserID: "late"}})
	out, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "late", p.projects[0].UserID)

	assert.Equal(t, 1, a.listenerCount())
	form.Close()
	assert.Equal(t, 0, a.listenerCount())
}
