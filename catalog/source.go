package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/projectdal-backend/gallery"
	"github.com/rpupo63/projectdal-backend/models"
)

// ProjectLister reads the uploaded projects in catalog order.
type ProjectLister interface {
	FindAll(ctx context.Context) ([]*models.Project, error)
}

// Source caches the merged catalog. Featured records come first, then
// uploads oldest first.
type Source struct {
	featuredPath string
	projects     ProjectLister
	ttl          time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	featured []gallery.ProjectRecord
	merged   []gallery.ProjectRecord
	loadedAt time.Time
	// gen is bumped on every invalidation; a rebuild is only cached if gen
	// did not move while it ran.
	gen uint64
}

type SourceOption func(*Source)

// WithTTL bounds how long a merged catalog is served before it is rebuilt.
// Zero keeps it until Invalidate.
func WithTTL(ttl time.Duration) SourceOption {
	return func(s *Source) {
		s.ttl = ttl
	}
}

func NewSource(featuredPath string, projects ProjectLister, opts ...SourceOption) (*Source, error) {
	featured, err := LoadFeatured(featuredPath)
	if err != nil {
		return nil, err
	}
	s := &Source{
		featuredPath: featuredPath,
		projects:     projects,
		now:          time.Now,
		featured:     featured,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Catalog returns the merged catalog. Callers must not modify it.
func (s *Source) Catalog(ctx context.Context) ([]gallery.ProjectRecord, error) {
	s.mu.RLock()
	if s.merged != nil && (s.ttl == 0 || s.now().Sub(s.loadedAt) < s.ttl) {
		merged := s.merged
		s.mu.RUnlock()
		return merged, nil
	}
	featured, gen := s.featured, s.gen
	s.mu.RUnlock()

	var uploaded []*models.Project
	if s.projects != nil {
		var err error
		uploaded, err = s.projects.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
	}

	merged := make([]gallery.ProjectRecord, 0, len(featured)+len(uploaded))
	merged = append(merged, featured...)
	for _, p := range uploaded {
		merged = append(merged, gallery.FromProject(p))
	}

	s.mu.Lock()
	if s.gen == gen {
		s.merged = merged
		s.loadedAt = s.now()
	}
	s.mu.Unlock()
	return merged, nil
}

// Invalidate drops the merged catalog so the next read rebuilds it. A rebuild
// already in flight is not cached.
func (s *Source) Invalidate() {
	s.mu.Lock()
	s.merged = nil
	s.gen++
	s.mu.Unlock()
}

// Reload re-reads the featured catalog. A bad file keeps the previous records.
func (s *Source) Reload() error {
	featured, err := LoadFeatured(s.featuredPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.featured = featured
	s.merged = nil
	s.gen++
	s.mu.Unlock()
	return nil
}

// Watch reloads the featured catalog whenever its file changes, until ctx is
// done. It is a no-op for the built-in catalog.
func (s *Source) Watch(ctx context.Context) error {
	if s.featuredPath == "" {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory.
	if err := fsw.Add(filepath.Dir(s.featuredPath)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", s.featuredPath, err)
	}

	go s.processEvents(ctx, fsw)
	log.Info().Str("path", s.featuredPath).Msg("watching featured catalog")
	return nil
}

func (s *Source) processEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()

	const debounce = 200 * time.Millisecond
	target := filepath.Clean(s.featuredPath)
	var timer <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer = time.After(debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("featured catalog watcher error")

		case <-timer:
			timer = nil
			if err := s.Reload(); err != nil {
				log.Error().Err(err).Str("path", s.featuredPath).Msg("keeping previous featured catalog")
				continue
			}
			log.Info().Str("path", s.featuredPath).Msg("featured catalog reloaded")
		}
	}
}
