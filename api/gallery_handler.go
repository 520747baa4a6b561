package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/projectdal-backend/gallery"
	"github.com/rpupo63/projectdal-backend/metrics"
	"github.com/rpupo63/projectdal-backend/upload"
)

type galleryHandler struct {
	responder Responder
	logger    zerolog.Logger
	catalog   CatalogSource
	metrics   *metrics.Metrics
}

func newGalleryHandler(catalog CatalogSource, m *metrics.Metrics) galleryHandler {
	logger := log.With().Str("handlerName", "galleryHandler").Logger()

	return galleryHandler{
		responder: NewResponder(logger),
		logger:    logger,
		catalog:   catalog,
		metrics:   m,
	}
}

// filterStateFromQuery reads the gallery controls from the query string.
// tags may repeat or be comma separated. toggle flips one tag and clear
// resets tags and search, both applied after the rest.
func filterStateFromQuery(r *http.Request) gallery.FilterState {
	q := r.URL.Query()

	var tags []string
	for _, v := range q["tags"] {
		tags = append(tags, strings.Split(v, ",")...)
	}
	state := gallery.NewFilterState(tags, q.Get("q"), gallery.ParseSortMode(q.Get("sort")))

	if toggle := strings.TrimSpace(q.Get("toggle")); toggle != "" {
		state.ToggleTag(toggle)
	}
	if clear, _ := strconv.ParseBool(q.Get("clear")); clear {
		state.ClearFilters()
	}
	return state
}

// getView returns the filtered, ranked gallery
// @Summary Browse the gallery
// @Description Filters the catalog by tags and search text, ranks it and suggests tags
// @Tags Gallery
// @Produce json
// @Param tags query string false "Selected tags, comma separated"
// @Param q query string false "Search text"
// @Param sort query string false "relevance, rating, name or author"
// @Success 200 {object} gallery.View
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error loading the catalog"
// @Router /projects [get]
func (h galleryHandler) getView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := h.catalog.Catalog(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("load catalog", "project", err))
			return
		}

		state := filterStateFromQuery(r)
		view := gallery.ComputeView(records, state)

		if h.metrics != nil {
			h.metrics.GalleryViews.WithLabelValues(string(state.SortBy), strconv.FormatBool(view.FiltersActive)).Inc()
			h.metrics.GalleryResults.Observe(float64(view.Total))
		}

		h.responder.WriteJSON(w, view)
	}
}

// getTags returns every tag in the catalog with its frequency
// @Summary List tags
// @Tags Gallery
// @Produce json
// @Success 200 {array} gallery.TagCount
// @Router /tags [get]
func (h galleryHandler) getTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := h.catalog.Catalog(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("load catalog", "project", err))
			return
		}
		h.responder.WriteJSON(w, gallery.TagFrequencies(records))
	}
}

// getCategories returns the categories a project may be filed under
// @Summary List categories
// @Tags Gallery
// @Produce json
// @Success 200 {array} string
// @Router /categories [get]
func (h galleryHandler) getCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, upload.Categories)
	}
}
