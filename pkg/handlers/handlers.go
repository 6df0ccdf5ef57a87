package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/eknkc/pug"

	"export-site/pkg/carousel"
	"export-site/pkg/catalog"
	"export-site/pkg/config"
	"export-site/pkg/models"
	"export-site/pkg/services"
)

// maxPageSize caps the page size a client may ask for
const maxPageSize = 100

// CatalogSource provides the product catalog
type CatalogSource interface {
	Entries(ctx context.Context) ([]models.CatalogEntry, error)
	Categories(ctx context.Context) ([]models.Category, error)
}

// Showcases hands out one home page carousel per visitor
type Showcases interface {
	Open(ctx context.Context) (*services.Showcase, error)
	Get(session string) (*services.Showcase, bool)
	Close(session string) error
	Playlist(ctx context.Context) ([]models.MediaItem, error)
}

// Handlers serves the site pages and its JSON API
type Handlers struct {
	config    *config.Config
	catalog   CatalogSource
	showcases Showcases
}

// New creates the handlers. showcases may be nil when the carousel is
// disabled, in which case the home page shows the catalog only.
func New(cfg *config.Config, source CatalogSource, showcases Showcases) *Handlers {
	return &Handlers{config: cfg, catalog: source, showcases: showcases}
}

// CarouselFeed is the playlist every session starts with
type CarouselFeed struct {
	Interval int                `json:"interval"`
	Playlist []models.MediaItem `json:"playlist"`
}

// CarouselState is the JSON view of one session
type CarouselState struct {
	Session  string             `json:"session"`
	Stream   string             `json:"stream"`
	Interval int                `json:"interval"`
	Playlist []models.MediaItem `json:"playlist"`
	Current  carousel.Snapshot  `json:"current"`
}

// CarouselAction is the answer to a carousel command
type CarouselAction struct {
	Accepted bool              `json:"accepted"`
	Current  carousel.Snapshot `json:"current"`
}

// HomeHandler renders the carousel and the category overview
func (h *Handlers) HomeHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Generating Index")

	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.catalogError(w, err)
		return
	}

	index := models.Index{
		Categories: categories,
		Interval:   h.intervalMs(),
	}
	if h.showcases != nil {
		playlist, err := h.showcases.Playlist(r.Context())
		if err != nil {
			slog.Warn("Carousel playlist unavailable", slog.Any("error", err))
		}
		index.Playlist = playlist
	}
	h.render(w, "home.pug", index)
}

// ProductsHandler renders the filtered product listing
func (h *Handlers) ProductsHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.catalogError(w, err)
		return
	}

	q := h.query(r, categories)
	page := catalog.Page(categories, q, h.config.PageSize, pageParam(r))

	view := models.Catalog{
		Categories:          categories,
		SelectedSubcategory: q.Subcategory,
		Query:               q.Text,
		Page:                page,
	}
	if cat, ok := catalog.Find(categories, q.Category); ok {
		view.Selected = &cat
	}
	h.render(w, "products.pug", view)
}

// ContactHandler renders the inquiry form pre-filled from ?category=
func (h *Handlers) ContactHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.Entries(r.Context())
	if err != nil {
		h.catalogError(w, err)
		return
	}

	inquiry := services.NewInquiry(catalog.Subcategories(entries), r.URL.Query()["category"])
	h.render(w, "contact.pug", inquiry)
}

// CatalogHandler returns the grouped catalog, narrowed when a category is given
func (h *Handlers) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.catalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog.Narrow(categories, h.query(r, categories)))
}

// ProductsFeedHandler returns one page of filtered products
func (h *Handlers) ProductsFeedHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.catalogError(w, err)
		return
	}

	size := h.config.PageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && v > 0 {
		size = min(v, maxPageSize)
	}
	writeJSON(w, http.StatusOK, catalog.Page(categories, h.query(r, categories), size, pageParam(r)))
}

// CarouselHandler returns the playlist new sessions start with
func (h *Handlers) CarouselHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requireShowcases(w) {
		return
	}
	playlist, err := h.showcases.Playlist(r.Context())
	if err != nil {
		slog.Warn("Carousel playlist unavailable", slog.Any("error", err))
		http.Error(w, "carousel unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, CarouselFeed{Interval: h.intervalMs(), Playlist: playlist})
}

// OpenSessionHandler starts a carousel for the visitor. The browser
// subscribes to the returned stream to render it.
func (h *Handlers) OpenSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requireShowcases(w) {
		return
	}
	showcase, err := h.showcases.Open(r.Context())
	if err != nil {
		slog.Warn("Carousel session not opened", slog.Any("error", err))
		if errors.Is(err, services.ErrTooManySessions) {
			w.Header().Set("Retry-After", "30")
		}
		http.Error(w, "carousel unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, h.state(showcase))
}

// SessionHandler returns the state of a session
func (h *Handlers) SessionHandler(w http.ResponseWriter, r *http.Request) {
	showcase, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.state(showcase))
}

// CloseSessionHandler ends a session when the visitor leaves
func (h *Handlers) CloseSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requireShowcases(w) {
		return
	}
	if err := h.showcases.Close(r.PathValue("session")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CarouselActionHandler applies next, previous, ended or rejected to a session
func (h *Handlers) CarouselActionHandler(w http.ResponseWriter, r *http.Request) {
	showcase, ok := h.session(w, r)
	if !ok {
		return
	}

	action := r.PathValue("action")
	var accepted bool
	switch action {
	case "next", "previous":
		step := showcase.Next
		if action == "previous" {
			step = showcase.Previous
		}
		if _, err := step(); err != nil {
			slog.Warn("Carousel navigation failed", slog.String("action", action), slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		accepted = true
	case "ended", "rejected":
		index, err := strconv.Atoi(r.URL.Query().Get("index"))
		if err != nil {
			http.Error(w, "index query parameter must be an integer", http.StatusBadRequest)
			return
		}
		if action == "ended" {
			accepted = showcase.VideoEnded(index)
		} else {
			accepted = showcase.PlaybackRejected(index)
		}
	default:
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, CarouselAction{Accepted: accepted, Current: showcase.Current()})
}

// HealthHandler reports that the server is up
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// query reads the filter parameters. The category may be given by name or
// stub and is resolved to its name.
func (h *Handlers) query(r *http.Request, categories []models.Category) catalog.Query {
	v := r.URL.Query()
	q := catalog.Query{
		Text:        v.Get("q"),
		Category:    v.Get("category"),
		Subcategory: v.Get("subcategory"),
	}
	if cat, ok := catalog.Find(categories, q.Category); ok {
		q.Category = cat.Name
	}
	return q
}

func (h *Handlers) render(w http.ResponseWriter, name string, data any) {
	file := filepath.Join(h.config.ViewsDir, name)
	tmpl, err := pug.CompileFile(file, pug.Options{})
	if err != nil {
		slog.Error("Failed to compile template", slog.String("template", file), slog.Any("error", err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		slog.Error("Failed to render template", slog.String("template", file), slog.Any("error", err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *Handlers) catalogError(w http.ResponseWriter, err error) {
	slog.Error("Failed to load catalog", slog.Any("error", err))
	http.Error(w, "catalog unavailable", http.StatusBadGateway)
}

func (h *Handlers) requireShowcases(w http.ResponseWriter) bool {
	if h.showcases == nil {
		http.Error(w, "carousel unavailable", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// session looks up the showcase named by the {session} path value
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*services.Showcase, bool) {
	if !h.requireShowcases(w) {
		return nil, false
	}
	showcase, ok := h.showcases.Get(r.PathValue("session"))
	if !ok {
		http.Error(w, services.ErrUnknownSession.Error(), http.StatusNotFound)
		return nil, false
	}
	return showcase, true
}

func (h *Handlers) state(showcase *services.Showcase) CarouselState {
	return CarouselState{
		Session:  showcase.Session(),
		Stream:   showcase.Stream(),
		Interval: h.intervalMs(),
		Playlist: showcase.Playlist(),
		Current:  showcase.Current(),
	}
}

func (h *Handlers) intervalMs() int {
	if h.config.CarouselInterval <= 0 {
		return int(carousel.DefaultInterval.Milliseconds())
	}
	return int(h.config.CarouselInterval.Milliseconds())
}

// pageParam reads ?page=, defaulting to the first page. Values below one are
// passed through so they produce an empty page.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}
	return page
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
		http.Error(w, "encoding error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
