package handlers

import (
	"net/http"

	"github.com/rs/cors"
)

// Register mounts every route on mux and returns it wrapped in CORS.
// events serves the SSE streams and may be nil.
func (h *Handlers) Register(mux *http.ServeMux, events http.Handler) http.Handler {
	mux.HandleFunc("GET /{$}", h.HomeHandler)
	mux.HandleFunc("GET /products", h.ProductsHandler)
	mux.HandleFunc("GET /contact", h.ContactHandler)

	mux.HandleFunc("GET /api/catalog", h.CatalogHandler)
	mux.HandleFunc("GET /api/products", h.ProductsFeedHandler)
	mux.HandleFunc("GET /api/carousel", h.CarouselHandler)
	mux.HandleFunc("POST /api/carousel/sessions", h.OpenSessionHandler)
	mux.HandleFunc("GET /api/carousel/sessions/{session}", h.SessionHandler)
	mux.HandleFunc("DELETE /api/carousel/sessions/{session}", h.CloseSessionHandler)
	mux.HandleFunc("POST /api/carousel/sessions/{session}/{action}", h.CarouselActionHandler)
	mux.HandleFunc("GET /health", HealthHandler)

	if h.config.PublicDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(h.config.PublicDir))))
	}
	if events != nil {
		mux.Handle("GET /events", events)
	}

	origins := h.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:" + h.config.Port}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
	})

	return c.Handler(mux)
}
