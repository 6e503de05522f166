package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/prismworks/prism-api/internal/api/middleware"
)

// RouterConfig carries the handlers and middleware the router wires up.
type RouterConfig struct {
	GenerationHandler *GenerationHandler
	ImageHandler      *ImageHandler
	AuthMiddleware    *middleware.AuthMiddleware

	// UploadsDir, when non-empty, is served under /uploads/images/ so
	// artifact URLs returned by the API resolve.
	UploadsDir string
}

// NewRouter builds the service's HTTP routing tree. All /api routes sit
// behind bearer-token authentication.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cfg.AuthMiddleware.Authenticate)

		r.Route("/generations", func(r chi.Router) {
			r.Post("/", cfg.GenerationHandler.SubmitGeneration)
			r.Get("/{id}", cfg.GenerationHandler.GetGeneration)
		})

		r.Route("/images", func(r chi.Router) {
			r.Get("/{id}", cfg.ImageHandler.GetImage)
			r.Delete("/{id}", cfg.ImageHandler.DeleteImage)
		})
	})

	if cfg.UploadsDir != "" {
		fs := http.StripPrefix("/uploads/images/", http.FileServer(http.Dir(cfg.UploadsDir)))
		r.Get("/uploads/images/*", fs.ServeHTTP)
	}

	return r
}
