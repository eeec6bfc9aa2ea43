package router

import (
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	faey "github.com/MegaGrindStone/faey-assistant"
	"github.com/MegaGrindStone/faey-assistant/internal/handlers"
	"github.com/MegaGrindStone/faey-assistant/internal/middleware"
)

// Options configures the routes that do not come from handlers.Main.
type Options struct {
	// ImagesDir is served under /generated-images/.
	ImagesDir string
	// AllowedOrigins enables CORS on /api for the listed origins. Empty means same-origin only.
	AllowedOrigins []string
	// Limiter throttles the provider-backed endpoints. Nil disables throttling.
	Limiter *middleware.RateLimiter
}

// New builds the HTTP handler for the whole application.
func New(m handlers.Main, opts Options) (http.Handler, error) {
	staticFS, err := fs.Sub(faey.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", m.HandleHome)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	r.Handle("/generated-images/*", http.StripPrefix("/generated-images/",
		noDirListing(http.FileServer(http.Dir(opts.ImagesDir)))))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	gateway := func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(opts.Limiter.Middleware)
		}
		r.Post("/chat", m.HandleChat)
		r.Post("/generate-image", m.HandleGenerateImage)
		r.Post("/analyze-image", m.HandleAnalyzeImage)
	}

	r.Route("/api", func(r chi.Router) {
		if len(opts.AllowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: opts.AllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Content-Type"},
				MaxAge:         300,
			}))
		}
		r.Get("/images", m.HandleImages)
		r.Group(gateway)
	})

	// The gateway endpoints are also reachable without the /api prefix.
	r.Group(gateway)

	return r, nil
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
