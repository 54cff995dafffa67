// Package http serves the public staging directory over HTTP so published
// links resolve to direct downloads.
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// FileHostConfig configures the file host router.
type FileHostConfig struct {
	PublicDir      string
	AllowedOrigins []string
}

// NewRouter creates the file host router. Files are addressed by their
// staged name; the optional filename query parameter sets the name the
// browser saves the file under.
func NewRouter(cfg *FileHostConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Range"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length", "Accept-Ranges"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/{file}", serveFile(cfg.PublicDir))
	r.Head("/{file}", serveFile(cfg.PublicDir))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})

	return r
}

func serveFile(publicDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "file")

		// Staged names never contain path separators; reject traversal.
		if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file name"})
			return
		}

		path := filepath.Join(publicDir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}

		display := r.URL.Query().Get("filename")
		if display == "" {
			display = name
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", display))

		http.ServeFile(w, r, path)
	}
}

// NewServer creates an HTTP server with timeouts sized for large file
// transfers.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 10 * time.Second,
		// Large downloads run long; rely on IdleTimeout instead of a
		// write deadline.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
