package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/previewd/preview/internal/store"
)

// Server is the daemon's HTTP control surface plus the endpoint the
// sandbox frame navigates to.
type Server struct {
	engine *Engine
	st     *store.Store
}

// NewServer creates a Server. st may be nil; project updates then apply
// in-memory only.
func NewServer(engine *Engine, st *store.Store) *Server {
	return &Server{engine: engine, st: st}
}

// Handler returns the chi router.
//
//	GET  /sandbox/current      current sandbox document (text/html)
//	PUT  /api/project          wholesale project replace
//	POST /api/reload           manual rebuild of the current snapshot
//	GET  /api/events           console + network histories
//	GET  /api/status           engine state and counters
//	POST /api/events/{id}/fix  request an auto-fix proposal for an error
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/sandbox/current", s.handleDocument)
	r.Put("/api/project", s.handleProject)
	r.Post("/api/reload", s.handleReload)
	r.Get("/api/events", s.handleEvents)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/events/{id}/fix", s.handleFix)

	return r
}

func (s *Server) handleDocument(w http.ResponseWriter, _ *http.Request) {
	doc, gen := s.engine.Document()
	if gen == 0 {
		http.Error(w, "no build yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Preview-Generation", strconv.FormatUint(gen, 10))
	w.Write([]byte(doc))
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	var project ProjectMap
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		writeError(w, 400, fmt.Errorf("decode project: %w", err))
		return
	}
	if len(project) == 0 {
		writeError(w, 400, fmt.Errorf("empty project"))
		return
	}

	// With a store attached the watcher owns the rebuild: persist and let
	// it fire, so there is exactly one rebuild path. Without one, rebuild
	// directly.
	if s.st != nil {
		if err := s.st.Replace(r.Context(), project); err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 202, map[string]any{"files": len(project), "queued": true})
		return
	}

	if err := s.engine.Update(r.Context(), project); err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"files":      len(project),
		"generation": s.engine.Generation(),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reload(r.Context()); err != nil {
		writeError(w, 409, err)
		return
	}
	writeJSON(w, 200, map[string]any{"generation": s.engine.Generation()})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	c := s.engine.Consumer()
	writeJSON(w, 200, map[string]any{
		"generation": s.engine.Generation(),
		"logs":       c.Logs(),
		"requests":   c.Requests(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, 200, s.engine.Status())
}

func (s *Server) handleFix(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// Detach from the request context: the fixer outlives this request and
	// reports back through the proposal callback.
	if err := s.engine.Consumer().RequestFix(context.WithoutCancel(r.Context()), id); err != nil {
		writeError(w, 409, err)
		return
	}
	writeJSON(w, 202, map[string]string{"id": id, "state": string(FixPending)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
