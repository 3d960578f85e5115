// Package server exposes notebook builds over HTTP for run folders under a fixed root.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lab_notebook_writer/notebook"
)

// BuildTimeout bounds one synchronous notebook build.
const BuildTimeout = 15 * time.Minute

// Builder is the part of notebook.Builder the server needs.
type Builder interface {
	Create(ctx context.Context, baseFolder string) (notebook.Result, error)
}

type Server struct {
	builder  Builder
	root     string
	store    *resultStore
	building *folderLocks
	log      zerolog.Logger
}

// folderLocks tracks folders with a build in flight; a build wipes notebook/ first.
type folderLocks struct {
	mu      sync.Mutex
	folders map[string]struct{}
}

func (l *folderLocks) tryLock(folder string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.folders[folder]; busy {
		return false
	}
	l.folders[folder] = struct{}{}
	return true
}

func (l *folderLocks) unlock(folder string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.folders, folder)
}

type resultStore struct {
	mu      sync.Mutex
	results map[string]notebook.Result
}

func newStore() *resultStore {
	return &resultStore{results: make(map[string]notebook.Result)}
}

func (s *resultStore) set(id string, res notebook.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = res
}

func (s *resultStore) get(id string) (notebook.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[id]
	return res, ok
}

// New serves builds for folders below root.
func New(builder Builder, root string, logger zerolog.Logger) (*Server, error) {
	if builder == nil {
		return nil, errors.New("notebook builder required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Server{
		builder:  builder,
		root:     abs,
		store:    newStore(),
		building: &folderLocks{folders: make(map[string]struct{})},
		log:      logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/notebooks", s.handleCreate)
	mux.HandleFunc("/api/notebooks/", s.handleByID)
	return s.logMiddleware(mux)
}

// --- Handlers ---

type createReq struct {
	Folder string `json:"folder"`
}

type notebookResp struct {
	ID     string          `json:"id"`
	Result notebook.Result `json:"result"`
}

type errorResp struct {
	Error  string          `json:"error"`
	Result notebook.Result `json:"result"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	folder, err := s.resolve(req.Folder)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !s.building.tryLock(folder) {
		http.Error(w, "a notebook build for this folder is already running", http.StatusConflict)
		return
	}
	res, err := s.build(r.Context(), folder)
	if err != nil {
		s.log.Error().Err(err).Str("folder", folder).Msg("notebook build failed")
		status := http.StatusBadGateway
		if errors.Is(err, notebook.ErrInvalidFolder) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResp{Error: err.Error(), Result: res})
		return
	}
	id := uuid.NewString()
	s.store.set(id, res)
	writeJSON(w, http.StatusCreated, notebookResp{ID: id, Result: res})
}

// build runs one notebook build and releases the folder before the response is written.
func (s *Server) build(ctx context.Context, folder string) (notebook.Result, error) {
	defer s.building.unlock(folder)
	ctx, cancel := context.WithTimeout(ctx, BuildTimeout)
	defer cancel()
	return s.builder.Create(ctx, folder)
}

func (s *Server) handleByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/notebooks/")
	id, view, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	res, ok := s.store.get(id)
	if !ok {
		http.Error(w, "notebook not found", http.StatusNotFound)
		return
	}

	switch view {
	case "":
		writeJSON(w, http.StatusOK, notebookResp{ID: id, Result: res})
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		http.ServeFile(w, r, res.Path)
	case "html":
		if res.HTMLPath == "" {
			http.Error(w, "notebook was built without html", http.StatusNotFound)
			return
		}
		http.ServeFile(w, r, res.HTMLPath)
	default:
		http.NotFound(w, r)
	}
}

// --- Helpers ---

// resolve maps a folder name to an absolute path that must stay inside root.
func (s *Server) resolve(folder string) (string, error) {
	if strings.TrimSpace(folder) == "" {
		return "", errors.New("folder is required")
	}
	p := folder
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.root, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("folder must be inside the server root")
	}
	return p, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
