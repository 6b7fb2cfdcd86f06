package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/aretw0/stepmesh"
	"github.com/aretw0/stepmesh/internal/logging"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/mesh"
	"github.com/aretw0/stepmesh/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
)

// maxBodyBytes bounds the JSON request bodies.
const maxBodyBytes = 1 << 20

// Pipeline defines what the HTTP server needs from a stepmesh.Pipeline.
type Pipeline interface {
	Convert(ctx context.Context, req stepmesh.ConvertRequest) (*stepmesh.ConvertReport, error)
	Export(ctx context.Context, req stepmesh.ExportRequest) (*stepmesh.ExportReport, error)
	Inspect(ctx context.Context, input string) (*stepmesh.InspectReport, error)
	Store() ports.ManifestStore
	Fs() afero.Fs
}

// Defaults are the server-side settings of pipeline runs; Input is ignored. Clients only
// choose the input and, optionally, the tolerance, so /manifest and /files always match
// the last export.
type Defaults struct {
	Convert stepmesh.ConvertRequest
	Export  stepmesh.ExportRequest
}

// Server exposes a Pipeline over HTTP.
type Server struct {
	Pipeline Pipeline
	Defaults Defaults
	metrics  http.Handler
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts a Prometheus handler on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the pipeline.
func NewHandler(pipeline Pipeline, defaults Defaults, opts ...Option) http.Handler {
	s := &Server{
		Pipeline: pipeline,
		Defaults: defaults,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/inspect", s.GetInspect)
	r.Get("/manifest", s.GetManifest)
	r.Get("/parts", s.ListParts)
	r.Get("/parts/{index}", s.GetPart)
	r.Get("/files/{file}", s.GetFile)
	r.Get("/files/{file}/stats", s.GetFileStats)
	r.Post("/convert", s.Convert)
	r.Post("/export", s.Export)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RunRequest is the body of POST /convert and POST /export.
type RunRequest struct {
	Input     string            `json:"input"`
	Tolerance *domain.Tolerance `json:"tolerance,omitempty"`
}

func (req RunRequest) validate() error {
	if strings.TrimSpace(req.Input) == "" {
		return errors.New("input is required")
	}
	if t := req.Tolerance; t != nil {
		if t.LinearDeflection <= 0 || t.AngularDeflection <= 0 {
			return errors.New("tolerance deflections must be positive")
		}
	}
	return nil
}

func (req RunRequest) tolerance(def domain.Tolerance) domain.Tolerance {
	if req.Tolerance != nil {
		return *req.Tolerance
	}
	return def
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(stepmesh.Version),
	}, s.logger)
}

// GetInspect handles GET /inspect?input=<path>.
func (s *Server) GetInspect(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	if input == "" {
		http.Error(w, "Missing input query parameter", http.StatusBadRequest)
		return
	}
	report, err := s.Pipeline.Inspect(r.Context(), input)
	if err != nil {
		s.runError(w, "Inspect", err)
		return
	}
	writeJSON(w, http.StatusOK, report, s.logger)
}

// Convert handles POST /convert. A run without any mesh answers 422 with the report.
func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	convertReq := s.Defaults.Convert
	convertReq.Input = req.Input
	convertReq.Tolerance = req.tolerance(convertReq.Tolerance)
	report, err := s.Pipeline.Convert(r.Context(), convertReq)
	if errors.Is(err, domain.ErrNoMeshes) {
		writeJSON(w, http.StatusUnprocessableEntity, report, s.logger)
		return
	}
	if err != nil {
		s.runError(w, "Convert", err)
		return
	}
	writeJSON(w, http.StatusOK, report, s.logger)
}

// Export handles POST /export.
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	exportReq := s.Defaults.Export
	exportReq.Input = req.Input
	exportReq.Tolerance = req.tolerance(exportReq.Tolerance)
	report, err := s.Pipeline.Export(r.Context(), exportReq)
	if err != nil {
		s.runError(w, "Export", err)
		return
	}
	writeJSON(w, http.StatusOK, report, s.logger)
}

// GetManifest handles GET /manifest: the manifest of the last export.
func (s *Server) GetManifest(w http.ResponseWriter, r *http.Request) {
	manifest, ok := s.loadManifest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, manifest, s.logger)
}

// ListParts handles GET /parts.
func (s *Server) ListParts(w http.ResponseWriter, r *http.Request) {
	manifest, ok := s.loadManifest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, manifest.Parts, s.logger)
}

// GetPart handles GET /parts/{index}; index is the object index, not the list position.
func (s *Server) GetPart(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid part index", http.StatusBadRequest)
		return
	}
	manifest, ok := s.loadManifest(w, r)
	if !ok {
		return
	}
	part, found := manifest.Part(index)
	if !found {
		http.Error(w, fmt.Sprintf("Part %d not found", index), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, part, s.logger)
}

// GetFile handles GET /files/{file}: an STL file of the export directory.
func (s *Server) GetFile(w http.ResponseWriter, r *http.Request) {
	name, f, info, ok := s.openFile(w, r)
	if !ok {
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "model/stl")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// FileStats describes the mesh stored in an STL file.
type FileStats struct {
	File     string          `json:"file"`
	Vertices int             `json:"vertices"`
	Faces    int             `json:"faces"`
	BBox     domain.BoundBox `json:"bbox"`
}

// GetFileStats handles GET /files/{file}/stats: counts and bounds read back from the STL.
func (s *Server) GetFileStats(w http.ResponseWriter, r *http.Request) {
	name, f, _, ok := s.openFile(w, r)
	if !ok {
		return
	}
	defer f.Close()

	m, err := mesh.ReadSTL(bufio.NewReader(f))
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid STL file: %v", err), http.StatusUnprocessableEntity)
		s.logger.Warn("GetFileStats: read failed", "file", name, "err", err)
		return
	}
	writeJSON(w, http.StatusOK, FileStats{
		File:     name,
		Vertices: m.CountPoints(),
		Faces:    m.CountFacets(),
		BBox:     m.BoundBox(),
	}, s.logger)
}

// openFile resolves {file} inside the export directory. It writes the error response
// and returns false when the name is invalid or the file cannot be opened.
func (s *Server) openFile(w http.ResponseWriter, r *http.Request) (string, http.File, fs.FileInfo, bool) {
	name := chi.URLParam(r, "file")
	if name == "" || path.Base(name) != name || !strings.EqualFold(path.Ext(name), ".stl") {
		http.Error(w, "Invalid file name", http.StatusBadRequest)
		return "", nil, nil, false
	}

	dir := afero.NewHttpFs(s.Pipeline.Fs()).Dir(s.Defaults.Export.OutputDir)
	f, err := dir.Open("/" + name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "File not found", http.StatusNotFound)
			return "", nil, nil, false
		}
		http.Error(w, fmt.Sprintf("Open error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Open file failed", "file", name, "err", err)
		return "", nil, nil, false
	}

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		http.Error(w, "File not found", http.StatusNotFound)
		return "", nil, nil, false
	}
	return name, f, info, true
}

func (s *Server) loadManifest(w http.ResponseWriter, r *http.Request) (*domain.Manifest, bool) {
	key := s.Defaults.Export.ManifestKey()
	manifest, err := s.Pipeline.Store().Load(r.Context(), key)
	if errors.Is(err, domain.ErrManifestNotFound) {
		http.Error(w, "No manifest yet, run an export first", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Manifest error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Manifest load failed", "key", key, "err", err)
		return nil, false
	}
	return manifest, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (RunRequest, bool) {
	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		return req, false
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// runError maps pipeline errors to status codes.
func (s *Server) runError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrKernelUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}
