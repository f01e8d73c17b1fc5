package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/streamapps/appgen/internal/catalog"
	"codeberg.org/streamapps/appgen/internal/generator"
	"codeberg.org/streamapps/appgen/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxDescriptorBytes = 1 << 20

// setupRoutes configures all HTTP routes. The event stream stays outside the
// timeout group so long-lived subscribers are not cut off.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout))

			r.Get("/health", s.handleHealth)

			// Descriptor catalog
			r.Get("/apps", s.handleListApps)
			r.Post("/apps/{name}/generate", s.handleGenerateApp)

			// Ad-hoc generation from a posted descriptor
			r.Post("/generate", s.handleGenerate)

			// Run history
			r.Get("/runs", s.handleListRuns)
			r.Get("/runs/{id}", s.handleGetRun)
		})

		r.Get("/runs/events", s.handleRunEvents)
	})
}

// handleHealth returns the health status of the service
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleListApps returns the descriptors found in the apps directory
func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		respondError(w, http.StatusServiceUnavailable, "no apps directory configured")
		return
	}

	descriptors, err := s.loader.LoadAll()
	if err != nil {
		s.logger.Error("failed to load descriptors", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load apps")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"apps": descriptors,
	})
}

// handleGenerateApp generates a descriptor from the apps directory.
// The project's resources directory is <appsDir>/<name>/resources.
func (s *Server) handleGenerateApp(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		respondError(w, http.StatusServiceUnavailable, "no apps directory configured")
		return
	}

	name := chi.URLParam(r, "name")
	descriptors, err := s.loader.LoadAll()
	if err != nil {
		s.logger.Error("failed to load descriptors", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load apps")
		return
	}

	var found *catalog.Descriptor
	for _, d := range descriptors {
		if d.Name == name {
			found = d
			break
		}
	}
	if found == nil {
		respondError(w, http.StatusNotFound, "app not found")
		return
	}

	s.generate(w, r, found, filepath.Join(s.appsDir, name, "resources"))
}

// handleGenerate generates projects from a YAML or JSON descriptor in the body
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDescriptorBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	d, err := catalog.ParseDescriptor(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.generate(w, r, d, "")
}

// generateResponse is returned by a successful generation
type generateResponse struct {
	RunID      string              `json:"run_id,omitempty"`
	OutputDir  string              `json:"output_dir"`
	Aggregator string              `json:"aggregator"`
	Projects   []generator.Project `json:"projects"`
}

// broadcast publishes a run event, noting subscribers that fell behind
func (s *Server) broadcast(event RunEvent) {
	if dropped := s.events.Broadcast(event); dropped > 0 {
		s.logger.Warn("run event dropped for slow subscribers", "status", event.Status, "dropped", dropped)
	}
}

// generate assembles and runs one request. Runs are serialized; with a
// shared locker a run already in progress elsewhere yields 409.
func (s *Server) generate(w http.ResponseWriter, r *http.Request, d *catalog.Descriptor, resources string) {
	if binders := r.URL.Query().Get("binders"); binders != "" {
		d.Binders = strings.Split(binders, ",")
	}

	if strings.ContainsAny(d.Version, `/\`) {
		respondError(w, http.StatusBadRequest, "version must not contain path separators")
		return
	}
	outputDir := filepath.Join(s.outputDir, d.Name+"-"+d.Version)

	req, err := generator.Assemble(d, generator.AssembleOptions{
		OutputFolder:          outputDir,
		ResourcesDirectory:    resources,
		RuntimeVersion:        s.runtimeVersion,
		MetadataPluginVersion: s.metadataPluginVersion,
		SpringCloudVersion:    s.springCloudVersion,
	}, s.logger)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()

	if s.locker != nil {
		release, err := s.locker.Acquire(r.Context(), outputDir)
		if errors.Is(err, store.ErrLocked) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			s.logger.Error("failed to acquire run lock", "error", err)
			respondError(w, http.StatusServiceUnavailable, "run lock unavailable")
			return
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				s.logger.Warn("failed to release run lock", "error", err)
			}
		}()
	}

	app := req.App
	runID := s.startRun(app.Name(), app.Version(), outputDir, req.UniqueBinders())
	s.broadcast(RunEvent{RunID: runID, App: app.Name(), Version: app.Version(), Status: store.RunStatusRunning})

	result, err := s.generator.Generate(req)
	if err != nil {
		s.logger.Error("generation failed", "app", app.Name(), "error", err)
		s.finishRun(runID, store.RunStatusFailed, err.Error())
		s.broadcast(RunEvent{RunID: runID, App: app.Name(), Version: app.Version(), Status: store.RunStatusFailed, Error: err.Error()})

		status := http.StatusInternalServerError
		if errors.Is(err, generator.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}

	s.finishRun(runID, store.RunStatusSucceeded, "")
	s.broadcast(RunEvent{
		RunID:    runID,
		App:      app.Name(),
		Version:  app.Version(),
		Status:   store.RunStatusSucceeded,
		Projects: result.Projects,
	})

	respondJSON(w, http.StatusOK, generateResponse{
		RunID:      runID,
		OutputDir:  outputDir,
		Aggregator: result.Aggregator,
		Projects:   result.Projects,
	})
}

// startRun records a run when a ledger is configured. Ledger failures never
// block generation.
func (s *Server) startRun(app, version, outputDir string, binders []string) string {
	if s.runs == nil {
		return ""
	}
	id, err := s.runs.Start(app, version, outputDir, binders)
	if err != nil {
		s.logger.Warn("failed to record run start", "app", app, "error", err)
		return ""
	}
	return id
}

func (s *Server) finishRun(id, status, errMsg string) {
	if s.runs == nil || id == "" {
		return
	}
	if err := s.runs.Finish(id, status, errMsg); err != nil {
		s.logger.Warn("failed to record run result", "run_id", id, "error", err)
	}
}

// handleListRuns returns the most recent runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.runs.Recent(limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, runs)
}

// handleGetRun returns one run by ID
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}

	run, err := s.runs.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("failed to get run", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
