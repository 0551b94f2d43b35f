package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/loader"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service  omrhythm.Service
	config   *ServerConfig
	log      omrhythm.Logger
	metrics  *Metrics
	validate *validator.Validate
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
	LogRequests    bool
}

// NewServer creates a new server instance
func NewServer(service omrhythm.Service, config *ServerConfig) *Server {
	return &Server{
		service:  service,
		config:   config,
		log:      logger.GetLogger(),
		metrics:  NewMetrics("omrhythm"),
		validate: validator.New(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondServiceError maps service errors onto status codes
func (s *Server) respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, omrhythm.ErrAnalysisNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, omrhythm.ErrInvalidSystem):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusGatewayTimeout, fmt.Sprintf("Timed out while trying to %s", action))
	default:
		s.log.Errorf("Failed to %s: %v", action, err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s", action))
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "omrhythm API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":         "GET /health",
			"metrics":        "GET /metrics",
			"analyses":       "GET /api/analyses",
			"analyze":        "POST /api/analyses",
			"getAnalysis":    "GET /api/analyses/{id}",
			"deleteAnalysis": "DELETE /api/analyses/{id}",
			"exportMIDI":     "GET /api/analyses/{id}/midi",
			"exportWAV":      "GET /api/analyses/{id}/wav",
			"verify":         "GET /api/analyses/{id}/verify",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		s.log.Errorf("Failed to count analyses: %v", err)
		s.respondError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		Time:         time.Now().Format(time.RFC3339),
		DatabasePath: s.config.DBPath,
		Analyses:     stats.Analyses,
		Abnormal:     stats.Abnormal,
		SampleRate:   s.config.SampleRate,
	})
}

// requestFormat picks the document format from ?format= or the Content-Type.
func requestFormat(r *http.Request) (loader.Format, error) {
	if f := strings.ToLower(r.URL.Query().Get("format")); f != "" {
		switch f {
		case "json":
			return loader.FormatJSON, nil
		case "yaml", "yml":
			return loader.FormatYAML, nil
		}
		return "", fmt.Errorf("unsupported format %q", f)
	}
	if strings.Contains(r.Header.Get("Content-Type"), "json") {
		return loader.FormatJSON, nil
	}
	return loader.FormatYAML, nil
}

// handleCreateAnalysis handles POST /api/analyses
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	format, err := requestFormat(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentBytes))
	if err != nil {
		s.respondError(w, http.StatusRequestEntityTooLarge, "Document too large")
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		s.respondError(w, http.StatusBadRequest, "Empty document")
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "upload"
	}

	start := time.Now()
	a, err := s.service.AnalyzeDocument(ctx, data, format, source)
	if err != nil {
		s.respondServiceError(w, err, "analyze document")
		return
	}
	s.metrics.ObserveAnalysis(a, time.Since(start))

	message := "Analysis stored"
	if a.Abnormal {
		message = "Analysis stored with abnormal stacks"
	}
	s.log.Infof("Analyzed %s (ID: %s, abnormal: %v)", a.Name, a.ID, a.Abnormal)
	s.respondJSON(w, http.StatusCreated, CreateAnalysisResponse{
		Message:  message,
		Analysis: a,
	})
}

func (s *Server) parseListQuery(r *http.Request) (ListQuery, error) {
	q := r.URL.Query()
	query := ListQuery{Limit: DefaultListLimit, Name: q.Get("name")}

	var err error
	if v := q.Get("limit"); v != "" {
		if query.Limit, err = strconv.Atoi(v); err != nil {
			return query, fmt.Errorf("invalid limit %q", v)
		}
	}
	if v := q.Get("offset"); v != "" {
		if query.Offset, err = strconv.Atoi(v); err != nil {
			return query, fmt.Errorf("invalid offset %q", v)
		}
	}
	if v := q.Get("abnormal"); v != "" {
		if query.Abnormal, err = strconv.ParseBool(v); err != nil {
			return query, fmt.Errorf("invalid abnormal flag %q", v)
		}
	}

	if err := s.validate.Struct(query); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return query, fmt.Errorf("%s fails %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param())
		}
		return query, err
	}
	return query, nil
}

// handleListAnalyses handles GET /api/analyses
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	query, err := s.parseListQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summaries, err := s.service.ListAnalyses(omrhythm.ListOptions{
		Limit:        query.Limit,
		Offset:       query.Offset,
		AbnormalOnly: query.Abnormal,
		Name:         query.Name,
	})
	if err != nil {
		s.respondServiceError(w, err, "list analyses")
		return
	}
	stats, err := s.service.Stats()
	if err != nil {
		s.respondServiceError(w, err, "count analyses")
		return
	}

	total := stats.Analyses
	if query.Abnormal {
		total = stats.Abnormal
	}
	s.respondJSON(w, http.StatusOK, ListAnalysesResponse{
		Analyses: summaries,
		Count:    len(summaries),
		Total:    total,
	})
}

// handleGetAnalysis handles GET /api/analyses/{id}
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a, err := s.service.GetAnalysis(id)
	if err != nil {
		s.respondServiceError(w, err, "get analysis")
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

// handleDeleteAnalysis handles DELETE /api/analyses/{id}
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.service.DeleteAnalysis(id); err != nil {
		s.respondServiceError(w, err, "delete analysis")
		return
	}
	s.metrics.AnalysesDeleted.Inc()

	s.log.Infof("Deleted analysis %s", id)
	s.respondJSON(w, http.StatusOK, DeleteAnalysisResponse{
		Message: "Analysis deleted successfully",
		ID:      id,
	})
}

// handleExportMIDI handles GET /api/analyses/{id}/midi
func (s *Server) handleExportMIDI(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	id := mux.Vars(r)["id"]
	var buf bytes.Buffer
	if err := s.service.ExportMIDI(ctx, id, &buf); err != nil {
		s.respondServiceError(w, err, "export midi")
		return
	}
	s.metrics.Exports.WithLabelValues(string(omrhythm.ExportMIDI)).Inc()

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".mid"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Errorf("Failed to write midi response: %v", err)
	}
}

// handleExportWAV handles GET /api/analyses/{id}/wav
func (s *Server) handleExportWAV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	id := mux.Vars(r)["id"]

	// the WAV encoder seeks back to patch its header, so render to a file
	tmp, err := os.CreateTemp(s.config.TempDir, "audition_*.wav")
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to render audition")
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := s.service.ExportWAV(ctx, id, tmp); err != nil {
		s.respondServiceError(w, err, "export wav")
		return
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to render audition")
		return
	}
	s.metrics.Exports.WithLabelValues(string(omrhythm.ExportWAV)).Inc()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".wav"))
	http.ServeContent(w, r, id+".wav", time.Now(), tmp)
}

// handleVerify handles GET /api/analyses/{id}/verify
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	id := mux.Vars(r)["id"]
	mismatches, err := s.service.VerifyAudition(ctx, id)
	if err != nil {
		s.respondServiceError(w, err, "verify audition")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"ok":         len(mismatches) == 0,
		"mismatches": mismatches,
	})
}
