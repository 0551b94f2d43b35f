package main

import (
	"github.com/himanishpuri/omrhythm/pkg/models"
)

const (
	// MaxDocumentBytes bounds the size of an uploaded system document.
	MaxDocumentBytes = 10 << 20

	// DefaultListLimit applies when a listing request names no limit.
	DefaultListLimit = 50
)

// ListQuery holds the query parameters of GET /api/analyses
type ListQuery struct {
	Limit    int    `validate:"gte=0,lte=500"`
	Offset   int    `validate:"gte=0"`
	Abnormal bool
	Name     string `validate:"max=200"`
}

// CreateAnalysisResponse is the response for POST /api/analyses
type CreateAnalysisResponse struct {
	Message  string           `json:"message"`
	Analysis *models.Analysis `json:"analysis"`
}

// ListAnalysesResponse is the response for GET /api/analyses
type ListAnalysesResponse struct {
	Analyses []models.AnalysisSummary `json:"analyses"`
	Count    int                      `json:"count"`
	Total    int64                    `json:"total"`
}

// DeleteAnalysisResponse is the response for DELETE /api/analyses/{id}
type DeleteAnalysisResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// HealthResponse provides server health and database counts
type HealthResponse struct {
	Status       string `json:"status"`
	Time         string `json:"time"`
	DatabasePath string `json:"database_path"`
	Analyses     int64  `json:"analyses"`
	Abnormal     int64  `json:"abnormal"`
	SampleRate   int    `json:"sample_rate"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
