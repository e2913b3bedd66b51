package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/code11/internal/barcode"
	"github.com/MeKo-Tech/code11/internal/batch"
	"github.com/MeKo-Tech/code11/internal/code11"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	registry    *barcode.Registry
	validator   *batch.Validator
	defaults    barcode.Options
	corsOrigin  string
	maxBodyKB   int64
	timeoutSec  int
	rateLimiter *RateLimiter

	// progressInterval throttles per-request batch progress logging.
	progressInterval time.Duration
}

// Config holds server configuration.
type Config struct {
	Host         string
	Port         int
	CORSOrigin   string
	MaxBodyKB    int64
	TimeoutSec   int
	Defaults     barcode.Options
	BatchWorkers int
	// BatchProgressInterval throttles batch progress logging; 0 logs every item.
	BatchProgressInterval time.Duration
	RateLimit             RateLimitConfig
}

// RateLimitConfig enables per-client request limits and daily quotas.
// Zero limits are not enforced.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string   `json:"status"`
	Version string   `json:"version,omitempty"`
	Time    string   `json:"time"`
	Formats []string `json:"formats,omitempty"`
}

type SymbolInfo struct {
	Char    string `json:"char"`
	Pattern string `json:"pattern"`
	Value   *int   `json:"value,omitempty"`
}

type SymbolsResponse struct {
	Symbols []SymbolInfo `json:"symbols"`
	Count   int          `json:"count"`
}

// ValidateRequest carries exactly one of Patterns, Labels or Text.
// UseCheck and MinDigits override the server defaults when set.
type ValidateRequest struct {
	Format    string   `json:"format,omitempty"`
	Patterns  []string `json:"patterns,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Text      string   `json:"text,omitempty"`
	UseCheck  *bool    `json:"use_check,omitempty"`
	MinDigits *int     `json:"min_digits,omitempty"`
}

type ValidationResult struct {
	Valid     bool     `json:"valid"`
	CheckChar string   `json:"check_char,omitempty"`
	Display   string   `json:"display"`
	Symbols   []string `json:"symbols"`
	Length    int      `json:"length"`
}

type ValidateResponse struct {
	Success bool              `json:"success"`
	Result  *ValidationResult `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type BatchValidateRequest struct {
	Format string            `json:"format,omitempty"`
	Items  []ValidateRequest `json:"items"`
}

type BatchItemResult struct {
	Index   int               `json:"index"`
	Success bool              `json:"success"`
	Result  *ValidationResult `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type BatchValidateResponse struct {
	Success    bool              `json:"success"`
	Results    []BatchItemResult `json:"results"`
	Count      int               `json:"count"`
	ValidCount int               `json:"valid_count"`
}

// NewServer creates a new validation server instance.
func NewServer(config Config) (*Server, error) {
	if config.Defaults.MinDigits < 0 {
		return nil, fmt.Errorf("invalid default min digits: %d", config.Defaults.MinDigits)
	}
	if config.MaxBodyKB <= 0 {
		return nil, fmt.Errorf("invalid max body size: %d KB", config.MaxBodyKB)
	}
	if config.BatchProgressInterval < 0 {
		return nil, fmt.Errorf("invalid batch progress interval: %s", config.BatchProgressInterval)
	}

	registry := barcode.NewRegistry(code11.Decoder{})

	s := &Server{
		registry:   registry,
		validator:  batch.New(registry, batch.Config{Workers: config.BatchWorkers}),
		defaults:   config.Defaults,
		corsOrigin: config.CORSOrigin,
		maxBodyKB:  config.MaxBodyKB,
		timeoutSec: config.TimeoutSec,

		progressInterval: config.BatchProgressInterval,
	}

	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}

	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.rateLimiter != nil {
		s.rateLimiter.Reset()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/symbols", s.corsMiddleware(s.symbolsHandler))
	mux.HandleFunc("/validate", s.corsMiddleware(s.rateLimitMiddleware(s.validateHandler)))
	mux.HandleFunc("/validate/batch", s.corsMiddleware(s.rateLimitMiddleware(s.batchValidateHandler)))
	mux.HandleFunc("/ws/validate", s.rateLimitMiddleware(s.validateWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
