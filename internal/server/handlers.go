package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/code11/internal/barcode"
	"github.com/MeKo-Tech/code11/internal/batch"
	"github.com/MeKo-Tech/code11/internal/code11"
	"github.com/MeKo-Tech/code11/internal/labels"
	"github.com/MeKo-Tech/code11/internal/version"
)

// maxBatchItems bounds the size of a single batch request.
const maxBatchItems = 1000

var errInputCount = errors.New("exactly one of patterns, labels or text is required")

// requestError is a rejected request together with its HTTP status.
type requestError struct {
	status int
	kind   string
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) *requestError {
	return &requestError{status: http.StatusBadRequest, kind: "bad_request", err: err}
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var formats []string
	for _, f := range s.registry.Formats() {
		formats = append(formats, f.String())
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Formats: formats,
	})
}

// symbolsHandler lists the Code 11 symbol table.
func (s *Server) symbolsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := code11.Symbols()
	infos := make([]SymbolInfo, len(entries))
	for i, e := range entries {
		infos[i] = SymbolInfo{Char: e.Label, Pattern: e.Pattern.String()}
		if e.HasValue {
			v := e.Value
			infos[i].Value = &v
		}
	}

	s.writeJSON(w, http.StatusOK, SymbolsResponse{Symbols: infos, Count: len(infos)})
}

// validateHandler validates a single barcode.
func (s *Server) validateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ValidateRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeRequestError(w, err)
		return
	}

	result, err := s.validate("http", req)
	if err != nil {
		s.writeRequestError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ValidateResponse{Success: true, Result: result})
}

// batchValidateHandler validates many barcodes concurrently. Per-item
// failures are reported in the item results.
func (s *Server) batchValidateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BatchValidateRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeRequestError(w, err)
		return
	}
	if len(req.Items) == 0 {
		s.writeErrorResponse(w, "No items provided", http.StatusBadRequest)
		return
	}
	if len(req.Items) > maxBatchItems {
		s.writeErrorResponse(w, fmt.Sprintf("Too many items: %d (max %d)", len(req.Items), maxBatchItems), http.StatusBadRequest)
		return
	}

	format, err := barcode.ParseFormat(req.Format)
	if err != nil {
		s.writeRequestError(w, badRequest(err))
		return
	}

	batchSize.Observe(float64(len(req.Items)))

	results := make([]BatchItemResult, len(req.Items))
	jobs := make([]batch.Job, 0, len(req.Items))
	positions := make([]int, 0, len(req.Items))
	for i, item := range req.Items {
		results[i].Index = i
		if item.Format == "" {
			item.Format = req.Format
		}
		itemFormat, job, err := s.buildJob(item)
		if err == nil && itemFormat != format {
			err = badRequest(fmt.Errorf("item format %s does not match batch format %s", itemFormat, format))
		}
		if err != nil {
			s.recordFailure("batch", err)
			results[i].Error = err.Error()
			continue
		}
		jobs = append(jobs, job)
		positions = append(positions, i)
	}

	ctx := r.Context()
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	progress := batch.NewLogProgressCallback(
		slog.Default().With("endpoint", "/validate/batch", "client", getClientIP(r)),
		s.progressInterval,
	)
	out, err := s.validator.RunWithProgress(ctx, format, jobs, progress)
	if err != nil {
		slog.Error("Batch validation failed", "items", len(req.Items), "error", err)
		s.writeErrorResponse(w, "Batch validation failed: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	validCount := 0
	for k, res := range out {
		i := positions[k]
		if res.Err != nil {
			s.recordFailure("batch", classify(res.Err))
			results[i].Error = res.Err.Error()
			continue
		}
		s.recordSuccess("batch", res)
		results[i].Success = true
		results[i].Result = toValidationResult(res)
		if res.Valid {
			validCount++
		}
	}

	slog.Debug("Batch request validated", "items", len(req.Items), "valid", validCount)

	s.writeJSON(w, http.StatusOK, BatchValidateResponse{
		Success:    true,
		Results:    results,
		Count:      len(results),
		ValidCount: validCount,
	})
}

// validate builds and validates one request, recording metrics under source.
func (s *Server) validate(source string, req ValidateRequest) (*ValidationResult, error) {
	format, job, err := s.buildJob(req)
	if err != nil {
		s.recordFailure(source, err)
		return nil, err
	}

	dec, err := s.registry.Lookup(format)
	if err != nil {
		rerr := badRequest(err)
		s.recordFailure(source, rerr)
		return nil, rerr
	}

	res := batch.Evaluate(dec, job)
	if res.Err != nil {
		rerr := classify(res.Err)
		s.recordFailure(source, rerr)
		return nil, rerr
	}

	s.recordSuccess(source, res)
	return toValidationResult(res), nil
}

// buildJob resolves the format, input and options of a request.
func (s *Server) buildJob(req ValidateRequest) (barcode.Format, batch.Job, error) {
	format, err := barcode.ParseFormat(req.Format)
	if err != nil {
		return barcode.FormatUnknown, batch.Job{}, badRequest(err)
	}

	inputs := 0
	for _, present := range []bool{len(req.Patterns) > 0, len(req.Labels) > 0, strings.TrimSpace(req.Text) != ""} {
		if present {
			inputs++
		}
	}
	if inputs != 1 {
		return format, batch.Job{}, badRequest(errInputCount)
	}

	opts := s.defaults
	if req.UseCheck != nil {
		opts.UseCheck = *req.UseCheck
	}
	if req.MinDigits != nil {
		if *req.MinDigits < 0 {
			return format, batch.Job{}, badRequest(fmt.Errorf("min_digits must not be negative, got %d", *req.MinDigits))
		}
		opts.MinDigits = *req.MinDigits
	}

	job := batch.Job{Patterns: req.Patterns, Labels: req.Labels, Options: opts}
	if req.Text != "" && len(job.Labels) == 0 && len(job.Patterns) == 0 {
		job.Labels = labels.Split(req.Text)
	}
	return format, job, nil
}

// classify maps a decode failure to an HTTP status.
func classify(err error) *requestError {
	var rerr *requestError
	switch {
	case errors.As(err, &rerr):
		return rerr
	case errors.Is(err, code11.ErrUnknownSymbol):
		return &requestError{status: http.StatusUnprocessableEntity, kind: "unknown_symbol", err: err}
	case errors.Is(err, code11.ErrUnknownCharacter):
		return &requestError{status: http.StatusUnprocessableEntity, kind: "unknown_character", err: err}
	default:
		return badRequest(err)
	}
}

func (s *Server) recordSuccess(source string, res batch.Result) {
	outcome := "invalid"
	if res.Valid {
		outcome = "valid"
	}
	validationsTotal.WithLabelValues(source, outcome).Inc()
	barcodeLength.Observe(float64(res.Length))
}

func (s *Server) recordFailure(source string, err error) {
	validationsTotal.WithLabelValues(source, "error").Inc()
	decodeErrorsTotal.WithLabelValues(classify(err).kind).Inc()
}

func toValidationResult(res batch.Result) *ValidationResult {
	symbols := []string{}
	if res.Display != "" {
		symbols = strings.Split(res.Display, code11.Separator)
	}
	return &ValidationResult{
		Valid:     res.Valid,
		CheckChar: res.CheckChar,
		Display:   res.Display,
		Symbols:   symbols,
		Length:    res.Length,
	}
}

// decodeBody reads a size-limited JSON body into v.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyKB*1024)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &requestError{status: http.StatusRequestEntityTooLarge, kind: "bad_request", err: errors.New("request body too large")}
		}
		return badRequest(fmt.Errorf("invalid JSON body: %w", err))
	}
	return nil
}

// writeRequestError writes err with the status it carries.
func (s *Server) writeRequestError(w http.ResponseWriter, err error) {
	rerr := classify(err)
	s.writeErrorResponse(w, rerr.Error(), rerr.status)
}

// writeJSON writes v with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ValidateResponse{Success: false, Error: message})
}
