// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	commonvalidation "probate-workers/internal/common/validation"
	analyzedocument "probate-workers/internal/workers/asset-discovery/analyze-document"
	discovercaseassets "probate-workers/internal/workers/asset-discovery/discover-case-assets"
	searchcaseassets "probate-workers/internal/workers/asset-discovery/search-case-assets"
	advancecasephase "probate-workers/internal/workers/case/advance-case-phase"
)

const analyzeRequestSchema = `{
  "type": "object",
  "properties": {
    "documentText":  {"type": "string"},
    "documentType":  {"type": "string"},
    "documentName":  {"type": "string"},
    "taxReturnText": {"type": "string"},
    "year":          {"type": ["string", "number", "null"]}
  },
  "anyOf": [
    {"required": ["documentText"],  "properties": {"documentText":  {"pattern": "\\S"}}},
    {"required": ["taxReturnText"], "properties": {"taxReturnText": {"pattern": "\\S"}}}
  ]
}`

const discoveryRequestSchema = `{
  "type": "object",
  "properties": {
    "documentIds": {"type": "array", "items": {"type": "string", "minLength": 1}}
  },
  "additionalProperties": false
}`

var (
	analyzeSchema   = commonvalidation.MustCompile(analyzeRequestSchema)
	discoverySchema = commonvalidation.MustCompile(discoveryRequestSchema)
)

func (s *Server) handleAnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "document analysis is not configured", "")
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if result := analyzeSchema.ValidateJSON(body); !result.Valid {
		writeError(w, http.StatusBadRequest, "Document text is required", validationDetails(result))
		return
	}

	var input analyzedocument.Input
	if err := json.Unmarshal(body, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	output, err := s.deps.Analyzer.Execute(r.Context(), &input)
	switch {
	case errors.Is(err, analyzedocument.ErrMissingText):
		writeError(w, http.StatusBadRequest, "Document text is required", err.Error())
	case errors.Is(err, analyzedocument.ErrAnalysisTimeout),
		errors.Is(err, analyzedocument.ErrAnalysisFailed):
		writeError(w, http.StatusBadGateway, "Failed to analyze document", err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to analyze document", err.Error())
	default:
		writeJSON(w, http.StatusOK, output)
	}
}

func (s *Server) handleRunDiscovery(w http.ResponseWriter, r *http.Request) {
	if s.deps.Discovery == nil {
		writeError(w, http.StatusServiceUnavailable, "asset discovery is not configured", "")
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input := discovercaseassets.Input{CaseID: r.PathValue("caseId")}
	if len(strings.TrimSpace(string(body))) > 0 {
		if result := discoverySchema.ValidateJSON(body); !result.Valid {
			writeError(w, http.StatusBadRequest, "invalid request body", validationDetails(result))
			return
		}
		if err := json.Unmarshal(body, &input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		input.CaseID = r.PathValue("caseId")
	}

	output, err := s.deps.Discovery.Execute(r.Context(), &input)
	switch {
	case errors.Is(err, discovercaseassets.ErrCaseNotFound):
		writeError(w, http.StatusNotFound, "case not found", err.Error())
	case errors.Is(err, discovercaseassets.ErrDiscoveryTimeout):
		writeError(w, http.StatusBadGateway, "asset discovery timed out", err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "asset discovery failed", err.Error())
	default:
		writeJSON(w, http.StatusOK, output)
	}
}

func (s *Server) handleLatestAssets(w http.ResponseWriter, r *http.Request) {
	if s.deps.Discovery == nil {
		writeError(w, http.StatusServiceUnavailable, "asset discovery is not configured", "")
		return
	}

	output, err := s.deps.Discovery.Latest(r.Context(), r.PathValue("caseId"))
	switch {
	case errors.Is(err, discovercaseassets.ErrNoDiscovery):
		writeError(w, http.StatusNotFound, "no asset discovery has run for this case", "")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to load assets", err.Error())
	default:
		writeJSON(w, http.StatusOK, output)
	}
}

func (s *Server) handleCase(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cases == nil {
		writeError(w, http.StatusServiceUnavailable, "case store is not configured", "")
		return
	}

	c, err := s.deps.Cases.Summary(r.Context(), r.PathValue("caseId"))
	switch {
	case errors.Is(err, advancecasephase.ErrCaseNotFound):
		writeError(w, http.StatusNotFound, "case not found", "")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to load case", err.Error())
	default:
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Search == nil {
		writeError(w, http.StatusServiceUnavailable, "asset search is not configured", "")
		return
	}

	q := r.URL.Query()
	input := searchcaseassets.Input{
		Institution: q.Get("institution"),
		Type:        q.Get("type"),
		CaseID:      q.Get("caseId"),
		Query:       q.Get("q"),
	}
	var err error
	if input.Pagination.Size, err = intParam(q.Get("size")); err != nil {
		writeError(w, http.StatusBadRequest, "size must be a non-negative integer", "")
		return
	}
	if input.Pagination.From, err = intParam(q.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "from must be a non-negative integer", "")
		return
	}

	output, err := s.deps.Search.Execute(r.Context(), &input)
	switch {
	case errors.Is(err, searchcaseassets.ErrIndexNotFound):
		writeError(w, http.StatusNotFound, "asset index not found", err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, "asset search failed", err.Error())
	default:
		writeJSON(w, http.StatusOK, output)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.deps.Checks))
	for name := range s.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.deps.Checks[name](ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}

// readBody writes the error response itself when it returns false.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body", err.Error())
		return nil, false
	}
	return body, true
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid")
	}
	return n, nil
}

func validationDetails(result *commonvalidation.ValidationResult) string {
	return strings.Join(result.GetErrorMessages(), "; ")
}
