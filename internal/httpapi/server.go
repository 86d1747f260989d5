// Package httpapi exposes the reconciliation service over HTTP for the
// upload UI: QC scans, property-identifier assignment, imports, and
// duplicate-group review.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/joelkehle/registry-intake/internal/qc"
	"github.com/joelkehle/registry-intake/internal/registry"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

type Server struct {
	api registry.API
	qc  *qc.Engine
}

func NewServer(api registry.API) http.Handler {
	s := &Server{api: api, qc: qc.NewEngine()}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", s.handleHealth)
	mux.HandleFunc("/v1/qc/scan", s.handleQCScan)
	mux.HandleFunc("/v1/qc/fixes", s.handleQCFixes)
	mux.HandleFunc("/v1/assignments", s.handleAssignments)
	mux.HandleFunc("/v1/imports", s.handleImports)
	mux.HandleFunc("/v1/duplicates", s.handleDuplicates)
	mux.HandleFunc("/v1/duplicates/delete", s.handleDuplicatesDelete)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *registry.Error
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.Status, map[string]any{
			"ok": false,
			"error": map[string]any{
				"code":    apiErr.Code,
				"message": apiErr.Message,
			},
		})
		return
	}
	log.Printf("httpapi: internal error: %v", err)
	writeJSON(w, 500, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    registry.CodeInternal,
			"message": err.Error(),
		},
	})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return registry.NewValidationError("invalid json: %v", err)
	}
	return nil
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, s.api.Health(r.Context()))
}

type recordsRequest struct {
	Records []registry.Record `json:"records"`
}

func (s *Server) handleQCScan(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req recordsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, err)
		return
	}
	issues := s.qc.Scan(req.Records)
	writeJSON(w, 200, issuesPayload(issues))
}

func (s *Server) handleQCFixes(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Records []registry.Record `json:"records"`
		Fixes   []qc.Fix          `json:"fixes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, err)
		return
	}
	issues := s.qc.ApplyFixes(req.Records, req.Fixes)
	payload := issuesPayload(issues)
	payload["records"] = req.Records
	writeJSON(w, 200, payload)
}

func issuesPayload(issues []qc.Issue) map[string]any {
	if issues == nil {
		issues = []qc.Issue{}
	}
	return map[string]any{
		"issues": issues,
		"counts": qc.CountByType(issues),
	}
}

func (s *Server) handleAssignments(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		SourceTable string            `json:"source_table"`
		Records     []registry.Record `json:"records"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, err)
		return
	}
	assignments, summary, err := s.api.Assign(r.Context(), req.SourceTable, req.Records)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if assignments == nil {
		assignments = []registry.Assignment{}
	}
	writeJSON(w, 200, map[string]any{
		"assignments": assignments,
		"summary":     summary,
		"records":     req.Records,
	})
}

func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Table   string            `json:"table"`
		Records []registry.Record `json:"records"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, err)
		return
	}
	result, err := s.api.Import(r.Context(), req.Table, req.Records)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, result)
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	groups, err := s.api.FindGroups(r.Context(), q.Get("table"), q.Get("partition"))
	if err != nil {
		writeAPIError(w, err)
		return
	}

	page := parseInt(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	size := parseInt(q.Get("page_size"), defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	total := len(groups)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	pageGroups := groups[start:end]
	if pageGroups == nil {
		pageGroups = []registry.DuplicateGroup{}
	}

	writeJSON(w, 200, map[string]any{
		"groups":    pageGroups,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}

func (s *Server) handleDuplicatesDelete(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Table      string              `json:"table"`
		Partition  string              `json:"partition"`
		Operations []registry.DeleteOp `json:"operations"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, err)
		return
	}
	deleted, err := s.api.DeleteGroups(r.Context(), req.Table, req.Operations, req.Partition)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"deleted": deleted})
}
