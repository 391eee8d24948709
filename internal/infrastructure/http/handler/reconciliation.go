// Package handler adapts admin HTTP requests to the reconciliation services.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/domain"
	"github.com/rezkam/taskguard/internal/infrastructure/http/response"
)

// Scanner runs an on-demand reconciliation pass.
type Scanner interface {
	Scan(ctx context.Context, tenantID string) (dedup.ScanResult, error)
}

// Reporter computes read-only duplicate statistics.
type Reporter interface {
	Stats(ctx context.Context, tenantID string) (*domain.ReconciliationStats, error)
}

// ReconciliationHandler serves the per-tenant reconciliation endpoints.
type ReconciliationHandler struct {
	scanner  Scanner
	reporter Reporter
}

func NewReconciliationHandler(scanner Scanner, reporter Reporter) *ReconciliationHandler {
	return &ReconciliationHandler{scanner: scanner, reporter: reporter}
}

// Routes mounts the handler:
//
//	GET  /v1/tenants/{tenant}/reconciliation/stats
//	POST /v1/tenants/{tenant}/reconciliation/scan
func (h *ReconciliationHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/v1/tenants/{tenant}/reconciliation", func(r chi.Router) {
		r.Get("/stats", h.GetStats)
		r.Post("/scan", h.RunScan)
	})
	return r
}

type statsResponse struct {
	TenantID         string               `json:"tenant_id"`
	TotalTasks       int                  `json:"total_tasks"`
	UniqueIdentities int                  `json:"unique_identities"`
	DuplicateGroups  int                  `json:"duplicate_groups"`
	TotalDuplicates  int                  `json:"total_duplicates"`
	Groups           []duplicateGroupJSON `json:"groups"`
}

type duplicateGroupJSON struct {
	IdentityHash string   `json:"identity_hash"`
	Description  string   `json:"description"`
	AssignedTo   string   `json:"assigned_to"`
	Pending      int      `json:"pending"`
	Done         int      `json:"done"`
	TaskIDs      []string `json:"task_ids"`
}

type scanResponse struct {
	TenantID string `json:"tenant_id"`
	Found    int    `json:"found"`
	Removed  int    `json:"removed"`
}

func tenantParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenant := strings.TrimSpace(chi.URLParam(r, "tenant"))
	if tenant == "" {
		response.ValidationError(w, "tenant", "is required")
		return "", false
	}
	return tenant, true
}

// GetStats handles GET /v1/tenants/{tenant}/reconciliation/stats.
func (h *ReconciliationHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantParam(w, r)
	if !ok {
		return
	}

	stats, err := h.reporter.Stats(r.Context(), tenant)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	resp := statsResponse{
		TenantID:         stats.TenantID,
		TotalTasks:       stats.TotalTasks,
		UniqueIdentities: stats.UniqueIdentities,
		DuplicateGroups:  stats.DuplicateGroups,
		TotalDuplicates:  stats.TotalDuplicates,
		Groups:           make([]duplicateGroupJSON, 0, len(stats.Groups)),
	}
	for _, g := range stats.Groups {
		resp.Groups = append(resp.Groups, duplicateGroupJSON{
			IdentityHash: g.IdentityHash,
			Description:  g.Description,
			AssignedTo:   g.AssignedTo,
			Pending:      g.Pending,
			Done:         g.Done,
			TaskIDs:      g.TaskIDs,
		})
	}
	response.OK(w, resp)
}

// RunScan handles POST /v1/tenants/{tenant}/reconciliation/scan.
func (h *ReconciliationHandler) RunScan(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantParam(w, r)
	if !ok {
		return
	}

	result, err := h.scanner.Scan(r.Context(), tenant)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, scanResponse{TenantID: tenant, Found: result.Found, Removed: result.Removed})
}
