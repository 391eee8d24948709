package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/domain"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

type printer struct {
	format string
	w      io.Writer
}

func newPrinter(format string, w io.Writer) (*printer, error) {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return &printer{format: format, w: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// structured writes v as JSON or YAML. Reports false for table output.
func (p *printer) structured(v any) (bool, error) {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

func (p *printer) table() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(p.w)
	tw.SetStyle(table.StyleLight)
	return tw
}

type scanView struct {
	Tenant  string `json:"tenant" yaml:"tenant"`
	Found   int    `json:"found" yaml:"found"`
	Removed int    `json:"removed" yaml:"removed"`
}

func (p *printer) scan(tenant string, result dedup.ScanResult) error {
	view := scanView{Tenant: scope(tenant), Found: result.Found, Removed: result.Removed}
	if ok, err := p.structured(view); ok {
		return err
	}

	tw := p.table()
	tw.AppendHeader(table.Row{"Scope", "Groups Found", "Records Removed"})
	tw.AppendRow(table.Row{view.Tenant, view.Found, view.Removed})
	tw.Render()
	return nil
}

type groupView struct {
	Tenant       string   `json:"tenant" yaml:"tenant"`
	IdentityHash string   `json:"identity_hash" yaml:"identity_hash"`
	Description  string   `json:"description" yaml:"description"`
	AssignedTo   string   `json:"assigned_to" yaml:"assigned_to"`
	Pending      int      `json:"pending" yaml:"pending"`
	Done         int      `json:"done" yaml:"done"`
	TaskIDs      []string `json:"task_ids" yaml:"task_ids"`
}

type statsView struct {
	Tenant           string      `json:"tenant" yaml:"tenant"`
	TotalTasks       int         `json:"total_tasks" yaml:"total_tasks"`
	UniqueIdentities int         `json:"unique_identities" yaml:"unique_identities"`
	DuplicateGroups  int         `json:"duplicate_groups" yaml:"duplicate_groups"`
	TotalDuplicates  int         `json:"total_duplicates" yaml:"total_duplicates"`
	Groups           []groupView `json:"groups" yaml:"groups"`
}

func (p *printer) stats(stats *domain.ReconciliationStats) error {
	view := statsView{
		Tenant:           scope(stats.TenantID),
		TotalTasks:       stats.TotalTasks,
		UniqueIdentities: stats.UniqueIdentities,
		DuplicateGroups:  stats.DuplicateGroups,
		TotalDuplicates:  stats.TotalDuplicates,
		Groups:           make([]groupView, 0, len(stats.Groups)),
	}
	for _, g := range stats.Groups {
		view.Groups = append(view.Groups, groupView{
			Tenant:       g.TenantID,
			IdentityHash: g.IdentityHash,
			Description:  g.Description,
			AssignedTo:   g.AssignedTo,
			Pending:      g.Pending,
			Done:         g.Done,
			TaskIDs:      g.TaskIDs,
		})
	}
	if ok, err := p.structured(view); ok {
		return err
	}

	summary := p.table()
	summary.AppendHeader(table.Row{"Scope", "Tasks", "Identities", "Duplicate Groups", "Surplus Records"})
	summary.AppendRow(table.Row{view.Tenant, view.TotalTasks, view.UniqueIdentities, view.DuplicateGroups, view.TotalDuplicates})
	summary.Render()

	if len(view.Groups) == 0 {
		return nil
	}

	groups := p.table()
	groups.AppendHeader(table.Row{"Tenant", "Description", "Assigned To", "Pending", "Done"})
	for _, g := range view.Groups {
		groups.AppendRow(table.Row{g.Tenant, g.Description, g.AssignedTo, g.Pending, g.Done})
	}
	groups.Render()
	return nil
}

type taskView struct {
	ID          string `json:"id" yaml:"id"`
	Tenant      string `json:"tenant" yaml:"tenant"`
	Description string `json:"description" yaml:"description"`
	AssignedTo  string `json:"assigned_to" yaml:"assigned_to"`
	GivenBy     string `json:"given_by" yaml:"given_by"`
	ClientName  string `json:"client_name,omitempty" yaml:"client_name,omitempty"`
	Deadline    string `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Status      string `json:"status" yaml:"status"`
	Priority    string `json:"priority" yaml:"priority"`
	AssignedAt  string `json:"assigned_at,omitempty" yaml:"assigned_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Elapsed     string `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	Created     bool   `json:"created" yaml:"created"`
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (p *printer) task(t *domain.Task, created bool) error {
	view := taskView{
		ID:          t.ID,
		Tenant:      t.TenantID,
		Description: t.Description,
		AssignedTo:  t.AssignedTo,
		GivenBy:     t.GivenBy,
		ClientName:  t.ClientName,
		Deadline:    t.Deadline,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		AssignedAt:  formatTime(t.AssignedAt),
		CompletedAt: formatTime(t.CompletedAt),
		Elapsed:     t.Elapsed,
		Created:     created,
	}
	if ok, err := p.structured(view); ok {
		return err
	}

	tw := p.table()
	tw.AppendHeader(table.Row{"ID", "Description", "Assigned To", "Status", "Priority", "Elapsed", "Created"})
	tw.AppendRow(table.Row{view.ID, view.Description, view.AssignedTo, view.Status, view.Priority, view.Elapsed, view.Created})
	tw.Render()
	return nil
}

func scope(tenant string) string {
	if tenant == "" {
		return "all tenants"
	}
	return tenant
}
