package gcs

import (
	"encoding/json"
	"time"

	"github.com/rezkam/taskguard/internal/domain"
)

// taskDocument is the JSON layout of one task object.
// Timestamps are strings so that legacy documents with odd formats still decode.
type taskDocument struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	Description  string          `json:"description"`
	AssignedTo   string          `json:"assigned_to"`
	GivenBy      string          `json:"given_by"`
	ClientName   string          `json:"client_name,omitempty"`
	Deadline     string          `json:"deadline,omitempty"`
	IdentityHash string          `json:"identity_hash"`
	Status       string          `json:"status"`
	Priority     string          `json:"priority"`
	AssignedAt   string          `json:"assigned_at,omitempty"`
	CompletedAt  string          `json:"completed_at,omitempty"`
	Elapsed      string          `json:"elapsed,omitempty"`
	Comments     json.RawMessage `json:"comments,omitempty"`
	Notes        json.RawMessage `json:"notes,omitempty"`
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toDocument(t *domain.Task) taskDocument {
	return taskDocument{
		ID:           t.ID,
		TenantID:     t.TenantID,
		Description:  t.Description,
		AssignedTo:   t.AssignedTo,
		GivenBy:      t.GivenBy,
		ClientName:   t.ClientName,
		Deadline:     t.Deadline,
		IdentityHash: t.IdentityHash,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		AssignedAt:   formatTime(t.AssignedAt),
		CompletedAt:  formatTime(t.CompletedAt),
		Elapsed:      t.Elapsed,
		Comments:     t.Comments,
		Notes:        t.Notes,
	}
}

func (d taskDocument) toDomain() *domain.Task {
	t := &domain.Task{
		ID:           d.ID,
		TenantID:     d.TenantID,
		Description:  d.Description,
		AssignedTo:   d.AssignedTo,
		GivenBy:      d.GivenBy,
		ClientName:   d.ClientName,
		Deadline:     d.Deadline,
		IdentityHash: d.IdentityHash,
		Status:       domain.TaskStatus(d.Status),
		Priority:     domain.TaskPriority(d.Priority),
		AssignedAt:   domain.ParseTimestamp(d.AssignedAt),
		CompletedAt:  domain.ParseTimestamp(d.CompletedAt),
		Elapsed:      d.Elapsed,
	}
	if len(d.Comments) > 0 {
		t.Comments = d.Comments
	}
	if len(d.Notes) > 0 {
		t.Notes = d.Notes
	}
	return t
}

// Object metadata keys. They mirror the lookup fields so that filtering does not
// need to download every document.
const (
	metaIdentityHash = "identity_hash"
	metaStatus       = "status"
	metaAssignedTo   = "assigned_to"
)

func metadataFor(t *domain.Task) map[string]string {
	return map[string]string{
		metaIdentityHash: t.IdentityHash,
		metaStatus:       string(t.Status),
		metaAssignedTo:   t.AssignedTo,
	}
}

// metadataMatches reports whether object metadata satisfies the filter.
// Objects written without metadata always match and are checked after download.
func metadataMatches(meta map[string]string, f domain.TaskFilter) bool {
	if len(meta) == 0 {
		return true
	}
	if f.IdentityHash != nil && meta[metaIdentityHash] != *f.IdentityHash {
		return false
	}
	if f.Status != nil && meta[metaStatus] != string(*f.Status) {
		return false
	}
	if f.AssignedTo != nil && meta[metaAssignedTo] != *f.AssignedTo {
		return false
	}
	return true
}
