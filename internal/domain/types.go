package domain

// TaskFilter selects tasks of one tenant by field equality.
// Nil fields are not filtered on.
type TaskFilter struct {
	IdentityHash *string
	Status       *TaskStatus
	AssignedTo   *string
}

// ListTasksParams pages through tasks in the store's stable order (keyset
// pagination). SQL and memory stores order by ID; object stores order by object
// name, which is ID order within one tenant.
//
// Common use cases:
//   - Full sweep of one tenant: TenantID=X, AfterID="" then the last ID of each page
//   - Global sweep for maintenance: TenantID="" (all tenants), passing the last
//     task's tenant as AfterTenantID
//
// A page may hold fewer than Limit tasks before the end; only an empty page marks
// the end of the sweep.
type ListTasksParams struct {
	TenantID      string // empty = all tenants
	AfterID       string // exclusive lower bound; empty starts from the beginning
	AfterTenantID string // tenant of the AfterID task; lets object stores resume without a lookup
	Limit         int    // page size, must be > 0
}

// ReconciliationStats summarises duplicate groups in a scope. Read only.
type ReconciliationStats struct {
	TenantID         string // empty when the scope is all tenants
	TotalTasks       int
	UniqueIdentities int
	DuplicateGroups  int // groups with more than one pending or more than one done record
	TotalDuplicates  int // records a scan would remove
	Groups           []DuplicateGroup
}

// DuplicateGroup details one identity with surplus records.
type DuplicateGroup struct {
	TenantID     string
	IdentityHash string
	Description  string
	AssignedTo   string
	Pending      int
	Done         int
	TaskIDs      []string
}

// Matches reports whether t satisfies every non-nil field of the filter.
func (f TaskFilter) Matches(t *Task) bool {
	if f.IdentityHash != nil && t.IdentityHash != *f.IdentityHash {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.AssignedTo != nil && t.AssignedTo != *f.AssignedTo {
		return false
	}
	return true
}
