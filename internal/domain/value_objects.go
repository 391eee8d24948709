package domain

import (
	"fmt"
	"strings"
)

// NewTaskStatus validates and creates a TaskStatus.
func NewTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToLower(strings.TrimSpace(s)))

	switch status {
	case TaskStatusPending, TaskStatusDone:
		return status, nil
	default:
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", s)}
	}
}

// NewTaskPriority validates and creates a TaskPriority.
// Empty input defaults to Medium. Matching is case-insensitive.
func NewTaskPriority(s string) (TaskPriority, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TaskPriorityMedium, nil
	}

	for _, p := range []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh} {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", s)}
}
