package memory

import (
	"testing"

	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/storage/compliance"
)

func TestMemoryStore_Compliance(t *testing.T) {
	compliance.RunRepositoryComplianceTest(t, func(t *testing.T) (dedup.Repository, func()) {
		return NewStore(), func() {}
	})
}
