package gcs

import (
	"context"
	"os"
	"testing"

	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/storage/compliance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGCSStore_Compliance(t *testing.T) {
	bucket := os.Getenv("TASKGUARD_TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TASKGUARD_TEST_GCS_BUCKET not set, skipping GCS tests")
	}

	compliance.RunRepositoryComplianceTest(t, func(t *testing.T) (dedup.Repository, func()) {
		ctx := context.Background()
		store, err := NewStore(ctx, bucket)
		require.NoError(t, err)
		require.NoError(t, store.purge(ctx))

		return store, func() {
			assert.NoError(t, store.purge(ctx))
			assert.NoError(t, store.Close())
		}
	})
}

func TestObjectName(t *testing.T) {
	name := objectName("acme/eu", "task 1")
	assert.Equal(t, "tenants/acme%2Feu/tasks/task%201.json", name)

	id, ok := idFromObjectName(name)
	require.True(t, ok)
	assert.Equal(t, "task 1", id)

	_, ok = idFromObjectName("tenants/acme/tasks/readme.txt")
	assert.False(t, ok)
}
