// Package gcs stores tasks as JSON documents in a Google Cloud Storage bucket.
//
// Objects live at tenants/<tenant>/tasks/<id>.json. The bucket offers per-object
// preconditions but no multi-object transaction, so there is no conditional insert:
// concurrent creations of one identity can leave duplicates for the scanner.
package gcs

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/domain"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	rootPrefix = "tenants/"

	// maxConcurrency bounds parallel object downloads.
	maxConcurrency = 20

	// maxUpdateAttempts bounds read-modify-write retries on generation conflicts.
	maxUpdateAttempts = 5
)

// Store is a GCS-based implementation of dedup.Repository.
type Store struct {
	client *storage.Client
	bucket string
}

var _ dedup.Repository = (*Store)(nil)

// NewStore creates a store for bucketName.
// Without options the client uses Application Default Credentials.
func NewStore(ctx context.Context, bucketName string, opts ...option.ClientOption) (*Store, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &Store{client: client, bucket: bucketName}, nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reads the bucket metadata. It fails when the bucket is missing or the
// credentials cannot see it.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return domain.StoreError("ping", err)
	}
	return nil
}

func tenantPrefix(tenantID string) string {
	return rootPrefix + url.PathEscape(tenantID) + "/tasks/"
}

func objectName(tenantID, id string) string {
	return tenantPrefix(tenantID) + url.PathEscape(id) + ".json"
}

// idFromObjectName extracts the task ID from an object name.
func idFromObjectName(name string) (string, bool) {
	base, ok := strings.CutSuffix(path.Base(name), ".json")
	if !ok {
		return "", false
	}
	id, err := url.PathUnescape(base)
	if err != nil {
		return "", false
	}
	return id, true
}

func isPreconditionFailed(err error) bool {
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusPreconditionFailed
}

func (s *Store) write(ctx context.Context, t *domain.Task, cond storage.Conditions) error {
	data, err := json.Marshal(toDocument(t))
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	w := s.client.Bucket(s.bucket).Object(objectName(t.TenantID, t.ID)).If(cond).NewWriter(ctx)
	w.ContentType = "application/json"
	w.Metadata = metadataFor(t)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *Store) read(ctx context.Context, name string) (*domain.Task, int64, error) {
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	var doc taskDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, 0, fmt.Errorf("failed to decode task %s: %w", name, err)
	}
	return doc.toDomain(), r.Attrs.Generation, nil
}

// locate finds the object holding id in any tenant.
func (s *Store) locate(ctx context.Context, id string) (string, error) {
	query := &storage.Query{
		Prefix:    rootPrefix,
		MatchGlob: rootPrefix + "*/tasks/" + url.PathEscape(id) + ".json",
	}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return "", err
	}

	attrs, err := s.client.Bucket(s.bucket).Objects(ctx, query).Next()
	if errors.Is(err, iterator.Done) {
		return "", fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return "", domain.StoreError("locate task", err)
	}
	return attrs.Name, nil
}

// InsertTask writes a new task object. The write fails if the object exists.
func (s *Store) InsertTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.ID == "" {
		return nil, domain.ErrInvalidID
	}

	if err := s.write(ctx, task, storage.Conditions{DoesNotExist: true}); err != nil {
		if isPreconditionFailed(err) {
			return nil, fmt.Errorf("%w: task %s already exists", domain.ErrInvalidID, task.ID)
		}
		return nil, domain.StoreError("insert task", err)
	}
	return task.Clone(), nil
}

// FindTaskByID retrieves a task by ID.
func (s *Store) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	name, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}

	task, _, err := s.read(ctx, name)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, domain.StoreError("find task", err)
	}
	return task, nil
}

// listNames returns object names under prefix whose metadata matches filter.
func (s *Store) listNames(ctx context.Context, prefix string, filter domain.TaskFilter) ([]string, error) {
	query := &storage.Query{Prefix: prefix}
	if err := query.SetAttrSelection([]string{"Name", "Metadata"}); err != nil {
		return nil, err
	}

	var names []string
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(attrs.Name, ".json") && metadataMatches(attrs.Metadata, filter) {
			names = append(names, attrs.Name)
		}
	}
	return names, nil
}

// fetch downloads objects in parallel. Objects deleted since listing are skipped.
func (s *Store) fetch(ctx context.Context, names []string) ([]*domain.Task, error) {
	tasks := make([]*domain.Task, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)
	for i, name := range names {
		g.Go(func() error {
			task, _, err := s.read(gctx, name)
			if errors.Is(err, storage.ErrObjectNotExist) {
				return nil
			}
			if err != nil {
				return err
			}
			tasks[i] = task
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return slices.DeleteFunc(tasks, func(t *domain.Task) bool { return t == nil }), nil
}

// FindTasks returns matching tasks of one tenant, in ID order.
func (s *Store) FindTasks(ctx context.Context, tenantID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	names, err := s.listNames(ctx, tenantPrefix(tenantID), filter)
	if err != nil {
		return nil, domain.StoreError("find tasks", err)
	}

	tasks, err := s.fetch(ctx, names)
	if err != nil {
		return nil, domain.StoreError("find tasks", err)
	}

	tasks = slices.DeleteFunc(tasks, func(t *domain.Task) bool { return !filter.Matches(t) })
	slices.SortFunc(tasks, func(a, b *domain.Task) int { return strings.Compare(a.ID, b.ID) })
	return tasks, nil
}

// UpdateTask applies patch with a read-modify-write guarded by the object generation.
func (s *Store) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	name, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}

	for range maxUpdateAttempts {
		task, generation, err := s.read(ctx, name)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
		}
		if err != nil {
			return nil, domain.StoreError("update task", err)
		}

		patch.Apply(task)
		err = s.write(ctx, task, storage.Conditions{GenerationMatch: generation})
		if err == nil {
			return task, nil
		}
		if !isPreconditionFailed(err) {
			return nil, domain.StoreError("update task", err)
		}
	}
	return nil, domain.StoreError("update task", fmt.Errorf("task %s kept changing after %d attempts", id, maxUpdateAttempts))
}

// DeleteTask removes a task object.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	name, err := s.locate(ctx, id)
	if err != nil {
		return err
	}

	err = s.client.Bucket(s.bucket).Object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.StoreError("delete task", err)
	}
	return nil
}

// ListTasks pages through tasks in object-name order, which is ID order within a
// tenant. Listing resumes at the cursor's object name, so a page costs one listing
// pass over its own objects. Objects deleted between listing and download are
// replaced from further down the listing; only the final pages come back short.
func (s *Store) ListTasks(ctx context.Context, params domain.ListTasksParams) ([]*domain.Task, error) {
	if params.Limit <= 0 {
		return nil, &domain.ValidationError{Field: "limit", Reason: "must be positive"}
	}

	prefix := rootPrefix
	if params.TenantID != "" {
		prefix = tenantPrefix(params.TenantID)
	}

	query := &storage.Query{Prefix: prefix}
	after := ""
	if params.AfterID != "" {
		var err error
		if after, err = s.cursorName(ctx, params); err != nil {
			return nil, err
		}
		query.StartOffset = after
	}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, domain.StoreError("list tasks", err)
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	var tasks []*domain.Task
	for len(tasks) < params.Limit {
		names, done, err := nextNames(it, after, params.Limit-len(tasks))
		if err != nil {
			return nil, domain.StoreError("list tasks", err)
		}
		fetched, err := s.fetch(ctx, names)
		if err != nil {
			return nil, domain.StoreError("list tasks", err)
		}
		tasks = append(tasks, fetched...)
		if done {
			break
		}
	}
	return tasks, nil
}

// cursorName resolves the object name of the AfterID task. Without a tenant the
// object is looked up, which fails with domain.ErrNotFound once it is deleted.
func (s *Store) cursorName(ctx context.Context, params domain.ListTasksParams) (string, error) {
	if tenantID := cmp.Or(params.TenantID, params.AfterTenantID); tenantID != "" {
		return objectName(tenantID, params.AfterID), nil
	}
	return s.locate(ctx, params.AfterID)
}

// nextNames reads up to n task object names from it, skipping the cursor object
// itself (StartOffset is inclusive). done reports that the listing is exhausted.
func nextNames(it *storage.ObjectIterator, after string, n int) (names []string, done bool, err error) {
	for len(names) < n {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		if attrs.Name == after {
			continue
		}
		if _, ok := idFromObjectName(attrs.Name); !ok {
			continue
		}
		names = append(names, attrs.Name)
	}
	return names, false, nil
}

// purge deletes every task object. Used by tests against a real bucket.
func (s *Store) purge(ctx context.Context) error {
	names, err := s.listNames(ctx, rootPrefix, domain.TaskFilter{})
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)
	for _, name := range names {
		g.Go(func() error {
			if err := s.client.Bucket(s.bucket).Object(name).Delete(gctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
