package data

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
)

func TestMemoryJobStore_CreateAndGet(t *testing.T) {
	clock := NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryJobStoreWithClock(clock)
	ctx := context.Background()

	job := &model.Job{ID: "job-1", State: model.JobStateAwaitingPayment}
	require.NoError(t, store.Create(ctx, job))
	assert.Equal(t, 1, store.Len())

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateAwaitingPayment, got.State)
	assert.Equal(t, clock.Now(), got.CreatedAt)
	assert.Equal(t, clock.Now(), got.UpdatedAt)
}

func TestMemoryJobStore_CreateDuplicate(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &model.Job{ID: "job-1"}))
	err := store.Create(ctx, &model.Job{ID: "job-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestMemoryJobStore_CreateRequiresID(t *testing.T) {
	store := NewMemoryJobStore()
	require.Error(t, store.Create(context.Background(), &model.Job{}))
	require.Error(t, store.Create(context.Background(), nil))
}

func TestMemoryJobStore_GetNotFound(t *testing.T) {
	store := NewMemoryJobStore()
	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemoryJobStore_GetReturnsSnapshot(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &model.Job{ID: "job-1", State: model.JobStateAwaitingPayment}))

	snapshot, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	snapshot.State = model.JobStateFailed

	fresh, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateAwaitingPayment, fresh.State)
}

func TestMemoryJobStore_Update(t *testing.T) {
	clock := NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryJobStoreWithClock(clock)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &model.Job{ID: "job-1", State: model.JobStateAwaitingPayment}))

	clock.AddTime(5 * time.Second)
	updated, err := store.Update(ctx, "job-1", func(job *model.Job) error {
		job.State = model.JobStatePaid
		job.State = model.JobStateExecuting
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStateExecuting, updated.State)
	assert.Equal(t, clock.Now(), updated.UpdatedAt)
}

func TestMemoryJobStore_UpdateAbortedMutationNotVisible(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &model.Job{ID: "job-1", State: model.JobStateAwaitingPayment}))

	boom := errors.New("boom")
	_, err := store.Update(ctx, "job-1", func(job *model.Job) error {
		job.State = model.JobStateFailed
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateAwaitingPayment, got.State)
}

func TestMemoryJobStore_ConcurrentUpdatesSerialize(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &model.Job{ID: "job-1"}))

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "job-1", func(job *model.Job) error {
				if job.ScanSummary == nil {
					job.ScanSummary = &model.ScanSummary{}
				}
				job.ScanSummary.TotalFindings++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got.ScanSummary)
	assert.Equal(t, workers, got.ScanSummary.TotalFindings)
}

func TestReportCacheKey(t *testing.T) {
	key := ReportCacheKey("abc123")
	assert.Contains(t, key, "abc123")
	assert.NotEqual(t, "abc123", key)
}
