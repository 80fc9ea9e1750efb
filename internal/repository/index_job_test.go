package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexJobRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewIndexJobRepository()
	job := domain.NewIndexJob("job-1", "doc-1", "text", time.Now().UTC())

	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, domain.IndexJobStatusPending, got.Status)
}

func TestIndexJobRepository_CreateRejectsInvalid(t *testing.T) {
	repo := NewIndexJobRepository()

	err := repo.Create(context.Background(), &domain.IndexJob{ID: "job-1"})

	assert.Error(t, err)
}

func TestIndexJobRepository_GetByIDNotFound(t *testing.T) {
	_, err := NewIndexJobRepository().GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestIndexJobRepository_ClaimPendingOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewIndexJobRepository()
	base := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, domain.NewIndexJob("late", "d", "t", base.Add(time.Second))))
	require.NoError(t, repo.Create(ctx, domain.NewIndexJob("early", "d", "t", base)))
	require.NoError(t, repo.Create(ctx, domain.NewIndexJob("third", "d", "t", base.Add(2*time.Second))))

	claimed, err := repo.ClaimPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, "early", claimed[0].ID)
	assert.Equal(t, "late", claimed[1].ID)
	assert.Equal(t, domain.IndexJobStatusProcessing, claimed[0].Status)

	again, err := repo.GetPendingJobs(ctx)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "third", again[0].ID)

	none, err := repo.GetPendingJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIndexJobRepository_UpdateStatusTerminal(t *testing.T) {
	ctx := context.Background()
	repo := NewIndexJobRepository()
	require.NoError(t, repo.Create(ctx, domain.NewIndexJob("job-1", "doc-1", "body", time.Now().UTC())))

	require.NoError(t, repo.UpdateJobStatus(ctx, "job-1", domain.IndexJobStatusCompleted, ""))

	got, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IndexJobStatusCompleted, got.Status)
	assert.NotNil(t, got.ProcessedAt)
	assert.Empty(t, got.Text)
}

func TestIndexJobRepository_RetryKeepsText(t *testing.T) {
	ctx := context.Background()
	repo := NewIndexJobRepository()
	require.NoError(t, repo.Create(ctx, domain.NewIndexJob("job-1", "doc-1", "body", time.Now().UTC())))

	require.NoError(t, repo.IncrementRetries(ctx, "job-1"))
	require.NoError(t, repo.UpdateJobStatus(ctx, "job-1", domain.IndexJobStatusPending, "retry 1: boom"))

	got, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.Retries)
	assert.Equal(t, "body", got.Text)
	assert.Nil(t, got.ProcessedAt)
	assert.Equal(t, "retry 1: boom", got.Error)
}

func TestIndexJobRepository_UnknownJob(t *testing.T) {
	ctx := context.Background()
	repo := NewIndexJobRepository()

	assert.ErrorIs(t, repo.IncrementRetries(ctx, "x"), domain.ErrJobNotFound)
	assert.ErrorIs(t, repo.UpdateJobStatus(ctx, "x", domain.IndexJobStatusFailed, ""), domain.ErrJobNotFound)
}
