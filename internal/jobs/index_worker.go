package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/logging"
	"github.com/cloo-solutions/docchat/internal/metrics"
	"go.uber.org/zap"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3
)

// IndexJobRepository defines the interface for index job persistence
type IndexJobRepository interface {
	// GetPendingJobs retrieves and claims pending index jobs
	GetPendingJobs(ctx context.Context) ([]*domain.IndexJob, error)

	// UpdateJobStatus updates the status of an index job
	UpdateJobStatus(ctx context.Context, jobID string, status domain.IndexJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// DocumentIndexer chunks, embeds and stores a document
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, documentID, text string) (*domain.Document, error)
}

// IndexWorker processes queued index jobs. Retrying failed jobs happens
// here; the indexer itself never retries.
type IndexWorker struct {
	repo    IndexJobRepository
	indexer DocumentIndexer
	logger  *zap.Logger
}

// NewIndexWorker creates a new IndexWorker instance
func NewIndexWorker(repo IndexJobRepository, indexer DocumentIndexer, logger *zap.Logger) *IndexWorker {
	return &IndexWorker{
		repo:    repo,
		indexer: indexer,
		logger:  logging.OrNop(logger),
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IndexWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	w.logger.Debug("processing pending index jobs", zap.Int("count", len(jobs)))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("error processing job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	return nil
}

func (w *IndexWorker) processJob(ctx context.Context, job *domain.IndexJob) error {
	if job.DocumentID == "" {
		return fmt.Errorf("job %s has no document_id", job.ID)
	}

	w.logger.Info("processing index job", zap.String("job_id", job.ID), zap.String("document_id", job.DocumentID))
	if _, err := w.indexer.IndexDocument(ctx, job.DocumentID, job.Text); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IndexJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	metrics.IndexJobs.WithLabelValues("completed").Inc()
	w.logger.Info("index job completed", zap.String("job_id", job.ID))
	return nil
}

// handleJobFailure handles a failed job with retry logic. Errors a retry
// cannot fix (bad input, no model configured) fail the job immediately.
func (w *IndexWorker) handleJobFailure(ctx context.Context, job *domain.IndexJob, jobErr error) error {
	w.logger.Warn("index job failed", zap.String("job_id", job.ID), zap.Error(jobErr))

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	var errMsg string
	switch {
	case !retryable(jobErr):
		errMsg = jobErr.Error()
	case job.Retries+1 >= MaxRetries:
		errMsg = fmt.Sprintf("max retries exceeded: %v", jobErr)
	}
	if errMsg != "" {
		w.logger.Warn("marking index job as failed", zap.String("job_id", job.ID), zap.Int("max_retries", MaxRetries))
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IndexJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		metrics.IndexJobs.WithLabelValues("failed").Inc()
		return nil
	}

	w.logger.Info("index job will be retried",
		zap.String("job_id", job.ID),
		zap.Int32("attempt", job.Retries+1),
		zap.Int("max_retries", MaxRetries),
	)
	errMsg = fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IndexJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}
	metrics.IndexJobs.WithLabelValues("retried").Inc()

	return nil
}

func retryable(err error) bool {
	return !errors.Is(err, domain.ErrServiceUnavailable) && !errors.Is(err, domain.ErrInvalidDocument)
}
