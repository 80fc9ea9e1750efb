package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/docchat/internal/domain"
)

// DefaultClaimLimit bounds how many jobs one poll claims.
const DefaultClaimLimit = 100

// IndexJobRepository is an in-memory queue of background index jobs.
type IndexJobRepository struct {
	mu   sync.Mutex
	jobs map[string]*domain.IndexJob
	now  func() time.Time
}

func NewIndexJobRepository() *IndexJobRepository {
	return &IndexJobRepository{
		jobs: make(map[string]*domain.IndexJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *IndexJobRepository) Create(ctx context.Context, job *domain.IndexJob) error {
	if err := domain.ValidateIndexJob(job); err != nil {
		return err
	}

	stored := *job
	r.mu.Lock()
	r.jobs[job.ID] = &stored
	r.mu.Unlock()
	return nil
}

// GetByID returns a copy of the job, or domain.ErrJobNotFound.
func (r *IndexJobRepository) GetByID(ctx context.Context, id string) (*domain.IndexJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	out := *job
	return &out, nil
}

// ClaimPending marks up to limit pending jobs as processing, oldest first,
// and returns copies of them.
func (r *IndexJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.IndexJob, error) {
	if limit <= 0 {
		limit = DefaultClaimLimit
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]*domain.IndexJob, 0)
	for _, job := range r.jobs {
		if job.Status == domain.IndexJobStatusPending {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	claimed := make([]*domain.IndexJob, 0, len(pending))
	for _, job := range pending {
		job.Status = domain.IndexJobStatusProcessing
		job.Error = ""
		job.ProcessedAt = nil
		out := *job
		claimed = append(claimed, &out)
	}
	return claimed, nil
}

func (r *IndexJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.IndexJob, error) {
	return r.ClaimPending(ctx, DefaultClaimLimit)
}

// UpdateJobStatus sets the status and error message. Terminal states stamp
// ProcessedAt and release the job's text.
func (r *IndexJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.IndexJobStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Status = status
	job.Error = errMsg
	if status == domain.IndexJobStatusCompleted || status == domain.IndexJobStatusFailed {
		now := r.now()
		job.ProcessedAt = &now
		job.Text = ""
	}
	return nil
}

func (r *IndexJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Retries++
	return nil
}
