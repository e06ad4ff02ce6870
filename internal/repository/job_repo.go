package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/LariSevilha/comment-analysis/internal/domain"
)

// JobRepository handles analysis job records.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.AnalysisJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job by its ID.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	var job domain.AnalysisJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// Update saves changes to a job record.
func (r *JobRepository) Update(ctx context.Context, job *domain.AnalysisJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// UpdateProgress loads the job, applies the progress update, and saves
// it. errMsg marks the job failed; jobs are never deleted during a run.
func (r *JobRepository) UpdateProgress(ctx context.Context, id string, current int, errMsg string) (*domain.AnalysisJob, error) {
	job, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	job.ApplyProgress(current, errMsg)
	if err := r.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// IncrementProgress advances progress by delta, capping at total and
// rederiving the status in the same UPDATE so parallel comment tasks
// never erase each other's increments. Failed jobs are left untouched.
func (r *JobRepository) IncrementProgress(ctx context.Context, id string, delta int) (*domain.AnalysisJob, error) {
	err := r.db.WithContext(ctx).
		Model(&domain.AnalysisJob{}).
		Where("id = ? AND status <> ?", id, domain.JobStatusFailed).
		Updates(map[string]interface{}{
			"progress": gorm.Expr("CASE WHEN progress + ? >= total THEN total ELSE progress + ? END", delta, delta),
			"status":   gorm.Expr("CASE WHEN progress + ? >= total THEN ? ELSE ? END", delta, domain.JobStatusCompleted, domain.JobStatusProcessing),
		}).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}
