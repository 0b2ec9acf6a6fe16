package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"catalog-import-service/internal/models"
)

// JobCacheTTL bounds staleness of the polled job-status endpoint. Short,
// since counters change while a job is running.
const JobCacheTTL = 15 * time.Second

// ImportRepository persists import jobs and their row audit trail, with a
// Redis read-through cache on job status lookups.
type ImportRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewImportRepository(db *gorm.DB, redisClient *redis.Client) *ImportRepository {
	return &ImportRepository{
		db:    db,
		redis: redisClient,
	}
}

func jobCacheKey(tenantID string, jobID uuid.UUID) string {
	return fmt.Sprintf("catalog:imports:job:%s:%s", tenantID, jobID)
}

// CreateJob persists a freshly submitted job.
func (r *ImportRepository) CreateJob(ctx context.Context, job *models.ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	return r.db.WithContext(ctx).Create(job).Error
}

// UpdateJob saves the job and invalidates its cached status.
func (r *ImportRepository) UpdateJob(ctx context.Context, job *models.ImportJob) error {
	job.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(job).Error; err != nil {
		return err
	}
	if r.redis != nil {
		_ = r.redis.Del(ctx, jobCacheKey(job.TenantID, job.ID)).Err()
	}
	return nil
}

// GetJob fetches a tenant's job by id, serving from cache when possible.
func (r *ImportRepository) GetJob(ctx context.Context, tenantID string, jobID uuid.UUID) (*models.ImportJob, error) {
	key := jobCacheKey(tenantID, jobID)

	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, key).Result(); err == nil {
			var job models.ImportJob
			if err := json.Unmarshal([]byte(cached), &job); err == nil {
				return &job, nil
			}
		}
	}

	var job models.ImportJob
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, jobID).
		First(&job).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(&job); err == nil {
			_ = r.redis.Set(ctx, key, data, JobCacheTTL).Err()
		}
	}

	return &job, nil
}

// AppendRowAudit writes one immutable per-row audit record.
func (r *ImportRepository) AppendRowAudit(ctx context.Context, audit *models.ImportRowAudit) error {
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	audit.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(audit).Error
}

// ListRowAudits returns a job's audit trail in row-number order.
func (r *ImportRepository) ListRowAudits(ctx context.Context, tenantID string, jobID uuid.UUID) ([]models.ImportRowAudit, error) {
	var audits []models.ImportRowAudit
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND job_id = ?", tenantID, jobID).
		Order("row_number ASC").
		Find(&audits).Error
	return audits, err
}
