package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/stream-recorder/internal/models"
	"gorm.io/gorm"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("run not found")

// Filter narrows a run listing
type Filter struct {
	SeriesName string
	Status     models.RunStatus
	Limit      int
}

// Repository defines the interface for run persistence
type Repository interface {
	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	ListRuns(ctx context.Context, filter Filter) ([]*models.Run, error)
	UpdateRun(ctx context.Context, runID string, fields map[string]any) error
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new run repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) CreateRun(ctx context.Context, run *models.Run) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repository) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	var run models.Run
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs newest first
func (r *repository) ListRuns(ctx context.Context, filter Filter) ([]*models.Run, error) {
	var runs []*models.Run
	query := r.db.WithContext(ctx).Order("started_at DESC, id DESC")

	if filter.SeriesName != "" {
		query = query.Where("series_name = ?", filter.SeriesName)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (r *repository) UpdateRun(ctx context.Context, runID string, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Run{}).
		Where("run_id = ?", runID).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("updating run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// DeleteFinishedBefore hard-deletes terminal runs that finished before cutoff
func (r *repository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("status IN ?", []models.RunStatus{models.RunStatusCompleted, models.RunStatusFailed}).
		Where("finished_at < ?", cutoff).
		Delete(&models.Run{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting old runs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
