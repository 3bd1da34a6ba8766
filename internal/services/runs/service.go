package runs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/stream-recorder/internal/models"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
)

// Service records the progress of recording runs
type Service interface {
	// Start creates a running ledger entry with a fresh run id
	Start(ctx context.Context, seriesName, container, fileName string) (*models.Run, error)
	Advance(ctx context.Context, runID string, stage models.Stage) error
	RecordCapture(ctx context.Context, runID string, fragments int, bytes int64, empty bool) error
	Complete(ctx context.Context, runID string, deleted int) error
	Fail(ctx context.Context, runID string, stage models.Stage, cause error) error

	Get(ctx context.Context, runID string) (*models.Run, error)
	List(ctx context.Context, filter Filter) ([]*models.Run, error)

	// Prune removes finished runs older than retention
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a run ledger service
func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Start(ctx context.Context, seriesName, container, fileName string) (*models.Run, error) {
	run := &models.Run{
		RunID:      uuid.NewString(),
		SeriesName: seriesName,
		Container:  container,
		FileName:   fileName,
		Status:     models.RunStatusRunning,
		Stage:      models.StageNotifyStart,
		StartedAt:  s.now(),
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, apperrors.DatabaseError("create run", err)
	}
	return run, nil
}

func (s *service) Advance(ctx context.Context, runID string, stage models.Stage) error {
	return s.update(ctx, runID, map[string]any{"stage": stage})
}

func (s *service) RecordCapture(ctx context.Context, runID string, fragments int, bytes int64, empty bool) error {
	fields := map[string]any{
		"fragments":     fragments,
		"bytes":         bytes,
		"empty_capture": empty,
	}
	if empty {
		fields["error_code"] = string(apperrors.ErrCodeEmptyCapture)
	}
	return s.update(ctx, runID, fields)
}

func (s *service) Complete(ctx context.Context, runID string, deleted int) error {
	return s.update(ctx, runID, map[string]any{
		"status":      models.RunStatusCompleted,
		"stage":       models.StageDone,
		"deleted":     deleted,
		"finished_at": s.now(),
	})
}

func (s *service) Fail(ctx context.Context, runID string, stage models.Stage, cause error) error {
	fields := map[string]any{
		"status":      models.RunStatusFailed,
		"stage":       stage,
		"finished_at": s.now(),
	}
	if cause != nil {
		fields["error_code"] = string(apperrors.GetCode(cause))
		fields["error"] = cause.Error()
	}
	return s.update(ctx, runID, fields)
}

func (s *service) Get(ctx context.Context, runID string) (*models.Run, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			return nil, apperrors.NotFound("run", runID)
		}
		return nil, apperrors.DatabaseError("get run", err)
	}
	return run, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*models.Run, error) {
	runs, err := s.repo.ListRuns(ctx, filter)
	if err != nil {
		return nil, apperrors.DatabaseError("list runs", err)
	}
	return runs, nil
}

func (s *service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, apperrors.ValidationError("retention", "must be positive")
	}
	n, err := s.repo.DeleteFinishedBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, apperrors.DatabaseError("prune runs", err)
	}
	return n, nil
}

func (s *service) update(ctx context.Context, runID string, fields map[string]any) error {
	if err := s.repo.UpdateRun(ctx, runID, fields); err != nil {
		if errors.Is(err, ErrRunNotFound) {
			return apperrors.NotFound("run", runID)
		}
		return apperrors.DatabaseError("update run", err)
	}
	return nil
}
