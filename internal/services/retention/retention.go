package retention

import (
	"context"
	"fmt"
	"sort"

	"github.com/killallgit/stream-recorder/internal/storage"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/killallgit/stream-recorder/pkg/retry"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Enforcer trims a container down to its most recently modified objects
type Enforcer struct {
	store    storage.ObjectStore
	executor *retry.Executor
	logger   logrus.FieldLogger
}

// NewEnforcer creates a retention enforcer
func NewEnforcer(store storage.ObjectStore, executor *retry.Executor, logger logrus.FieldLogger) *Enforcer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Enforcer{
		store:    store,
		executor: executor,
		logger:   logger,
	}
}

// Plan returns the objects to delete so that only the keep newest remain.
// Objects with equal timestamps keep their listing order.
func Plan(objects []storage.Object, keep int) []storage.Object {
	if keep < 0 {
		keep = 0
	}
	if len(objects) <= keep {
		return nil
	}

	sorted := make([]storage.Object, len(objects))
	copy(sorted, objects)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastModified.After(sorted[j].LastModified)
	})
	return sorted[keep:]
}

// Enforce deletes everything in container beyond the keep newest objects and
// returns the deleted keys. Listing and deletion are retried together, so an
// attempt after a partial failure works from a fresh listing.
func (e *Enforcer) Enforce(ctx context.Context, container string, keep int) ([]string, error) {
	if keep < 0 {
		return nil, apperrors.ValidationError("keep", fmt.Sprintf("must be >= 0, got %d", keep))
	}

	var deleted []string
	err := e.executor.Do("retention "+container, func() error {
		deleted = nil

		objects, err := e.store.List(ctx, container)
		if err != nil {
			return fmt.Errorf("failed to list container: %w", err)
		}

		for _, obj := range Plan(objects, keep) {
			if err := e.store.Delete(ctx, container, obj.Key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", obj.Key, err)
			}
			deleted = append(deleted, obj.Key)
		}
		return nil
	})
	if err != nil {
		return deleted, apperrors.Wrap(err, apperrors.ErrCodeRetention, "retention failed").
			WithDetail("container", container)
	}

	if len(deleted) > 0 {
		e.logger.WithFields(logrus.Fields{
			"container": container,
			"keep":      keep,
			"deleted":   deleted,
		}).Info("Removed old episodes")
	}
	return lo.Ternary(deleted == nil, []string{}, deleted), nil
}
