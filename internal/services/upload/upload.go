package upload

import (
	"context"
	"fmt"
	"os"

	"github.com/killallgit/stream-recorder/internal/storage"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/killallgit/stream-recorder/pkg/retry"
	"github.com/sirupsen/logrus"
)

// Uploader publishes a local file to the object store, retrying failures
type Uploader struct {
	store    storage.ObjectStore
	executor *retry.Executor
	logger   logrus.FieldLogger
}

// NewUploader creates an uploader bound to an authorized store handle
func NewUploader(store storage.ObjectStore, executor *retry.Executor, logger logrus.FieldLogger) *Uploader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Uploader{
		store:    store,
		executor: executor,
		logger:   logger,
	}
}

// Upload writes the file at localPath to container/key, overwriting any
// existing object. The file is reopened on every attempt so a retry always
// sends the whole file.
func (u *Uploader) Upload(ctx context.Context, localPath, container, key string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUpload, "episode file is not readable").
			WithDetail("path", localPath)
	}

	log := u.logger.WithFields(logrus.Fields{
		"container": container,
		"key":       key,
		"bytes":     info.Size(),
	})

	err = u.executor.Do("upload "+key, func() error {
		return u.put(ctx, localPath, container, key)
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUpload, "upload failed").
			WithDetail("container", container).
			WithDetail("key", key)
	}

	log.Info("Uploaded episode")
	return nil
}

func (u *Uploader) put(ctx context.Context, localPath, container, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	return u.store.Put(ctx, container, key, file)
}
