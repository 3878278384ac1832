// Package cleanup removes expired download artifacts from the temporary
// working directory. It is the safety net behind the completion-triggered
// delete in the HTTP layer: artifacts that were never fetched still get
// reclaimed.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/italolelis/ytgrab/internal/logctx"
	"github.com/italolelis/ytgrab/internal/storage"
)

// DeleteExpiredArtifacts removes files belonging to tracked downloads older
// than keepFor. Records whose files are already gone are skipped silently.
func DeleteExpiredArtifacts(ctx context.Context, records []storage.DownloadRecord, dir string, keepFor time.Duration) error {
	logger := logctx.LoggerFromContext(ctx)
	now := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if rec.FilePrefix == "" {
			continue
		}

		createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
		if err != nil {
			logger.Warn("failed to parse download time, skipping record", "download_id", rec.DownloadID, "err", err)

			continue
		}

		if now.Sub(createdAt) <= keepFor {
			continue
		}

		for _, e := range entries {
			if e.IsDir() || !strings.HasPrefix(e.Name(), rec.FilePrefix) {
				continue
			}

			path := filepath.Join(dir, e.Name())

			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.Error("failed to delete expired artifact", "file", path, "err", err)

				return err
			}

			logger.Info("deleted expired artifact", "file", path, "download_id", rec.DownloadID)
		}
	}

	return nil
}
