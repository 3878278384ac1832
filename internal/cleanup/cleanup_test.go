package cleanup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/italolelis/ytgrab/internal/cleanup"
	"github.com/italolelis/ytgrab/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, prefix string, age time.Duration) storage.DownloadRecord {
	return storage.DownloadRecord{
		DownloadID: id,
		FilePrefix: prefix,
		CreatedAt:  time.Now().Add(-age).Format(time.RFC3339),
		Status:     "completed",
	}
}

func TestDeleteExpiredArtifacts(t *testing.T) {
	dir := t.TempDir()

	expired := filepath.Join(dir, "vid1_18_100.mp4")
	fresh := filepath.Join(dir, "vid2_22_200.mp4")
	unrelated := filepath.Join(dir, "other.mp4")

	for _, p := range []string{expired, fresh, unrelated} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}

	records := []storage.DownloadRecord{
		record("job-1", "vid1_18_100", 2*time.Hour),
		record("job-2", "vid2_22_200", time.Minute),
	}

	require.NoError(t, cleanup.DeleteExpiredArtifacts(context.Background(), records, dir, time.Hour))

	assert.NoFileExists(t, expired)
	assert.FileExists(t, fresh)
	assert.FileExists(t, unrelated)
}

func TestDeleteExpiredArtifactsSkipsBadTimestamps(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "vid1_18_100.mp4")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0644))

	records := []storage.DownloadRecord{
		{DownloadID: "job-1", FilePrefix: "vid1_18_100", CreatedAt: "not a timestamp"},
	}

	require.NoError(t, cleanup.DeleteExpiredArtifacts(context.Background(), records, dir, time.Hour))
	assert.FileExists(t, keep)
}

func TestDeleteExpiredArtifactsToleratesMissingFiles(t *testing.T) {
	records := []storage.DownloadRecord{record("job-1", "gone_18_100", 2*time.Hour)}

	require.NoError(t, cleanup.DeleteExpiredArtifacts(context.Background(), records, t.TempDir(), time.Hour))
}
