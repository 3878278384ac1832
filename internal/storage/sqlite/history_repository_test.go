package sqlite_test

import (
	"testing"
	"time"

	"github.com/italolelis/ytgrab/internal/storage"
	"github.com/italolelis/ytgrab/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *sqlite.HistoryRepository {
	t.Helper()

	db, err := sqlite.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlite.NewHistoryRepository(db)
}

func TestTrackAndGetDownloads(t *testing.T) {
	repo := newRepo(t)

	rec := storage.DownloadRecord{
		DownloadID: "job-1",
		VideoID:    "dQw4w9WgXcQ",
		FormatID:   "18",
		FilePrefix: "dQw4w9WgXcQ_18_1700000000",
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Status:     "pending",
	}

	require.NoError(t, repo.TrackDownload(rec))

	got, err := repo.GetDownloads()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
}

func TestTrackDownloadUpsertsOnConflict(t *testing.T) {
	repo := newRepo(t)

	rec := storage.DownloadRecord{DownloadID: "job-1", Status: "pending", CreatedAt: time.Now().UTC().Format(time.RFC3339)}
	require.NoError(t, repo.TrackDownload(rec))

	rec.Status = "downloading"
	require.NoError(t, repo.TrackDownload(rec))

	got, err := repo.GetDownloads()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "downloading", got[0].Status)
}

func TestUpdateDownloadStatus(t *testing.T) {
	repo := newRepo(t)

	require.NoError(t, repo.TrackDownload(storage.DownloadRecord{
		DownloadID: "job-1",
		FilePrefix: "vid_18_123",
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Status:     "downloading",
	}))

	require.NoError(t, repo.UpdateDownloadStatus("job-1", "completed_fallback", "vid_fallback"))

	got, err := repo.GetDownloads()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "completed_fallback", got[0].Status)
	assert.Equal(t, "vid_fallback", got[0].FilePrefix)

	// Empty prefix keeps the stored one.
	require.NoError(t, repo.UpdateDownloadStatus("job-1", "completed", ""))

	got, err = repo.GetDownloads()
	require.NoError(t, err)
	assert.Equal(t, "vid_fallback", got[0].FilePrefix)
	assert.Equal(t, "completed", got[0].Status)
}
