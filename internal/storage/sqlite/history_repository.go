package sqlite

import (
	"database/sql"

	"github.com/italolelis/ytgrab/internal/storage"
)

// HistoryRepository stores download history in SQLite.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(dbConn *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: dbConn}
}

func (r *HistoryRepository) GetDownloads() ([]storage.DownloadRecord, error) {
	rows, err := r.db.Query(`SELECT download_id, video_id, format_id, file_prefix, created_at, status FROM downloads`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []storage.DownloadRecord

	for rows.Next() {
		var record storage.DownloadRecord

		if err := rows.Scan(
			&record.DownloadID,
			&record.VideoID,
			&record.FormatID,
			&record.FilePrefix,
			&record.CreatedAt,
			&record.Status,
		); err != nil {
			return nil, err
		}

		downloads = append(downloads, record)
	}

	return downloads, rows.Err()
}

// TrackDownload inserts a record for a freshly created job.
func (r *HistoryRepository) TrackDownload(rec storage.DownloadRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO downloads (download_id, video_id, format_id, file_prefix, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(download_id) DO UPDATE SET
			status = excluded.status,
			file_prefix = excluded.file_prefix
	`, rec.DownloadID, rec.VideoID, rec.FormatID, rec.FilePrefix, rec.CreatedAt, rec.Status)

	return err
}

// UpdateDownloadStatus records a job's terminal transition. An empty
// filePrefix leaves the stored prefix untouched.
func (r *HistoryRepository) UpdateDownloadStatus(downloadID, status, filePrefix string) error {
	if filePrefix == "" {
		_, err := r.db.Exec(`UPDATE downloads SET status = ? WHERE download_id = ?`, status, downloadID)

		return err
	}

	_, err := r.db.Exec(`UPDATE downloads SET status = ?, file_prefix = ? WHERE download_id = ?`,
		status, filePrefix, downloadID)

	return err
}
