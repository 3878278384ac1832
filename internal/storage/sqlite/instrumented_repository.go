package sqlite

import (
	"context"
	"database/sql"

	"github.com/italolelis/ytgrab/internal/storage"
	"github.com/italolelis/ytgrab/internal/telemetry"
)

// InstrumentedHistoryRepository wraps HistoryRepository with telemetry.
type InstrumentedHistoryRepository struct {
	repo      *HistoryRepository
	telemetry *telemetry.Telemetry
}

func NewInstrumentedHistoryRepository(dbConn *sql.DB, tel *telemetry.Telemetry) *InstrumentedHistoryRepository {
	return &InstrumentedHistoryRepository{
		repo:      NewHistoryRepository(dbConn),
		telemetry: tel,
	}
}

func (r *InstrumentedHistoryRepository) GetDownloads() ([]storage.DownloadRecord, error) {
	var result []storage.DownloadRecord

	err := r.telemetry.InstrumentDBOperation(context.Background(), "get_downloads", func(context.Context) error {
		var err error

		result, err = r.repo.GetDownloads()

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *InstrumentedHistoryRepository) TrackDownload(rec storage.DownloadRecord) error {
	return r.telemetry.InstrumentDBOperation(context.Background(), "track_download", func(context.Context) error {
		return r.repo.TrackDownload(rec)
	})
}

func (r *InstrumentedHistoryRepository) UpdateDownloadStatus(downloadID, status, filePrefix string) error {
	return r.telemetry.InstrumentDBOperation(context.Background(), "update_download_status", func(context.Context) error {
		return r.repo.UpdateDownloadStatus(downloadID, status, filePrefix)
	})
}
