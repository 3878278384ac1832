// Package storage defines the download-history records and repository
// contracts. The history is forensic and feeds artifact cleanup; the live
// job registry stays in memory.
package storage

// DownloadRecord is one tracked download attempt.
type DownloadRecord struct {
	DownloadID string
	VideoID    string
	FormatID   string
	FilePrefix string // output filename prefix inside the temp dir
	CreatedAt  string // RFC 3339
	Status     string
}

// HistoryReadRepository reads tracked downloads.
type HistoryReadRepository interface {
	GetDownloads() ([]DownloadRecord, error)
}

// HistoryWriteRepository tracks downloads and their terminal transitions.
type HistoryWriteRepository interface {
	TrackDownload(rec DownloadRecord) error
	UpdateDownloadStatus(downloadID, status, filePrefix string) error
}

// HistoryRepository combines both sides.
type HistoryRepository interface {
	HistoryReadRepository
	HistoryWriteRepository
}
