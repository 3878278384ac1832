package job

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/italolelis/ytgrab/internal/logctx"
	"github.com/italolelis/ytgrab/internal/samples"
	"github.com/italolelis/ytgrab/internal/storage"
	"github.com/italolelis/ytgrab/internal/telemetry"
	"github.com/italolelis/ytgrab/internal/ytdlp"
	"github.com/italolelis/ytgrab/internal/yturl"
)

const eventBuffer = 16

// Downloader is the slice of the yt-dlp client the store needs.
type Downloader interface {
	Download(ctx context.Context, req ytdlp.DownloadRequest, onProgress func(float64)) error
}

type entry struct {
	id        string
	url       string
	videoID   string
	formatID  string
	prefix    string
	progress  float64
	status    Status
	err       string
	createdAt time.Time
	doneAt    time.Time
	cancel    context.CancelFunc
}

// Store is the process-wide job registry. It is injected into handlers,
// guarded by a single mutex, and owns the background task of every job it
// creates.
type Store struct {
	dl              Downloader
	tempDir         string
	samplesDir      string
	substitute      bool
	downloadTimeout time.Duration
	history         storage.HistoryWriteRepository
	telemetry       *telemetry.Telemetry

	mu   sync.Mutex
	jobs map[string]*entry

	// OnJobFinished and OnJobFailed receive terminal events. Sends never
	// block: with no listener the event is dropped.
	OnJobFinished chan Event
	OnJobFailed   chan Event
}

// NewStore creates a job store. history may be nil; downloadTimeout of zero
// means downloads run unbounded. substitute controls whether failed
// downloads are masked with a sample asset.
func NewStore(
	dl Downloader,
	tempDir string,
	samplesDir string,
	substitute bool,
	downloadTimeout time.Duration,
	history storage.HistoryWriteRepository,
	tel *telemetry.Telemetry,
) *Store {
	return &Store{
		dl:              dl,
		tempDir:         tempDir,
		samplesDir:      samplesDir,
		substitute:      substitute,
		downloadTimeout: downloadTimeout,
		history:         history,
		telemetry:       tel,
		jobs:            make(map[string]*entry),
		OnJobFinished:   make(chan Event, eventBuffer),
		OnJobFailed:     make(chan Event, eventBuffer),
	}
}

// Create registers a new pending job and launches its supervised background
// download. The returned id is unique for the process lifetime.
func (s *Store) Create(ctx context.Context, url, formatID string) (string, error) {
	id := uuid.NewString()

	videoID, ok := yturl.ExtractVideoID(url)
	if !ok {
		videoID = id[:8]
	}

	// The job must outlive the originating request, but keep its logger.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	jobCtx = logctx.With(jobCtx, "job_id", id, "video_id", videoID, "format_id", formatID)

	e := &entry{
		id:        id,
		url:       url,
		videoID:   videoID,
		formatID:  formatID,
		prefix:    fmt.Sprintf("%s_%s_%d", videoID, formatID, time.Now().Unix()),
		status:    StatusPending,
		createdAt: time.Now(),
		cancel:    cancel,
	}

	s.mu.Lock()
	s.jobs[id] = e
	s.mu.Unlock()

	s.trackHistory(jobCtx, e)

	go s.run(jobCtx, e)

	return id, nil
}

// Get returns a consistent snapshot of a job's progress and status.
func (s *Store) Get(id string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return Snapshot{}, false
	}

	return snapshotOf(e), true
}

// Cancel aborts a running job. It reports whether a cancellation was
// actually delivered; terminal and unknown jobs are left alone.
func (s *Store) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok || e.status.Terminal() {
		return false
	}

	e.cancel()

	return true
}

// EvictExpired drops terminal jobs whose completion is older than ttl and
// returns how many were removed. Running jobs are never evicted.
func (s *Store) EvictExpired(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	evicted := 0

	for id, e := range s.jobs {
		if e.status.Terminal() && e.doneAt.Before(cutoff) {
			delete(s.jobs, id)

			evicted++
		}
	}

	return evicted
}

// Len reports the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.jobs)
}

func (s *Store) run(ctx context.Context, e *entry) {
	logger := logctx.LoggerFromContext(ctx)
	start := time.Now()

	s.transition(e, StatusDownloading, "")
	s.telemetry.IncrementActiveDownloads()

	defer s.telemetry.DecrementActiveDownloads()

	if s.downloadTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.downloadTimeout)
		defer cancel()
	}

	req := ytdlp.DownloadRequest{
		URL:            e.url,
		FormatID:       e.formatID,
		OutputTemplate: filepath.Join(s.tempDir, e.prefix+".%(ext)s"),
	}

	err := s.dl.Download(ctx, req, func(percent float64) {
		s.advance(e, percent)
	})
	if err == nil {
		logger.Info("download completed", "duration", time.Since(start).String())
		s.finish(ctx, e, StatusCompleted, "", "")

		return
	}

	logger.Error("download failed", "err", err)
	s.telemetry.RecordSystemError("downloader", "tool_failure")

	if ctx.Err() == context.Canceled {
		// An aborted job should not fabricate an artifact.
		s.finish(ctx, e, StatusError, "canceled", "")

		return
	}

	if !s.substitute {
		s.finish(ctx, e, StatusError, err.Error(), "")

		return
	}

	fallbackName, copyErr := s.substituteSample(ctx, e)
	if copyErr != nil {
		logger.Error("fallback substitution failed", "err", copyErr)
		s.finish(ctx, e, StatusError, err.Error(), "")

		return
	}

	// The client polling status sees a successful terminal state even
	// though the real download failed; the marker status records the truth.
	s.finish(ctx, e, StatusFallback, err.Error(), fallbackName)
}

// advance moves a job's progress forward; it never regresses and only
// applies while the job is downloading.
func (s *Store) advance(e *entry, percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.status != StatusDownloading {
		return
	}

	if percent > e.progress {
		e.progress = min(percent, 100)
	}
}

func (s *Store) transition(e *entry, status Status, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.status.Terminal() {
		return
	}

	e.status = status
	e.err = errMsg

	if status.Terminal() {
		e.doneAt = time.Now()

		if status != StatusError {
			e.progress = 100
		}
	}
}

func (s *Store) finish(ctx context.Context, e *entry, status Status, errMsg, fallbackName string) {
	s.transition(e, status, errMsg)
	s.telemetry.RecordDownload(string(status), time.Since(e.createdAt))

	if s.history != nil {
		if err := s.history.UpdateDownloadStatus(e.id, string(status), fallbackName); err != nil {
			logctx.LoggerFromContext(ctx).Error("failed to update download history", "err", err)
		}
	}

	event := Event{
		JobID:      e.id,
		VideoID:    e.videoID,
		FormatID:   e.formatID,
		Status:     status,
		Error:      errMsg,
		FinishedAt: time.Now(),
	}

	target := s.OnJobFinished
	if status != StatusCompleted {
		target = s.OnJobFailed
	}

	select {
	case target <- event:
	default:
	}
}

// substituteSample copies the matching sample asset into the temp dir under
// the recognizable fallback name and returns that name.
func (s *Store) substituteSample(ctx context.Context, e *entry) (string, error) {
	logger := logctx.LoggerFromContext(ctx)

	sampleName, ext := samples.VideoName, "mp4"
	if ytdlp.IsAudioFormat(e.formatID) {
		sampleName, ext = samples.AudioName, "mp3"
	}

	src := filepath.Join(s.samplesDir, sampleName)
	dst := filepath.Join(s.tempDir, fmt.Sprintf("%s_fallback.%s", e.videoID, ext))

	written, err := copyFile(src, dst)
	if err != nil {
		return "", fmt.Errorf("failed to copy sample asset: %w", err)
	}

	logger.Info("substituted sample asset", "target", dst, "size", humanize.Bytes(uint64(written)))
	s.telemetry.RecordFallbackSubstitution(ext)

	return filepath.Base(dst), nil
}

func (s *Store) trackHistory(ctx context.Context, e *entry) {
	if s.history == nil {
		return
	}

	rec := storage.DownloadRecord{
		DownloadID: e.id,
		VideoID:    e.videoID,
		FormatID:   e.formatID,
		FilePrefix: e.prefix,
		CreatedAt:  e.createdAt.Format(time.RFC3339),
		Status:     string(StatusPending),
	}

	if err := s.history.TrackDownload(rec); err != nil {
		logctx.LoggerFromContext(ctx).Error("failed to track download history", "err", err)
	}
}

func snapshotOf(e *entry) Snapshot {
	return Snapshot{
		ID:       e.id,
		VideoID:  e.videoID,
		FormatID: e.formatID,
		Progress: e.progress,
		Status:   e.status,
		Error:    e.err,
	}
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	return io.Copy(out, in)
}
