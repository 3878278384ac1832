package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/italolelis/ytgrab/internal/catalog"
	"github.com/italolelis/ytgrab/internal/job"
	"github.com/italolelis/ytgrab/internal/locator"
	"github.com/italolelis/ytgrab/internal/logctx"
	"github.com/italolelis/ytgrab/internal/telemetry"
	"github.com/italolelis/ytgrab/internal/yturl"
)

// InfoService builds the format catalog for a video URL.
type InfoService interface {
	Build(ctx context.Context, url string) (*catalog.VideoInfo, error)
}

// JobService is the slice of the job store the handler needs.
type JobService interface {
	Create(ctx context.Context, url, formatID string) (string, error)
	Get(id string) (job.Snapshot, bool)
	Cancel(id string) bool
}

// FileLocator resolves the artifact to serve for a finished job.
type FileLocator interface {
	Locate(ctx context.Context, jobID, videoID, formatID string) (locator.Result, error)
	InTempDir(path string) bool
}

type ProgressResponse struct {
	Progress float64 `json:"progress"`
	Status   string  `json:"status"`
	Error    string  `json:"error,omitempty"`
}

type DownloadResponse struct {
	DownloadID string `json:"download_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type VideoHandler struct {
	info      InfoService
	jobs      JobService
	files     FileLocator
	telemetry *telemetry.Telemetry
}

// NewVideoHandler creates a new video download handler.
func NewVideoHandler(info InfoService, jobs JobService, files FileLocator, t *telemetry.Telemetry) *VideoHandler {
	return &VideoHandler{
		info:      info,
		jobs:      jobs,
		files:     files,
		telemetry: t,
	}
}

func (h *VideoHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/get_video_info", h.HandleVideoInfo)
	r.Post("/download", h.HandleDownload)
	r.Post("/download/{download_id}/cancel", h.HandleCancel)
	r.Get("/download_progress/{download_id}", h.HandleProgress)
	r.Get("/get_file/{download_id}", h.HandleGetFile)

	return r
}

// HandleVideoInfo probes a video URL and returns its format catalog.
func (h *VideoHandler) HandleVideoInfo(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	url := r.FormValue("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "no url provided")

		return
	}

	if !yturl.IsVideoURL(url) {
		logger.Warn("rejected non-video url", "url", url)
		writeError(w, http.StatusBadRequest, "invalid youtube url")

		return
	}

	info, err := h.info.Build(r.Context(), url)
	if err != nil {
		logger.Error("failed to build video info", "err", err)
		h.telemetry.RecordSystemError("rest", "info_lookup")
		writeError(w, http.StatusInternalServerError, "failed to fetch video info")

		return
	}

	writeJSON(w, http.StatusOK, info)
}

// HandleDownload registers a download job and returns its id immediately.
func (h *VideoHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	url := r.FormValue("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "no url provided")

		return
	}

	if !yturl.IsVideoURL(url) {
		writeError(w, http.StatusBadRequest, "invalid youtube url")

		return
	}

	formatID := r.FormValue("format_id")
	if formatID == "" {
		writeError(w, http.StatusBadRequest, "no format_id provided")

		return
	}

	id, err := h.jobs.Create(r.Context(), url, formatID)
	if err != nil {
		logger.Error("failed to create download job", "err", err)
		h.telemetry.RecordSystemError("rest", "job_create")
		writeError(w, http.StatusInternalServerError, "failed to start download")

		return
	}

	logger.Info("download registered", "download_id", id, "format_id", formatID)

	writeJSON(w, http.StatusOK, DownloadResponse{DownloadID: id})
}

// HandleProgress reports job progress. Unknown ids read as a pending job so
// that clients polling before registration completes do not error out.
func (h *VideoHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "download_id")

	snap, ok := h.jobs.Get(id)
	if !ok {
		writeJSON(w, http.StatusOK, ProgressResponse{Progress: 0, Status: string(job.StatusPending)})

		return
	}

	writeJSON(w, http.StatusOK, ProgressResponse{
		Progress: snap.Progress,
		Status:   string(snap.Status),
		Error:    snap.Error,
	})
}

// HandleCancel stops an in-flight download.
func (h *VideoHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	id := chi.URLParam(r, "download_id")

	if !h.jobs.Cancel(id) {
		writeError(w, http.StatusNotFound, "download not found or already finished")

		return
	}

	logger.Info("download cancelled", "download_id", id)

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// HandleGetFile streams the artifact for a finished job as an attachment and
// deletes served files from the working directory afterwards.
func (h *VideoHandler) HandleGetFile(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	id := chi.URLParam(r, "download_id")
	videoID, formatID := h.resolveIdentity(r, id)

	res, err := h.files.Locate(r.Context(), id, videoID, formatID)
	if err != nil {
		logger.Error("failed to locate artifact", "download_id", id, "err", err)
		h.telemetry.RecordSystemError("rest", "locate")
		writeError(w, http.StatusInternalServerError, "file not found")

		return
	}

	f, err := os.Open(res.Path)
	if err != nil {
		logger.Error("failed to open artifact", "path", res.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "file not found")

		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.DownloadName+`"`)
	w.Header().Set("Content-Transfer-Encoding", "binary")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	http.ServeContent(w, r, res.DownloadName, modTime(f), f)

	// Served artifacts are one-shot. Sample assets live outside the working
	// directory and are kept for reuse.
	if h.files.InTempDir(res.Path) {
		f.Close()

		if err := os.Remove(res.Path); err != nil {
			logger.Warn("failed to remove served artifact", "path", res.Path, "err", err)
		} else {
			logger.Info("removed served artifact", "path", res.Path, "tier", res.Tier)
		}
	}
}

// resolveIdentity recovers the video and format identity for a file request,
// preferring the job record and falling back to query parameters for clients
// that fetch after the job was evicted.
func (h *VideoHandler) resolveIdentity(r *http.Request, id string) (videoID, formatID string) {
	if snap, ok := h.jobs.Get(id); ok {
		return snap.VideoID, snap.FormatID
	}

	formatID = r.URL.Query().Get("format_id")
	if formatID == "" {
		formatID = "best"
	}

	if url := r.URL.Query().Get("url"); url != "" {
		if v, ok := yturl.ExtractVideoID(url); ok {
			return v, formatID
		}
	}

	return "unknown", formatID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func modTime(f *os.File) time.Time {
	if info, err := f.Stat(); err == nil {
		return info.ModTime()
	}

	return time.Time{}
}
