// Package catalog turns yt-dlp metadata into a ranked list of selectable
// formats. The contract is "always return something downloadable": any probe
// or parse failure degrades to a fixed fallback catalog instead of an error.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/italolelis/ytgrab/internal/logctx"
	"github.com/italolelis/ytgrab/internal/telemetry"
	"github.com/italolelis/ytgrab/internal/ytdlp"
	"github.com/italolelis/ytgrab/internal/yturl"
	"golang.org/x/sync/singleflight"
)

const (
	KindVideo = "video"
	KindAudio = "audio"
)

// Approximate size hints for synthetic entries, in bytes.
const (
	sizeHintCombined = 100 << 20
	sizeHintSingle   = 50 << 20
	sizeHintAudio    = 10 << 20
	sizeHint720p     = 20 << 20
	sizeHint360p     = 10 << 20
)

// StreamFormat is one selectable rendition presented to the client.
type StreamFormat struct {
	FormatID       string  `json:"format_id"`
	Resolution     string  `json:"resolution"`
	Ext            string  `json:"ext"`
	Filesize       int64   `json:"filesize,omitempty"`
	FilesizeApprox int64   `json:"filesize_approx"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	ABR            float64 `json:"abr,omitempty"`
	Kind           string  `json:"type"`
	IsHighest      bool    `json:"is_highest,omitempty"`
	IsBestAudio    bool    `json:"is_best_audio,omitempty"`
}

// VideoInfo pairs the video identity with its selectable formats.
type VideoInfo struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Author       string         `json:"author"`
	ThumbnailURL string         `json:"thumbnail_url"`
	Streams      []StreamFormat `json:"streams"`
}

// Prober is the slice of the yt-dlp client the builder needs.
type Prober interface {
	Probe(ctx context.Context, url string) ([]byte, error)
}

// probeDoc is the subset of the yt-dlp -J document the builder reads.
type probeDoc struct {
	Title     string        `json:"title"`
	Uploader  string        `json:"uploader"`
	Thumbnail string        `json:"thumbnail"`
	Formats   []probeFormat `json:"formats"`
}

type probeFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	ABR            float64 `json:"abr"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

// Builder builds format catalogs with a bounded probe timeout. Concurrent
// lookups for the same URL are collapsed into a single probe.
type Builder struct {
	prober       Prober
	probeTimeout time.Duration
	telemetry    *telemetry.Telemetry

	group singleflight.Group
}

func NewBuilder(prober Prober, probeTimeout time.Duration, tel *telemetry.Telemetry) *Builder {
	return &Builder{
		prober:       prober,
		probeTimeout: probeTimeout,
		telemetry:    tel,
	}
}

// Build returns the video identity and ranked formats for a URL. It never
// fails on tool errors; those degrade to the fixed fallback catalog.
func (b *Builder) Build(ctx context.Context, url string) (*VideoInfo, error) {
	v, err, _ := b.group.Do(url, func() (any, error) {
		return b.build(ctx, url), nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*VideoInfo), nil
}

func (b *Builder) build(ctx context.Context, url string) *VideoInfo {
	logger := logctx.LoggerFromContext(ctx)

	videoID, ok := yturl.ExtractVideoID(url)
	if !ok {
		videoID = uuid.NewString()[:8]
	}

	probeCtx, cancel := context.WithTimeout(ctx, b.probeTimeout)
	defer cancel()

	raw, err := b.prober.Probe(probeCtx, url)
	if err != nil {
		logger.Error("metadata probe failed, serving fallback catalog", "video_id", videoID, "err", err)
		b.telemetry.RecordInfoLookup("fallback")

		return fallbackInfo(videoID)
	}

	var doc probeDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		logger.Error("failed to decode metadata, serving fallback catalog", "video_id", videoID, "err", err)
		b.telemetry.RecordInfoLookup("fallback")

		return fallbackInfo(videoID)
	}

	b.telemetry.RecordInfoLookup("success")

	info := &VideoInfo{
		ID:           videoID,
		Title:        doc.Title,
		Author:       doc.Uploader,
		ThumbnailURL: doc.Thumbnail,
		Streams:      rankFormats(doc.Formats),
	}

	if info.Title == "" {
		info.Title = fmt.Sprintf("YouTube Video %s", videoID)
	}

	if info.Author == "" {
		info.Author = "Unknown"
	}

	if info.ThumbnailURL == "" {
		info.ThumbnailURL = yturl.ThumbnailURL(videoID)
	}

	return info
}

// rankFormats assembles the catalog from the raw format list:
//
//  1. the two synthetic composite entries lead,
//  2. a synthetic best-audio entry plus the top two concrete audio
//     renditions follow when any audio-only format exists,
//  3. progressive formats deduplicated by height close the list,
//  4. the whole list is ordered by height descending (stable, so entries
//     without a height keep their insertion order at the tail),
//  5. both composite sentinels are guaranteed present exactly once.
func rankFormats(formats []probeFormat) []StreamFormat {
	streams := []StreamFormat{
		syntheticCombined(0, 0),
		syntheticSingle(0, 0),
	}

	var audio []StreamFormat

	for _, f := range formats {
		if f.VCodec == "none" && f.ACodec != "none" && f.ABR > 0 {
			approx := f.FilesizeApprox
			if approx == 0 {
				approx = 5 << 20
			}

			audio = append(audio, StreamFormat{
				FormatID:       f.FormatID,
				Resolution:     fmt.Sprintf("Audio %gkbps", f.ABR),
				Ext:            orDefault(f.Ext, "mp3"),
				Filesize:       f.Filesize,
				FilesizeApprox: approx,
				ABR:            f.ABR,
				Kind:           KindAudio,
			})
		}
	}

	if len(audio) > 0 {
		sort.SliceStable(audio, func(i, j int) bool { return audio[i].ABR > audio[j].ABR })

		streams = append(streams, StreamFormat{
			FormatID:       ytdlp.FormatBestAudio,
			Resolution:     "Best Audio Only",
			Ext:            "mp3",
			FilesizeApprox: sizeHintAudio,
			Kind:           KindAudio,
			IsBestAudio:    true,
		})

		if len(audio) > 2 {
			audio = audio[:2]
		}

		streams = append(streams, audio...)
	}

	seen := make(map[int]bool)

	for _, f := range formats {
		if f.VCodec == "none" || f.ACodec == "none" || f.Height == 0 {
			continue
		}

		if seen[f.Height] {
			continue
		}

		seen[f.Height] = true

		approx := f.FilesizeApprox
		if approx == 0 {
			approx = 10 << 20
		}

		streams = append(streams, StreamFormat{
			FormatID:       f.FormatID,
			Resolution:     fmt.Sprintf("%dp", f.Height),
			Ext:            orDefault(f.Ext, "mp4"),
			Filesize:       f.Filesize,
			FilesizeApprox: approx,
			Width:          f.Width,
			Height:         f.Height,
			Kind:           KindVideo,
		})
	}

	sort.SliceStable(streams, func(i, j int) bool { return streams[i].Height > streams[j].Height })

	return ensureSentinels(streams)
}

// ensureSentinels re-inserts the composite descriptors at positions 0 and 1
// if they went missing, borrowing the first entry's dimensions as size hints.
func ensureSentinels(streams []StreamFormat) []StreamFormat {
	hasCombined := false
	hasSingle := false

	for _, s := range streams {
		switch s.FormatID {
		case ytdlp.FormatBestCombined:
			hasCombined = true
		case ytdlp.FormatBestSingle:
			hasSingle = true
		}
	}

	width, height := 1920, 1080
	if len(streams) > 0 && streams[0].Width > 0 {
		width, height = streams[0].Width, streams[0].Height
	}

	if !hasCombined {
		streams = append([]StreamFormat{syntheticCombined(width, height)}, streams...)
	}

	if !hasSingle {
		rest := append([]StreamFormat{syntheticSingle(width, height)}, streams[1:]...)
		streams = append(streams[:1:1], rest...)
	}

	return streams
}

func syntheticCombined(width, height int) StreamFormat {
	return StreamFormat{
		FormatID:       ytdlp.FormatBestCombined,
		Resolution:     "Highest Quality (Combined Format)",
		Ext:            "mp4",
		FilesizeApprox: sizeHintCombined,
		Width:          width,
		Height:         height,
		Kind:           KindVideo,
		IsHighest:      true,
	}
}

func syntheticSingle(width, height int) StreamFormat {
	return StreamFormat{
		FormatID:       ytdlp.FormatBestSingle,
		Resolution:     "High Quality (Single File)",
		Ext:            "mp4",
		FilesizeApprox: sizeHintSingle,
		Width:          width,
		Height:         height,
		Kind:           KindVideo,
	}
}

// fallbackInfo is the fixed catalog served when the tool fails: both
// composite sentinels plus the well-known 720p and 360p progressive itags.
func fallbackInfo(videoID string) *VideoInfo {
	return &VideoInfo{
		ID:           videoID,
		Title:        fmt.Sprintf("YouTube Video %s", videoID),
		Author:       "Unknown",
		ThumbnailURL: yturl.ThumbnailURL(videoID),
		Streams: []StreamFormat{
			syntheticCombined(1920, 1080),
			syntheticSingle(1920, 1080),
			{
				FormatID:       "22",
				Resolution:     "720p",
				Ext:            "mp4",
				FilesizeApprox: sizeHint720p,
				Width:          1280,
				Height:         720,
				Kind:           KindVideo,
			},
			{
				FormatID:       "18",
				Resolution:     "360p",
				Ext:            "mp4",
				FilesizeApprox: sizeHint360p,
				Width:          640,
				Height:         360,
				Kind:           KindVideo,
			},
		},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}
