package ytdlp

import (
	"strconv"
	"strings"
)

// Sentinel format selectors for the composite strategies the tool supports
// but never enumerates as literal formats.
const (
	FormatBestCombined = "bestvideo+bestaudio"
	FormatBestSingle   = "best"
	FormatBestAudio    = "bestaudio"
)

// IsAudioFormat reports whether a format selector asks for an audio-only
// download. The check is lenient on purpose: catalog entries label audio
// renditions with an "Audio" marker in the ID the client echoes back. The
// combined sentinel mentions audio but selects a merged video download.
func IsAudioFormat(formatID string) bool {
	if formatID == FormatBestCombined {
		return false
	}

	return formatID == FormatBestAudio || strings.Contains(strings.ToLower(formatID), "audio")
}

// BuildArgs selects the yt-dlp argument set for a format ID.
//
// Audio selectors get extract-audio mode with an mp3 transcode and embedded
// metadata. The combined sentinel merges best video and audio into mp4. Any
// selector containing "best" asks for the best pre-merged single file.
// Everything else passes through unmodified.
func BuildArgs(formatID, outputTemplate, url string) []string {
	args := []string{"--no-warnings"}

	switch {
	case IsAudioFormat(formatID):
		args = append(args,
			"-f", FormatBestAudio,
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "0",
			"--embed-thumbnail",
			"--add-metadata",
			"--postprocessor-args", "-id3v2_version 3",
		)
	case formatID == FormatBestCombined:
		args = append(args,
			"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
			"--merge-output-format", "mp4",
			"--recode-video", "mp4",
		)
	case formatID == FormatBestSingle || strings.Contains(strings.ToLower(formatID), "best"):
		args = append(args,
			"-f", "best[ext=mp4]/best",
			"--recode-video", "mp4",
		)
	default:
		args = append(args, "-f", formatID)
	}

	return append(args, "-o", outputTemplate, "--newline", url)
}

// ParseProgress extracts the percentage from a yt-dlp progress line, e.g.
//
//	[download]  42.7% of 10.00MiB at 1.00MiB/s ETA 00:05
//
// Returns false for lines that carry no recognizable progress marker.
func ParseProgress(line string) (float64, bool) {
	if !strings.Contains(line, "[download]") || !strings.Contains(line, "%") {
		return 0, false
	}

	before, _, _ := strings.Cut(line, "%")

	fields := strings.Fields(before)
	if len(fields) == 0 {
		return 0, false
	}

	percent, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil {
		return 0, false
	}

	return percent, true
}
