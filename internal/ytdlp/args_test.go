package ytdlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		formatID string
		contains []string
		excludes []string
	}{
		{
			"audio sentinel",
			"bestaudio",
			[]string{"-x", "--audio-format", "mp3", "--embed-thumbnail"},
			[]string{"--merge-output-format"},
		},
		{
			"audio marker in id",
			"140-Audio",
			[]string{"-x", "--audio-format"},
			nil,
		},
		{
			"combined sentinel",
			"bestvideo+bestaudio",
			[]string{"bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best", "--merge-output-format", "--recode-video"},
			[]string{"-x"},
		},
		{
			"best single file",
			"best",
			[]string{"best[ext=mp4]/best", "--recode-video"},
			[]string{"--merge-output-format"},
		},
		{
			"literal format id",
			"18",
			[]string{"-f", "18"},
			[]string{"-x", "--recode-video"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := BuildArgs(tt.formatID, "out/%(ext)s", "https://youtu.be/dQw4w9WgXcQ")

			for _, want := range tt.contains {
				assert.Contains(t, args, want)
			}

			for _, not := range tt.excludes {
				assert.NotContains(t, args, not)
			}

			// Output template, progress flag and URL always close the command.
			assert.Equal(t, "--newline", args[len(args)-2])
			assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", args[len(args)-1])
			assert.Contains(t, args, "out/%(ext)s")
		})
	}
}

func TestIsAudioFormat(t *testing.T) {
	assert.True(t, IsAudioFormat("bestaudio"))
	assert.True(t, IsAudioFormat("251-audio"))
	assert.True(t, IsAudioFormat("Best Audio Only"))
	assert.False(t, IsAudioFormat("best"))
	assert.False(t, IsAudioFormat("18"))
	// The combined sentinel mentions audio but selects a merged video download.
	assert.False(t, IsAudioFormat(FormatBestCombined))
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		percent float64
		ok      bool
	}{
		{"typical", "[download]  42.7% of 10.00MiB at 1.00MiB/s ETA 00:05", 42.7, true},
		{"hundred", "[download] 100% of 10.00MiB in 00:08", 100, true},
		{"zero", "[download]   0.0% of ~3.50MiB at Unknown speed", 0, true},
		{"no marker", "Deleting original file foo.f137.mp4", 0, false},
		{"destination line", "[download] Destination: video.mp4", 0, false},
		{"garbage percent", "[download] abc% of x", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			percent, ok := ParseProgress(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.percent, percent, 0.001)
		})
	}
}
