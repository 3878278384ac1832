package yturl_test

import (
	"testing"

	"github.com/italolelis/ytgrab/internal/yturl"
	"github.com/stretchr/testify/assert"
)

func TestIsVideoURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"standard watch", "https://www.youtube.com/watch?v=l7kQNwJ4H_w", true},
		{"no scheme", "youtube.com/watch?v=l7kQNwJ4H_w", true},
		{"short link", "https://youtu.be/l7kQNwJ4H_w", true},
		{"embed", "https://www.youtube.com/embed/l7kQNwJ4H_w", true},
		{"shorts", "https://www.youtube.com/shorts/l7kQNwJ4H_w", true},
		{"nocookie", "https://www.youtube-nocookie.com/embed/l7kQNwJ4H_w", true},
		{"not a url", "not a url", false},
		{"other host", "https://example.com", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, yturl.IsVideoURL(tt.url))
		})
	}
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		id   string
		ok   bool
	}{
		{"watch", "https://www.youtube.com/watch?v=l7kQNwJ4H_w", "l7kQNwJ4H_w", true},
		{"watch with extras", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", true},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"bare token", "some text dQw4w9WgXcQ more text", "dQw4w9WgXcQ", true},
		{"empty", "", "", false},
		{"nothing matches", "https://a.b/c", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := yturl.ExtractVideoID(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestExtractVideoIDShape(t *testing.T) {
	urls := []string{
		"https://www.youtube.com/watch?v=l7kQNwJ4H_w",
		"https://youtu.be/a-b_c123XYZ",
		"https://www.youtube.com/embed/00000000000?rel=0",
	}

	for _, url := range urls {
		id, ok := yturl.ExtractVideoID(url)
		assert.True(t, ok, url)
		assert.Len(t, id, 11, url)
		assert.Regexp(t, `^[0-9A-Za-z_-]{11}$`, id)
	}
}

func TestThumbnailURL(t *testing.T) {
	assert.Equal(t,
		"https://img.youtube.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
		yturl.ThumbnailURL("dQw4w9WgXcQ"),
	)
}
