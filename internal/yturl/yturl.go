// Package yturl validates YouTube URLs and extracts canonical video IDs.
package yturl

import (
	"fmt"
	"regexp"
)

// videoURLRe recognizes the URL shapes the service accepts: watch links,
// short links, embed links and shorts, with or without scheme and www.
var videoURLRe = regexp.MustCompile(`^(?:https?://)?(?:www\.)?(?:youtube|youtu|youtube-nocookie)\.(?:com|be)/(?:watch\?v=|embed/|v/|shorts/|.+\?v=)?[^&=%?]{11}`)

// extractionRes are tried in order. The first submatch of the first
// pattern that matches wins.
var extractionRes = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`),        // standard watch URLs
	regexp.MustCompile(`(?:youtu\.be/)([0-9A-Za-z_-]{11})`),  // short URLs
	regexp.MustCompile(`(?:embed/)([0-9A-Za-z_-]{11})`),      // embed URLs
	regexp.MustCompile(`(?:shorts/)([0-9A-Za-z_-]{11})`),     // shorts
}

// anyIDRe is the last-resort scan for anything that looks like a video ID.
var anyIDRe = regexp.MustCompile(`([0-9A-Za-z_-]{11})`)

// IsVideoURL reports whether url looks like a YouTube video URL.
func IsVideoURL(url string) bool {
	return videoURLRe.MatchString(url)
}

// ExtractVideoID pulls the 11-character video ID out of a URL. It is
// deliberately lenient: the result is used for filenames and cache keys,
// never as a security boundary, so false positives are acceptable.
func ExtractVideoID(url string) (string, bool) {
	if url == "" {
		return "", false
	}

	for _, re := range extractionRes {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}

	// Fallback: any 11-character URL-safe token in the raw string.
	if m := anyIDRe.FindStringSubmatch(url); m != nil {
		return m[1], true
	}

	return "", false
}

// ThumbnailURL returns the predictable thumbnail location for a video ID.
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", videoID)
}
