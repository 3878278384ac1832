// Package samples provisions the fallback assets served when a real
// download cannot be produced: a short sample video and audio clip fetched
// over HTTP at startup, or synthesized minimal files when that fails too.
package samples

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/ytgrab/internal/logctx"
	"golang.org/x/sync/errgroup"
)

// Well-known asset names inside the samples directory.
const (
	VideoName = "sample.mp4"
	AudioName = "sample.mp3"
)

const (
	filePerm = 0644

	// Synthesized assets carry a valid container header plus this much
	// random filler so downstream players see a plausibly sized file.
	fillerSize = 1 << 20
)

// mp4Header is a minimal ftyp box; id3Header a minimal ID3v2 tag header.
var (
	mp4Header = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42mp41\x00\x00\x00\x00")
	id3Header = []byte("ID3\x03\x00\x00\x00\x00\x00\x00")
)

// Provisioner fetches or synthesizes the sample assets.
type Provisioner struct {
	dir      string
	client   *http.Client
	videoURL string
	audioURL string
}

func NewProvisioner(dir, videoURL, audioURL string, client *http.Client) *Provisioner {
	if client == nil {
		client = http.DefaultClient
	}

	return &Provisioner{
		dir:      dir,
		client:   client,
		videoURL: videoURL,
		audioURL: audioURL,
	}
}

// Ensure makes sure both sample assets exist, fetching them concurrently.
// It is idempotent: assets already on disk are left untouched. A fetch
// failure degrades to a synthesized minimal file rather than an error.
func (p *Provisioner) Ensure(ctx context.Context) error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("failed to create samples dir: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.ensureAsset(ctx, VideoName, p.videoURL, WriteMinimalMP4)
	})
	g.Go(func() error {
		return p.ensureAsset(ctx, AudioName, p.audioURL, WriteMinimalMP3)
	})

	return g.Wait()
}

func (p *Provisioner) ensureAsset(ctx context.Context, name, url string, synthesize func(string) error) error {
	logger := logctx.LoggerFromContext(ctx)
	path := filepath.Join(p.dir, name)

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		logger.Debug("sample asset present", "path", path, "size", humanize.Bytes(uint64(info.Size())))

		return nil
	}

	size, err := p.fetch(ctx, url, path)
	if err != nil {
		logger.Warn("failed to fetch sample asset, synthesizing", "url", url, "err", err)

		if err := synthesize(path); err != nil {
			return fmt.Errorf("failed to synthesize sample asset %s: %w", name, err)
		}

		logger.Info("synthesized sample asset", "path", path)

		return nil
	}

	logger.Info("downloaded sample asset", "path", path, "size", humanize.Bytes(uint64(size)))

	return nil
}

func (p *Provisioner) fetch(ctx context.Context, url, path string) (int64, error) {
	if url == "" {
		return 0, fmt.Errorf("no sample URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		os.Remove(path)

		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return written, nil
}

// WriteMinimalMP4 writes a placeholder video: a valid ftyp box followed by
// random filler bytes.
func WriteMinimalMP4(path string) error {
	return writeSynthetic(path, mp4Header)
}

// WriteMinimalMP3 writes a placeholder audio file: an ID3v2 header followed
// by random filler bytes.
func WriteMinimalMP3(path string) error {
	return writeSynthetic(path, id3Header)
}

func writeSynthetic(path string, header []byte) error {
	filler := make([]byte, fillerSize)
	if _, err := rand.Read(filler); err != nil {
		return fmt.Errorf("failed to generate filler: %w", err)
	}

	return os.WriteFile(path, append(append([]byte{}, header...), filler...), filePerm)
}
