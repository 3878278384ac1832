package samples_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/italolelis/ytgrab/internal/samples"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureFetchesAssets(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("media-bytes-" + r.URL.Path))
	}))
	defer ts.Close()

	dir := t.TempDir()
	p := samples.NewProvisioner(dir, ts.URL+"/video", ts.URL+"/audio", ts.Client())

	require.NoError(t, p.Ensure(context.Background()))

	video, err := os.ReadFile(filepath.Join(dir, samples.VideoName))
	require.NoError(t, err)
	assert.Equal(t, "media-bytes-/video", string(video))

	audio, err := os.ReadFile(filepath.Join(dir, samples.AudioName))
	require.NoError(t, err)
	assert.Equal(t, "media-bytes-/audio", string(audio))
}

func TestEnsureSynthesizesOnFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	dir := t.TempDir()
	p := samples.NewProvisioner(dir, ts.URL, ts.URL, ts.Client())

	require.NoError(t, p.Ensure(context.Background()))

	video, err := os.ReadFile(filepath.Join(dir, samples.VideoName))
	require.NoError(t, err)
	assert.True(t, bytes.Contains(video[:12], []byte("ftyp")), "video placeholder must carry an ftyp marker")
	assert.Greater(t, len(video), 10*1024)

	audio, err := os.ReadFile(filepath.Join(dir, samples.AudioName))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(audio, []byte("ID3")))
}

func TestEnsureIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, samples.VideoName)
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0644))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("replacement"))
	}))
	defer ts.Close()

	p := samples.NewProvisioner(dir, ts.URL, ts.URL, ts.Client())
	require.NoError(t, p.Ensure(context.Background()))

	kept, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(kept))
}

func TestWriteMinimalAssets(t *testing.T) {
	dir := t.TempDir()

	mp4 := filepath.Join(dir, "placeholder.mp4")
	require.NoError(t, samples.WriteMinimalMP4(mp4))

	data, err := os.ReadFile(mp4)
	require.NoError(t, err)
	assert.Contains(t, string(data[:12]), "ftyp")
	assert.GreaterOrEqual(t, len(data), 1<<20)

	mp3 := filepath.Join(dir, "placeholder.mp3")
	require.NoError(t, samples.WriteMinimalMP3(mp3))

	data, err = os.ReadFile(mp3)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("ID3")))
}
