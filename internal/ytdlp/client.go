// Package ytdlp shells out to the yt-dlp binary for metadata probes and
// downloads. The tool is treated as an opaque contract: JSON on stdout for
// probes, line-oriented progress text for downloads.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/italolelis/ytgrab/internal/logctx"
)

const stderrTailLimit = 4096

// ToolError is returned when yt-dlp exits non-zero. It carries the exit code
// and the tail of stderr so callers can surface a useful message.
type ToolError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	return fmt.Sprintf("yt-dlp exited with code %d: %s", e.ExitCode, msg)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// DownloadRequest describes one download invocation.
type DownloadRequest struct {
	URL            string
	FormatID       string
	OutputTemplate string // yt-dlp -o template, e.g. dir/<id>_<fmt>_<ts>.%(ext)s
}

// Client invokes the yt-dlp binary.
type Client struct {
	bin string
}

// NewClient creates a client for the given binary path. An empty path
// falls back to "yt-dlp" on PATH.
func NewClient(bin string) *Client {
	if bin == "" {
		bin = "yt-dlp"
	}

	return &Client{bin: bin}
}

// Probe runs a metadata lookup and returns the raw JSON document.
// The caller bounds the call with the context deadline.
func (c *Client) Probe(ctx context.Context, url string) ([]byte, error) {
	logger := logctx.LoggerFromContext(ctx)

	cmd := exec.CommandContext(ctx, c.bin, "--no-warnings", "-J", url)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("probing video metadata", "bin", c.bin, "url", url)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("metadata probe: %w", ctx.Err())
		}

		return nil, &ToolError{
			ExitCode: exitCode(cmd),
			Stderr:   tail(stderr.String()),
			Err:      err,
		}
	}

	return stdout.Bytes(), nil
}

// Download runs a download with format-specific argument selection and
// streams progress percentages to onProgress as they appear in the tool's
// output. Individual unparseable lines are skipped, not fatal.
func (c *Client) Download(ctx context.Context, req DownloadRequest, onProgress func(float64)) error {
	logger := logctx.LoggerFromContext(ctx)

	args := BuildArgs(req.FormatID, req.OutputTemplate, req.URL)
	cmd := exec.CommandContext(ctx, c.bin, args...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	logger.Info("starting download", "bin", c.bin, "format_id", req.FormatID, "url", req.URL)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()

		percent, ok := ParseProgress(line)
		if !ok {
			continue
		}

		if onProgress != nil {
			onProgress(percent)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Warn("error reading yt-dlp output", "err", err)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("download: %w", ctx.Err())
		}

		return &ToolError{
			ExitCode: exitCode(cmd),
			Stderr:   tail(stderr.String()),
			Err:      err,
		}
	}

	return nil
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}

	return cmd.ProcessState.ExitCode()
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}

	return s
}
