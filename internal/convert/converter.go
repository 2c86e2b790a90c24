// Package convert implements C3: invoking an external codec binary to
// transcode inputs the target CDN rejects into a progressive MP4.
//
// The external-process pattern (stdin suppressed, stderr captured, the
// context driving cancellation of the child) is the same one used for the
// credential helper invocation this package is grounded on.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/snowpity/tg/internal/apperr"
)

// InputFormat is the forced input format tag passed to the codec binary via
// -f; the two entry points differ only by this tag and by whether the audio
// stream is stripped.
type InputFormat string

const (
	FormatGIF  InputFormat = "gif"
	FormatWebM InputFormat = "webm"
)

// Converter invokes the codec binary to produce an MP4 from GIF or WebM
// input. It is safe for concurrent use.
type Converter struct {
	binary  string // defaults to "ffmpeg"
	tempDir string
	scale   string // e.g. "scale=trunc(iw/2)*2:trunc(ih/2)*2", read once at construction
	log     *logrus.Entry
}

// New builds a Converter. binary defaults to "ffmpeg" when empty, tempDir to
// os.TempDir() when empty. scale is the codec tool's -vf filter expression,
// normally sourced from an environment variable (spec.md §6) so operators
// can retune it without a rebuild.
func New(binary, tempDir, scale string, log *logrus.Entry) *Converter {
	if binary == "" {
		binary = "ffmpeg"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Converter{binary: binary, tempDir: tempDir, scale: scale, log: log.WithField("component", "convert")}
}

// ConvertGIF transcodes a GIF input (no audio stream) into a progressive
// MP4 and returns the output file's path.
func (c *Converter) ConvertGIF(ctx context.Context, input string) (string, error) {
	return c.convert(ctx, FormatGIF, input, true)
}

// ConvertWebM transcodes a WebM input into a progressive MP4 and returns the
// output file's path.
func (c *Converter) ConvertWebM(ctx context.Context, input string) (string, error) {
	return c.convert(ctx, FormatWebM, input, false)
}

// Cleanup removes a file previously returned by ConvertGIF/ConvertWebM.
// Output paths are unique per invocation (uuid-named), so this never
// collides with a concurrent conversion.
func (c *Converter) Cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.log.WithField("path", path).WithError(err).Warn("convert: failed to remove temp output")
	}
}

func (c *Converter) convert(ctx context.Context, format InputFormat, input string, stripAudio bool) (string, error) {
	output := filepath.Join(c.tempDir, uuid.NewString()+".mp4")
	args := c.buildArgs(format, input, stripAudio, output)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Stdin = nil
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	commandLine := strings.Join(append([]string{c.binary}, args...), " ")
	c.log.WithField("command", commandLine).Debug("convert: invoking codec")

	if err := cmd.Run(); err != nil {
		return "", &apperr.ConversionError{CommandLine: commandLine, Stderr: stderr.String(), Err: err}
	}
	if _, err := os.Stat(output); err != nil {
		return "", &apperr.ConversionError{CommandLine: commandLine, Stderr: stderr.String(), Err: fmt.Errorf("output file missing: %w", err)}
	}
	return output, nil
}

// buildArgs constructs the codec binary's argument list. The common
// arguments are inherited from a reference image-board processor's own
// ffmpeg invocation: overwrite without prompting, passthrough FPS, an even-
// dimensions filter (H.264 requires even width/height), libx264 at preset
// "faster", yuv420p pixel format, CRF 23, and +faststart for progressive
// playback. The two formats differ only by the forced -f tag and by whether
// -an strips the (always absent, for GIF) audio stream.
func (c *Converter) buildArgs(format InputFormat, input string, stripAudio bool, output string) []string {
	args := []string{"-y", "-f", string(format), "-i", input}
	if stripAudio {
		args = append(args, "-an")
	}
	return append(args,
		"-fps_mode", "passthrough",
		"-vf", c.scale,
		"-c:v", "libx264",
		"-preset", "faster",
		"-pix_fmt", "yuv420p",
		"-crf", "23",
		"-movflags", "+faststart",
		output,
	)
}
