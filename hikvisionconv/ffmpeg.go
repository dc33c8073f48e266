package hikvisionconv

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// DefaultThumbnailResolution is the size of exported thumbnails.
const DefaultThumbnailResolution = "480x270"

// MaxThumbnailPosition is the latest point of a segment a thumbnail is taken from.
const MaxThumbnailPosition = 59 * time.Second

// Runner runs an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

// Run runs the command and waits for it, returning its combined output in the error on failure.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	logger.Debugf("Running: %s %v", name, args)
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("Could not run %s: %w: %s", name, err, output)
	}
	logger.Debugf("Output of %s: %s", name, output)
	return nil
}

// FFmpeg builds and runs the transcoder command lines.
type FFmpeg struct {
	Binary string
	Runner Runner
}

// NewFFmpeg returns an FFmpeg that runs the given binary; an empty name means "ffmpeg".
func NewFFmpeg(binary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		Binary: binary,
		Runner: ExecRunner{},
	}
}

// MP4Args returns the arguments that wrap a raw stream into an MP4 file.
//
// Without a resolution the video is copied as-is; with one it is re-encoded at that size.
func (f *FFmpeg) MP4Args(input string, output string, resolution string) []string {
	args := []string{"-i", input, "-threads", "auto"}
	if resolution == "" {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args, "-s", resolution)
	}
	return append(args, "-an", output, "-hide_banner")
}

// ThumbnailArgs returns the arguments that grab one frame at the given position.
func (f *FFmpeg) ThumbnailArgs(input string, output string, position time.Duration, resolution string) []string {
	if resolution == "" {
		resolution = DefaultThumbnailResolution
	}
	seconds := int(position / time.Second)
	return []string{
		"-ss", fmt.Sprintf("00:00:%02d", seconds),
		"-i", input,
		"-hide_banner",
		"-vframes", "1",
		"-s", resolution,
		output,
	}
}

// ThumbnailPosition returns the middle of a segment, capped at MaxThumbnailPosition.
func ThumbnailPosition(duration time.Duration) time.Duration {
	position := (duration / 2).Truncate(time.Second)
	if position < 0 {
		return 0
	}
	if position > MaxThumbnailPosition {
		return MaxThumbnailPosition
	}
	return position
}

// ConvertMP4 wraps a raw stream into an MP4 file.
func (f *FFmpeg) ConvertMP4(ctx context.Context, input string, output string, resolution string) error {
	return f.Runner.Run(ctx, f.Binary, f.MP4Args(input, output, resolution)...)
}

// Thumbnail writes one frame of a raw stream as an image.
func (f *FFmpeg) Thumbnail(ctx context.Context, input string, output string, position time.Duration, resolution string) error {
	return f.Runner.Run(ctx, f.Binary, f.ThumbnailArgs(input, output, position, resolution)...)
}
