package hikvisionconv

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bkbilly/libHikvision/hikvision"
	"github.com/spf13/afero"
)

// Exporter writes MP4 files and thumbnails of segments into a cache directory.
//
// Exports that already exist in the cache are not redone.
type Exporter struct {
	Session  *hikvision.Session
	FFmpeg   *FFmpeg
	CacheDir string

	// Resolution re-encodes MP4 exports at this size; empty copies the stream.
	Resolution string
	// ThumbnailResolution defaults to DefaultThumbnailResolution.
	ThumbnailResolution string

	// Fs holds the cache; nil means the OS file system, which is what the transcoder sees.
	Fs afero.Fs
}

func (e *Exporter) fs() afero.Fs {
	if e.Fs == nil {
		return afero.NewOsFs()
	}
	return e.Fs
}

// Name returns the cache file name of a segment for the extension.
func (e *Exporter) Name(segment *hikvision.Segment, extension string) string {
	name := fmt.Sprintf("hik_datadir%d_hiv%05d_%d_%d.%s", segment.Directory, segment.FileIndex, segment.StartOffset, segment.EndOffset, extension)
	return filepath.Join(e.CacheDir, name)
}

// ExportMP4 returns the MP4 export of the segment, creating it first if needed.
func (e *Exporter) ExportMP4(ctx context.Context, segment *hikvision.Segment) (string, error) {
	return e.export(ctx, segment, "mp4", func(input string, output string) error {
		return e.FFmpeg.ConvertMP4(ctx, input, output, e.Resolution)
	})
}

// ExportJPG returns a thumbnail of the segment, creating it first if needed.
func (e *Exporter) ExportJPG(ctx context.Context, segment *hikvision.Segment) (string, error) {
	return e.export(ctx, segment, "jpg", func(input string, output string) error {
		return e.FFmpeg.Thumbnail(ctx, input, output, ThumbnailPosition(segment.Duration), e.ThumbnailResolution)
	})
}

func (e *Exporter) export(ctx context.Context, segment *hikvision.Segment, extension string, convert func(input string, output string) error) (string, error) {
	fs := e.fs()
	output := e.Name(segment, extension)

	exists, err := afero.Exists(fs, output)
	if err != nil {
		return "", fmt.Errorf("Could not check '%s': %w", output, err)
	}
	if exists {
		logger.Debugf("Already exported: %s", output)
		return output, nil
	}

	if err := fs.MkdirAll(e.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("Could not create cache directory '%s': %w", e.CacheDir, err)
	}

	input := e.Name(segment, "h264")
	handle, err := fs.Create(input)
	if err != nil {
		return "", fmt.Errorf("Could not create '%s': %w", input, err)
	}
	defer func() {
		if err := fs.Remove(input); err != nil {
			logger.Warnf("Could not remove '%s': %v", input, err)
		}
	}()

	written, err := e.Session.ExtractSegment(segment, handle)
	closeErr := handle.Close()
	if err != nil {
		return "", err
	}
	if closeErr != nil {
		return "", fmt.Errorf("Could not close '%s': %w", input, closeErr)
	}
	logger.Debugf("Wrote %d bytes to %s", written, input)

	if err := convert(input, output); err != nil {
		return "", err
	}
	logger.Infof("Exported %s", output)
	return output, nil
}
