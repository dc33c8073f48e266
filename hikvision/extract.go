package hikvision

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// Extract copies a segment's bytes out of its recording file.
//
// The segment's Path is opened on fs as is; see Session.ExtractSegment for
// the root-relative form.
//
// The copy runs in whole blocks from StartOffset until the position reaches
// EndOffset, so the output is rounded up to the block size. It stops early at
// the end of the file.
func Extract(fs afero.Fs, segment *Segment, w io.Writer, format *Format) (int64, error) {
	filename := segment.Path
	handle, err := fs.Open(filename)
	if errors.Is(err, os.ErrNotExist) {
		return 0, &RecordingFileMissingError{Path: filename}
	}
	if err != nil {
		return 0, fmt.Errorf("Could not open recording '%s': %w", filename, err)
	}
	defer handle.Close()

	stat, err := handle.Stat()
	if err != nil {
		return 0, fmt.Errorf("Could not stat recording '%s': %w", filename, err)
	}
	if segment.EndOffset <= segment.StartOffset || segment.StartOffset > uint64(stat.Size()) {
		return 0, &SegmentOutOfRangeError{
			Path:        filename,
			StartOffset: segment.StartOffset,
			EndOffset:   segment.EndOffset,
			FileSize:    stat.Size(),
		}
	}

	if _, err := handle.Seek(int64(segment.StartOffset), io.SeekStart); err != nil {
		return 0, fmt.Errorf("Could not seek to %d in '%s': %w", segment.StartOffset, filename, err)
	}

	buffer := make([]byte, format.BlockSize)
	position := segment.StartOffset
	var written int64
	for position < segment.EndOffset {
		n, err := io.ReadFull(handle, buffer)
		if n > 0 {
			if _, writeErr := w.Write(buffer[:n]); writeErr != nil {
				return written, fmt.Errorf("Could not write segment data: %w", writeErr)
			}
			position += uint64(n)
			written += int64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			logger.Debugf("Reached the end of '%s' at %d before %d", filename, position, segment.EndOffset)
			break
		}
		if err != nil {
			return written, fmt.Errorf("Could not read '%s' at %d: %w", filename, position, err)
		}
	}

	logger.Debugf("Extracted %d bytes from %s", written, filename)
	return written, nil
}
