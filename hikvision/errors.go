package hikvision

import (
	"fmt"
	"strings"
)

// RecordLocation identifies where a fixed-size record lives.
//
// Directory, FileSlot and SegmentSlot are -1 when they do not apply.
type RecordLocation struct {
	Path        string
	Record      string
	Directory   int
	FileSlot    int
	SegmentSlot int
}

func (l RecordLocation) String() string {
	parts := []string{fmt.Sprintf("%s record in %s", l.Record, l.Path)}
	if l.Directory >= 0 {
		parts = append(parts, fmt.Sprintf("directory %d", l.Directory))
	}
	if l.FileSlot >= 0 {
		parts = append(parts, fmt.Sprintf("file slot %d", l.FileSlot))
	}
	if l.SegmentSlot >= 0 {
		parts = append(parts, fmt.Sprintf("segment slot %d", l.SegmentSlot))
	}
	return strings.Join(parts, ", ")
}

// TruncatedRecordError is returned when fewer bytes were available than a fixed-size record needs.
type TruncatedRecordError struct {
	RecordLocation
	Offset int64
	Want   int
	Got    int
}

func (e *TruncatedRecordError) Error() string {
	return fmt.Sprintf("Truncated %s at offset %d: got %d of %d bytes", e.RecordLocation, e.Offset, e.Got, e.Want)
}

// MissingInfoFileError is returned when the top-level info file does not exist.
type MissingInfoFileError struct {
	Path string
}

func (e *MissingInfoFileError) Error() string {
	return fmt.Sprintf("Missing NAS info file: %s", e.Path)
}

// IndexNotFoundError is returned when a data directory has neither a binary nor a relational index.
type IndexNotFoundError struct {
	Directory int
	Tried     []string
}

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("No index found for directory %d (tried: %s)", e.Directory, strings.Join(e.Tried, ", "))
}

// RecordingFileMissingError is returned when a segment's recording file does not exist.
type RecordingFileMissingError struct {
	Path string
}

func (e *RecordingFileMissingError) Error() string {
	return fmt.Sprintf("Missing recording file: %s", e.Path)
}

// SegmentOutOfRangeError is returned when a segment's byte range does not fit its recording file.
type SegmentOutOfRangeError struct {
	Path        string
	StartOffset uint64
	EndOffset   uint64
	FileSize    int64
}

func (e *SegmentOutOfRangeError) Error() string {
	return fmt.Sprintf("Segment range %d-%d is out of range for %s (%d bytes)", e.StartOffset, e.EndOffset, e.Path, e.FileSize)
}

// DirectoryError attaches the data directory index to an error from that directory's scan.
type DirectoryError struct {
	Directory int
	Err       error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("Directory %d: %v", e.Directory, e.Err)
}

func (e *DirectoryError) Unwrap() error {
	return e.Err
}
