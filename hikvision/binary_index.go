package hikvision

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// BinaryIndex reads "index00.bin" / "index00p.bin" of one data directory.
//
// The file is a header, then a table of AVFiles file records, then AVFiles
// fixed-size segment tables.
type BinaryIndex struct {
	fs        afero.Fs
	root      string
	directory int
	media     MediaType
	format    *Format
}

// NewBinaryIndex returns a reader for the binary index of a data directory.
func NewBinaryIndex(fs afero.Fs, root string, directory int, media MediaType, format *Format) *BinaryIndex {
	return &BinaryIndex{
		fs:        fs,
		root:      root,
		directory: directory,
		media:     media,
		format:    format,
	}
}

func (b *BinaryIndex) Directory() int     { return b.directory }
func (b *BinaryIndex) Encoding() Encoding { return EncodingBinary }

// Path returns the path of the index file.
func (b *BinaryIndex) Path() string {
	return filepath.Join(b.root, b.format.IndexPath(b.directory, b.media))
}

func (b *BinaryIndex) location(record string, fileSlot int, segmentSlot int) RecordLocation {
	return RecordLocation{
		Path:        b.Path(),
		Record:      record,
		Directory:   b.directory,
		FileSlot:    fileSlot,
		SegmentSlot: segmentSlot,
	}
}

func (b *BinaryIndex) open() (afero.File, error) {
	handle, err := b.fs.Open(b.Path())
	if err != nil {
		return nil, fmt.Errorf("Could not open index '%s': %w", b.Path(), err)
	}
	return handle, nil
}

// ReadHeader reads the index header.
func (b *BinaryIndex) ReadHeader() (*IndexHeader, error) {
	handle, err := b.open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	return b.readHeader(handle)
}

// ReadFiles reads the file table, leaving out the unused entries.
func (b *BinaryIndex) ReadFiles() ([]*FileRecord, error) {
	handle, err := b.open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	header, err := b.readHeader(handle)
	if err != nil {
		return nil, err
	}
	return b.readFiles(handle, header)
}

// ReadSegmentRecords reads the raw segment tables, one per file slot,
// including the slots of unused file entries.
func (b *BinaryIndex) ReadSegmentRecords() ([][]*SegmentRecord, error) {
	handle, err := b.open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	header, err := b.readHeader(handle)
	if err != nil {
		return nil, err
	}

	// Grow with the tables actually read; the header count may be garbage.
	tables := [][]*SegmentRecord{}
	err = b.walkSegments(handle, header, func(fileSlot int, slot int, record *SegmentRecord) {
		if fileSlot == len(tables) {
			tables = append(tables, make([]*SegmentRecord, 0, b.format.SegmentsPerFile))
		}
		tables[fileSlot] = append(tables[fileSlot], record)
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// ListSegments decodes the whole segment grid and returns the terminated
// segments whose start time is strictly inside the time range.
func (b *BinaryIndex) ListSegments(timeRange TimeRange) ([]*Segment, error) {
	handle, err := b.open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	header, err := b.readHeader(handle)
	if err != nil {
		return nil, err
	}

	files, err := b.readFiles(handle, header)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Directory %d: %d of %d file slots in use", b.directory, len(files), header.AVFiles)

	segments := []*Segment{}
	err = b.walkSegments(handle, header, func(fileSlot int, slot int, record *SegmentRecord) {
		if record.EndTime == 0 {
			return
		}
		segment := b.newSegment(fileSlot, slot, record)
		if !timeRange.containsExclusive(segment.StartTime) {
			return
		}
		segments = append(segments, segment)
	})
	if err != nil {
		return nil, err
	}

	logger.Debugf("Directory %d: %d segments", b.directory, len(segments))
	return segments, nil
}

func (b *BinaryIndex) readHeader(handle afero.File) (*IndexHeader, error) {
	buffer, err := readRecord(handle, 0, b.format.HeaderSize, b.location("index header", -1, -1))
	if err != nil {
		return nil, err
	}
	header := parseIndexHeader(buffer)

	logger.Debugf("Directory %d: header: modify times: %d, version: %d, files: %d, next file: %d, last file: %d, checksum: %x", b.directory, header.ModifyTimes, header.Version, header.AVFiles, header.NextFileRecNo, header.LastFileRecNo, header.Checksum)
	if !b.format.SupportsVersion(header.Version) {
		logger.Warnf("Directory %d: index version %d is not covered by format %s (%s)", b.directory, header.Version, b.format.Name, b.format.Versions)
	}
	return header, nil
}

func (b *BinaryIndex) readFiles(handle afero.File, header *IndexHeader) ([]*FileRecord, error) {
	size := b.format.FileRecordSize
	files := []*FileRecord{}
	for slot := 0; slot < int(header.AVFiles); slot++ {
		offset := int64(b.format.HeaderSize) + int64(slot)*int64(size)
		buffer, err := readRecord(handle, offset, size, b.location("file", slot, -1))
		if err != nil {
			return nil, err
		}
		record := parseFileRecord(buffer)
		record.Directory = b.directory
		record.Slot = slot
		if record.Channel == b.format.UnusedChannel {
			logger.Debugf("Directory %d: file slot %d is unused", b.directory, slot)
			continue
		}
		logger.Debugf("Directory %d: file slot %d: file: %d, channel: %d, segments: %d, %d - %d", b.directory, slot, record.FileNo, record.Channel, record.SegRecNums, record.StartTime, record.EndTime)
		files = append(files, record)
	}
	return files, nil
}

// walkSegments decodes every slot of every segment table, populated or not.
func (b *BinaryIndex) walkSegments(handle afero.File, header *IndexHeader, visit func(fileSlot int, slot int, record *SegmentRecord)) error {
	recordSize := b.format.SegmentRecordSize
	tableSize := b.format.SegmentsPerFile * recordSize
	tableOffset := b.format.SegmentTableOffset(header.AVFiles)

	for fileSlot := 0; fileSlot < int(header.AVFiles); fileSlot++ {
		offset := tableOffset + int64(fileSlot)*int64(tableSize)
		buffer, err := readRecord(handle, offset, tableSize, b.location("segment", fileSlot, -1))
		if err != nil {
			if truncated, ok := err.(*TruncatedRecordError); ok {
				// Point at the first slot that could not be read in full.
				slot := truncated.Got / recordSize
				truncated.SegmentSlot = slot
				truncated.Offset = offset + int64(slot)*int64(recordSize)
				truncated.Want = recordSize
				truncated.Got = truncated.Got % recordSize
			}
			return err
		}

		for slot := 0; slot < b.format.SegmentsPerFile; slot++ {
			record := parseSegmentRecord(buffer[slot*recordSize : (slot+1)*recordSize])
			visit(fileSlot, slot, record)
		}
	}
	return nil
}

func (b *BinaryIndex) newSegment(fileSlot int, slot int, record *SegmentRecord) *Segment {
	segment := &Segment{
		Type:         record.Type,
		Status:       record.Status,
		Resolution:   record.Resolution,
		StartTimeRaw: record.StartTime,
		EndTimeRaw:   record.EndTime,
		StartOffset:  uint64(record.StartOffset),
		EndOffset:    uint64(record.EndOffset),
		Directory:    b.directory,
		FileIndex:    fileSlot,
		Slot:         slot,
		Encoding:     EncodingBinary,
		Path:         b.format.RecordingPath(b.directory, fileSlot, b.media),
		StartTime:    unpackTime(record.StartTime, b.format.TimeMask),
		EndTime:      unpackTime(record.EndTime, b.format.TimeMask),
		Record:       record,
	}
	segment.Duration = segment.EndTime.Sub(segment.StartTime)
	return segment
}
