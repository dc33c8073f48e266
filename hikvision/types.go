package hikvision

import (
	"bytes"
	"fmt"
	"net"
	"strings"
	"time"
)

// MediaType selects which index (and which recording files) a session reads.
type MediaType int

// Media types.
const (
	MediaVideo MediaType = iota
	MediaImage
)

func (m MediaType) String() string {
	switch m {
	case MediaVideo:
		return "video"
	case MediaImage:
		return "image"
	}
	return fmt.Sprintf("MediaType(%d)", int(m))
}

// ParseMediaType parses a media type name.
func ParseMediaType(value string) (MediaType, error) {
	switch strings.ToLower(value) {
	case "video", "mp4":
		return MediaVideo, nil
	case "image", "img", "pic":
		return MediaImage, nil
	}
	return 0, fmt.Errorf("Unknown media type: %q", value)
}

// Encoding is the on-disk encoding of a data directory's index.
type Encoding string

// Index encodings.
const (
	EncodingBinary     Encoding = "binary"
	EncodingRelational Encoding = "relational"
)

// Sentinel values of the binary encoding.
const (
	// PackedTimeMask selects the Unix timestamp of a packed time field; the high bits are recorder flags.
	PackedTimeMask uint64 = 0x00000000ffffffff
	// UnusedChannel marks a deleted or never-used file table entry.
	UnusedChannel uint16 = 0xffff
)

// UnpackTime converts a packed 64-bit time field to a UTC time.
func UnpackTime(packed uint64) time.Time {
	return unpackTime(packed, PackedTimeMask)
}

func unpackTime(packed uint64, mask uint64) time.Time {
	return time.Unix(int64(packed&mask), 0).UTC()
}

// NASInfo is the record in "info.bin".
type NASInfo struct {
	SerialNumber   [48]byte // byte offset 0-47
	MACAddr        [4]byte  // byte offset 48-51
	BlockSizeClass uint8    // byte offset 52
	Padding        [3]byte  // byte offset 53-55
	BlockSize      uint32   // byte offset 56-59
	BlockCount     uint32   // byte offset 60-63
	DataDirs       uint32   // byte offset 64-67
}

// Serial returns the serial number without the trailing NUL bytes.
func (n *NASInfo) Serial() string {
	return string(bytes.TrimRight(n.SerialNumber[:], "\x00"))
}

// MAC returns the (truncated) MAC address bytes as they appear in the file.
func (n *NASInfo) MAC() net.HardwareAddr {
	return net.HardwareAddr(n.MACAddr[:])
}

func parseNASInfo(buffer []byte) *NASInfo {
	info := &NASInfo{}
	r := newFieldReader(NASInfoLayout, buffer)
	r.readRaw(info.SerialNumber[:])
	r.readRaw(info.MACAddr[:])
	info.BlockSizeClass = r.readUint8()
	r.readRaw(info.Padding[:])
	info.BlockSize = r.readUint32()
	info.BlockCount = r.readUint32()
	info.DataDirs = r.readUint32()
	return info
}

// IndexHeader is the header at the start of a binary index.
type IndexHeader struct {
	ModifyTimes   uint64
	Version       uint32
	AVFiles       uint32 // The number of valid file table entries.
	NextFileRecNo uint32
	LastFileRecNo uint32
	CurFileRec    [1176]byte // TODO: Figure this out.
	Unknown       [76]byte
	Checksum      uint32
}

func parseIndexHeader(buffer []byte) *IndexHeader {
	header := &IndexHeader{}
	r := newFieldReader(IndexHeaderLayout, buffer)
	header.ModifyTimes = r.readUint64()
	header.Version = r.readUint32()
	header.AVFiles = r.readUint32()
	header.NextFileRecNo = r.readUint32()
	header.LastFileRecNo = r.readUint32()
	r.readRaw(header.CurFileRec[:])
	r.readRaw(header.Unknown[:])
	header.Checksum = r.readUint32()
	return header
}

// FileRecord is one entry of a binary index's file table.
type FileRecord struct {
	FileNo       uint32
	Channel      uint16
	SegRecNums   uint16
	StartTime    uint32
	EndTime      uint32
	Status       uint8
	UnknownA     uint8
	LockedSegNum uint16
	UnknownB     [4]byte
	InfoTypes    [8]byte

	Directory int // The data directory this record came from.
	Slot      int // The position in the file table, which is also the recording file index.
}

// Unused reports whether this entry is a deleted or never-used slot.
func (f *FileRecord) Unused() bool {
	return f.Channel == UnusedChannel
}

// StartDateTime returns the start time.
func (f *FileRecord) StartDateTime() time.Time {
	return time.Unix(int64(f.StartTime), 0).UTC()
}

// EndDateTime returns the end time.
func (f *FileRecord) EndDateTime() time.Time {
	return time.Unix(int64(f.EndTime), 0).UTC()
}

func parseFileRecord(buffer []byte) *FileRecord {
	record := &FileRecord{}
	r := newFieldReader(FileRecordLayout, buffer)
	record.FileNo = r.readUint32()
	record.Channel = r.readUint16()
	record.SegRecNums = r.readUint16()
	record.StartTime = r.readUint32()
	record.EndTime = r.readUint32()
	record.Status = r.readUint8()
	record.UnknownA = r.readUint8()
	record.LockedSegNum = r.readUint16()
	r.readRaw(record.UnknownB[:])
	r.readRaw(record.InfoTypes[:])
	return record
}

// SegmentRecord is one raw slot of a binary index's segment table.
type SegmentRecord struct {
	Type                 uint8
	Status               uint8
	ResA                 [2]byte
	Resolution           [4]byte
	StartTime            uint64 // Packed; see UnpackTime.
	EndTime              uint64 // Packed; see UnpackTime.
	FirstKeyFrameAbsTime uint64
	FirstKeyFrameStdTime uint32
	LastFrameStdTime     uint32
	StartOffset          uint32
	EndOffset            uint32
	ResB                 [4]byte
	InfoNum              [4]byte
	InfoTypes            [8]byte
	InfoStartTime        [4]byte
	InfoEndTime          [4]byte
	InfoStartOffset      [4]byte
	InfoEndOffset        [4]byte
}

func parseSegmentRecord(buffer []byte) *SegmentRecord {
	record := &SegmentRecord{}
	r := newFieldReader(SegmentRecordLayout, buffer)
	record.Type = r.readUint8()
	record.Status = r.readUint8()
	r.readRaw(record.ResA[:])
	r.readRaw(record.Resolution[:])
	record.StartTime = r.readUint64()
	record.EndTime = r.readUint64()
	record.FirstKeyFrameAbsTime = r.readUint64()
	record.FirstKeyFrameStdTime = r.readUint32()
	record.LastFrameStdTime = r.readUint32()
	record.StartOffset = r.readUint32()
	record.EndOffset = r.readUint32()
	r.readRaw(record.ResB[:])
	r.readRaw(record.InfoNum[:])
	r.readRaw(record.InfoTypes[:])
	r.readRaw(record.InfoStartTime[:])
	r.readRaw(record.InfoEndTime[:])
	r.readRaw(record.InfoStartOffset[:])
	r.readRaw(record.InfoEndOffset[:])
	return record
}

// Segment is one recorded interval, as produced by either index encoding.
type Segment struct {
	Type         uint8
	Status       uint8
	Resolution   [4]byte
	StartTimeRaw uint64
	EndTimeRaw   uint64
	StartOffset  uint64
	EndOffset    uint64

	Directory int
	FileIndex int
	Slot      int // The segment table slot; the row position for relational indexes.
	Encoding  Encoding
	Path      string // The recording file, relative to the session root.

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Record is the raw segment table slot; nil for relational indexes.
	Record *SegmentRecord
}

// Size returns the logical size of the segment's byte range.
func (s *Segment) Size() uint64 {
	if s.EndOffset <= s.StartOffset {
		return 0
	}
	return s.EndOffset - s.StartOffset
}

func (s *Segment) String() string {
	return fmt.Sprintf("%s %v %d-%d %s - %s", s.Path, s.Duration.Seconds(), s.StartOffset, s.EndOffset, s.StartTime.Format(time.DateTime), s.EndTime.Format(time.DateTime))
}
