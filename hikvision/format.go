package hikvision

import (
	"fmt"
	"path"
	"strconv"

	"github.com/hashicorp/go-version"
)

// Format describes the on-disk layout of one family of recorder firmware.
//
// Every size, count and file name that the readers depend on lives here so that
// the binary contract can be reviewed in one place.
type Format struct {
	Name string

	// Versions is the set of index header versions this layout is known to describe.
	Versions version.Constraints

	InfoFile            string // Relative to the root.
	DataDirTemplate     string // fmt template taking the directory index.
	VideoIndexFile      string
	ImageIndexFile      string
	RelationalIndexFile string
	RelationalTable     string
	RecordingTemplate   string // fmt template taking the file index and extension.
	VideoExtension      string
	ImageExtension      string

	NASInfoSize       int
	HeaderSize        int
	FileRecordSize    int
	SegmentRecordSize int
	SegmentsPerFile   int
	BlockSize         int

	// TimeMask selects the Unix timestamp out of a packed 64-bit time field.
	TimeMask uint64
	// UnusedChannel is the channel value of a deleted file table entry.
	UnusedChannel uint16
}

// DefaultFormat returns the layout written by every firmware seen so far.
func DefaultFormat() *Format {
	return &Format{
		Name:                "hikvision-v1",
		Versions:            version.MustConstraints(version.NewConstraint(">= 0")),
		InfoFile:            "info.bin",
		DataDirTemplate:     "datadir%d",
		VideoIndexFile:      "index00.bin",
		ImageIndexFile:      "index00p.bin",
		RelationalIndexFile: "record_db_index00",
		RelationalTable:     "record_segment_idx_tb",
		RecordingTemplate:   "hiv%05d.%s",
		VideoExtension:      "mp4",
		ImageExtension:      "pic",
		NASInfoSize:         68,
		HeaderSize:          1280,
		FileRecordSize:      32,
		SegmentRecordSize:   80,
		SegmentsPerFile:     256,
		BlockSize:           4096,
		TimeMask:            PackedTimeMask,
		UnusedChannel:       UnusedChannel,
	}
}

// Validate makes sure that the record layouts add up to the declared record sizes.
func (f *Format) Validate() error {
	checks := []struct {
		name   string
		layout Layout
		size   int
	}{
		{"NAS info", NASInfoLayout, f.NASInfoSize},
		{"index header", IndexHeaderLayout, f.HeaderSize},
		{"file record", FileRecordLayout, f.FileRecordSize},
		{"segment record", SegmentRecordLayout, f.SegmentRecordSize},
	}
	for _, check := range checks {
		if check.layout.Size() != check.size {
			return fmt.Errorf("Format %s: %s layout is %d bytes, expected %d", f.Name, check.name, check.layout.Size(), check.size)
		}
	}
	if f.SegmentsPerFile <= 0 {
		return fmt.Errorf("Format %s: invalid segments per file: %d", f.Name, f.SegmentsPerFile)
	}
	if f.BlockSize <= 0 {
		return fmt.Errorf("Format %s: invalid block size: %d", f.Name, f.BlockSize)
	}
	return nil
}

// SupportsVersion reports whether the given index header version is covered by this format.
func (f *Format) SupportsVersion(headerVersion uint32) bool {
	if f.Versions == nil {
		return true
	}
	v, err := version.NewVersion(strconv.FormatUint(uint64(headerVersion), 10))
	if err != nil {
		return false
	}
	return f.Versions.Check(v)
}

// DataDir returns the path of the given data directory, relative to the root.
func (f *Format) DataDir(directory int) string {
	return fmt.Sprintf(f.DataDirTemplate, directory)
}

// IndexPath returns the binary index path of a data directory for the media type.
func (f *Format) IndexPath(directory int, media MediaType) string {
	name := f.VideoIndexFile
	if media == MediaImage {
		name = f.ImageIndexFile
	}
	return path.Join(f.DataDir(directory), name)
}

// RelationalIndexPath returns the relational index path of a data directory.
func (f *Format) RelationalIndexPath(directory int) string {
	return path.Join(f.DataDir(directory), f.RelationalIndexFile)
}

// RecordingPath returns the recording file path, relative to the root.
func (f *Format) RecordingPath(directory int, fileIndex int, media MediaType) string {
	extension := f.VideoExtension
	if media == MediaImage {
		extension = f.ImageExtension
	}
	return path.Join(f.DataDir(directory), fmt.Sprintf(f.RecordingTemplate, fileIndex, extension))
}

// SegmentTableOffset returns the byte offset of the segment table of an index with the given file count.
func (f *Format) SegmentTableOffset(avFiles uint32) int64 {
	return int64(f.HeaderSize) + int64(avFiles)*int64(f.FileRecordSize)
}
