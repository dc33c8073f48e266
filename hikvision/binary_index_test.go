package hikvision

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadNASInfo(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestFile(t, fs, "/nvr/info.bin", testNASInfo("DS-7608NI0120190101", 2))

	info, err := ReadNASInfo(fs, "/nvr", DefaultFormat())
	require.NoError(t, err)
	assert.Equal(t, "DS-7608NI0120190101", info.Serial())
	assert.Equal(t, "de:ad:be:ef", info.MAC().String())
	assert.Equal(t, uint32(4096), info.BlockSize)
	assert.Equal(t, uint32(1000), info.BlockCount)
	assert.Equal(t, uint32(2), info.DataDirs)
}

func TestReadNASInfoMissing(t *testing.T) {
	_, err := ReadNASInfo(afero.NewMemMapFs(), "/nvr", DefaultFormat())

	var missing *MissingInfoFileError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "/nvr/info.bin", missing.Path)
}

func TestReadNASInfoTruncated(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestFile(t, fs, "/nvr/info.bin", testNASInfo("X", 1)[:60])

	_, err := ReadNASInfo(fs, "/nvr", DefaultFormat())

	var truncated *TruncatedRecordError
	require.True(t, errors.As(err, &truncated))
	assert.Equal(t, 68, truncated.Want)
	assert.Equal(t, 60, truncated.Got)
	assert.Equal(t, "NAS info", truncated.Record)
}

func TestBinaryIndexReadHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	index := testIndex{version: 2, files: []testFile{{channel: 1}, {channel: 1}}}
	writeTestFile(t, fs, "/nvr/datadir0/index00.bin", index.bytes())

	header, err := NewBinaryIndex(fs, "/nvr", 0, MediaVideo, DefaultFormat()).ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), header.Version)
	assert.Equal(t, uint32(2), header.AVFiles)
	assert.Equal(t, uint64(1), header.ModifyTimes)
}

func TestBinaryIndexReadFilesSkipsUnused(t *testing.T) {
	fs := afero.NewMemMapFs()
	index := testIndex{
		files: []testFile{
			{fileNo: 10, channel: 1, startTime: 1566415000, endTime: 1566418600},
			{fileNo: 11, channel: UnusedChannel},
			{fileNo: 12, channel: 2},
		},
	}
	writeTestFile(t, fs, "/nvr/datadir1/index00.bin", index.bytes())

	files, err := NewBinaryIndex(fs, "/nvr", 1, MediaVideo, DefaultFormat()).ReadFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, uint32(10), files[0].FileNo)
	assert.Equal(t, 0, files[0].Slot)
	assert.Equal(t, 1, files[0].Directory)
	assert.Equal(t, time.Unix(1566418600, 0).UTC(), files[0].EndDateTime())
	assert.Equal(t, uint32(12), files[1].FileNo)
	assert.Equal(t, 2, files[1].Slot)
	for _, file := range files {
		assert.False(t, file.Unused())
	}
}

func TestBinaryIndexReadSegmentRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	index := testIndex{
		files:    []testFile{{channel: 1}, {channel: UnusedChannel}},
		segments: []testSegment{{fileSlot: 1, slot: 255, kind: 1, startTime: 100, endTime: 200}},
	}
	writeTestFile(t, fs, "/nvr/datadir0/index00.bin", index.bytes())

	tables, err := NewBinaryIndex(fs, "/nvr", 0, MediaVideo, DefaultFormat()).ReadSegmentRecords()
	require.NoError(t, err)
	require.Len(t, tables, 2)
	require.Len(t, tables[0], 256)
	require.Len(t, tables[1], 256)
	assert.Equal(t, uint64(200), tables[1][255].EndTime)
	assert.Equal(t, uint64(0), tables[0][0].EndTime)
}

func TestBinaryIndexListSegments(t *testing.T) {
	fs := afero.NewMemMapFs()
	flags := uint64(0x4000000000000000)
	index := testIndex{
		files: []testFile{{channel: 1}, {channel: 1}},
		segments: []testSegment{
			{fileSlot: 0, slot: 0, kind: 1, startTime: flags | 1566415000, endTime: flags | 1566415030, startOffset: 1000, endOffset: 9096},
			{fileSlot: 0, slot: 1, kind: 1, startTime: flags | 1566415100},
			{fileSlot: 1, slot: 3, kind: 2, startTime: 1566416000, endTime: 1566416060, startOffset: 0, endOffset: 4096},
		},
	}
	writeTestFile(t, fs, "/nvr/datadir0/index00.bin", index.bytes())

	segments, err := NewBinaryIndex(fs, "/nvr", 0, MediaVideo, DefaultFormat()).ListSegments(TimeRange{})
	require.NoError(t, err)
	require.Len(t, segments, 2)

	first := segments[0]
	assert.Equal(t, time.Date(2019, 8, 21, 19, 16, 40, 0, time.UTC), first.StartTime)
	assert.Equal(t, 30*time.Second, first.Duration)
	assert.Equal(t, "datadir0/hiv00000.mp4", first.Path)
	assert.Equal(t, uint64(8096), first.Size())
	assert.Equal(t, EncodingBinary, first.Encoding)
	assert.Equal(t, flags|1566415000, first.StartTimeRaw)
	require.NotNil(t, first.Record)

	second := segments[1]
	assert.Equal(t, 1, second.FileIndex)
	assert.Equal(t, 3, second.Slot)
	assert.Equal(t, uint8(2), second.Type)
	assert.Equal(t, "datadir0/hiv00001.mp4", second.Path)
}

func TestBinaryIndexListSegmentsExclusiveBounds(t *testing.T) {
	fs := afero.NewMemMapFs()
	index := testIndex{
		files: []testFile{{channel: 1}},
		segments: []testSegment{
			{slot: 0, kind: 1, startTime: 1000, endTime: 1010},
			{slot: 1, kind: 1, startTime: 1001, endTime: 1011},
			{slot: 2, kind: 1, startTime: 1999, endTime: 2009},
			{slot: 3, kind: 1, startTime: 2000, endTime: 2010},
		},
	}
	writeTestFile(t, fs, "/nvr/datadir0/index00.bin", index.bytes())
	source := NewBinaryIndex(fs, "/nvr", 0, MediaVideo, DefaultFormat())

	segments, err := source.ListSegments(TimeRange{From: time.Unix(1000, 0), To: time.Unix(2000, 0)})
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, time.Unix(1001, 0).UTC(), segments[0].StartTime)
	assert.Equal(t, time.Unix(1999, 0).UTC(), segments[1].StartTime)

	// The Unix seconds form of a bound wins over the time form.
	segments, err = source.ListSegments(TimeRange{From: time.Unix(1000, 0), FromUnix: int64Pointer(1500)})
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, time.Unix(1999, 0).UTC(), segments[0].StartTime)
}

func TestBinaryIndexImageMedia(t *testing.T) {
	fs := afero.NewMemMapFs()
	index := testIndex{
		files:    []testFile{{channel: 1}},
		segments: []testSegment{{slot: 0, kind: 1, startTime: 1000, endTime: 1001}},
	}
	writeTestFile(t, fs, "/nvr/datadir0/index00p.bin", index.bytes())

	segments, err := NewBinaryIndex(fs, "/nvr", 0, MediaImage, DefaultFormat()).ListSegments(TimeRange{})
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "datadir0/hiv00000.pic", segments[0].Path)
}

func TestBinaryIndexUnknownVersion(t *testing.T) {
	fs := afero.NewMemMapFs()
	index := testIndex{
		version:  9,
		files:    []testFile{{channel: 1}},
		segments: []testSegment{{slot: 0, kind: 1, startTime: 1000, endTime: 1001}},
	}
	writeTestFile(t, fs, "/nvr/datadir0/index00.bin", index.bytes())

	format := DefaultFormat()
	format.Versions = version.MustConstraints(version.NewConstraint("< 3"))
	require.False(t, format.SupportsVersion(9))

	// An unknown version is only logged.
	segments, err := NewBinaryIndex(fs, "/nvr", 0, MediaVideo, format).ListSegments(TimeRange{})
	require.NoError(t, err)
	assert.Len(t, segments, 1)
}

func TestBinaryIndexTruncatedHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestFile(t, fs, "/nvr/datadir0/index00.bin", make([]byte, 100))

	_, err := NewBinaryIndex(fs, "/nvr", 0, MediaVideo, DefaultFormat()).ListSegments(TimeRange{})

	var truncated *TruncatedRecordError
	require.True(t, errors.As(err, &truncated))
	assert.Equal(t, "index header", truncated.Record)
	assert.Equal(t, 0, truncated.Directory)
	assert.Equal(t, 100, truncated.Got)
}

func TestBinaryIndexTruncatedFileTable(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := testIndex{files: []testFile{{channel: 1}, {channel: 1}}}.bytes()
	writeTestFile(t, fs, "/nvr/datadir0/index00.bin", data[:1280+32+5])

	_, err := NewBinaryIndex(fs, "/nvr", 0, MediaVideo, DefaultFormat()).ReadFiles()

	var truncated *TruncatedRecordError
	require.True(t, errors.As(err, &truncated))
	assert.Equal(t, "file", truncated.Record)
	assert.Equal(t, 1, truncated.FileSlot)
	assert.Equal(t, int64(1280+32), truncated.Offset)
	assert.Equal(t, 5, truncated.Got)
}

func TestBinaryIndexTruncatedSegmentTable(t *testing.T) {
	fs := afero.NewMemMapFs()
	format := DefaultFormat()
	data := testIndex{files: []testFile{{channel: 1}}}.bytes()
	tableOffset := int(format.SegmentTableOffset(1))
	writeTestFile(t, fs, "/nvr/datadir2/index00.bin", data[:tableOffset+3*80+10])

	_, err := NewBinaryIndex(fs, "/nvr", 2, MediaVideo, format).ListSegments(TimeRange{})

	var truncated *TruncatedRecordError
	require.True(t, errors.As(err, &truncated))
	assert.Equal(t, "segment", truncated.Record)
	assert.Equal(t, 2, truncated.Directory)
	assert.Equal(t, 0, truncated.FileSlot)
	assert.Equal(t, 3, truncated.SegmentSlot)
	assert.Equal(t, int64(tableOffset+3*80), truncated.Offset)
	assert.Equal(t, 80, truncated.Want)
	assert.Equal(t, 10, truncated.Got)
}

func TestBinaryIndexHugeFileCount(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := make([]byte, 1280)
	binary.LittleEndian.PutUint32(data[12:], 0x40000000)
	writeTestFile(t, fs, "/nvr/datadir0/index00.bin", data)
	index := NewBinaryIndex(fs, "/nvr", 0, MediaVideo, DefaultFormat())

	tables, err := index.ReadSegmentRecords()
	assert.Nil(t, tables)
	var truncated *TruncatedRecordError
	require.True(t, errors.As(err, &truncated))
	assert.Equal(t, "segment", truncated.Record)
	assert.Equal(t, 0, truncated.FileSlot)
	assert.Equal(t, 0, truncated.SegmentSlot)
	assert.Equal(t, 0, truncated.Got)

	_, err = index.ListSegments(TimeRange{})
	require.True(t, errors.As(err, &truncated))
	assert.Equal(t, "file", truncated.Record)
	assert.Equal(t, 0, truncated.FileSlot)
}
