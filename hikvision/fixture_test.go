package hikvision

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testSegment is one populated slot of a synthetic binary index.
type testSegment struct {
	fileSlot    int
	slot        int
	kind        uint8
	startTime   uint64
	endTime     uint64
	startOffset uint32
	endOffset   uint32
}

// testFile is one file table entry of a synthetic binary index.
type testFile struct {
	fileNo    uint32
	channel   uint16
	startTime uint32
	endTime   uint32
}

// testIndex builds the bytes of a binary index.
type testIndex struct {
	version  uint32
	files    []testFile
	segments []testSegment
}

func (i testIndex) bytes() []byte {
	format := DefaultFormat()
	avFiles := len(i.files)
	tableOffset := int(format.SegmentTableOffset(uint32(avFiles)))
	tableSize := format.SegmentsPerFile * format.SegmentRecordSize
	buffer := make([]byte, tableOffset+avFiles*tableSize)

	binary.LittleEndian.PutUint64(buffer[0:], 1)
	binary.LittleEndian.PutUint32(buffer[8:], i.version)
	binary.LittleEndian.PutUint32(buffer[12:], uint32(avFiles))

	for slot, file := range i.files {
		record := buffer[format.HeaderSize+slot*format.FileRecordSize:]
		binary.LittleEndian.PutUint32(record[0:], file.fileNo)
		binary.LittleEndian.PutUint16(record[4:], file.channel)
		binary.LittleEndian.PutUint32(record[8:], file.startTime)
		binary.LittleEndian.PutUint32(record[12:], file.endTime)
	}

	for _, segment := range i.segments {
		record := buffer[tableOffset+segment.fileSlot*tableSize+segment.slot*format.SegmentRecordSize:]
		record[0] = segment.kind
		binary.LittleEndian.PutUint64(record[8:], segment.startTime)
		binary.LittleEndian.PutUint64(record[16:], segment.endTime)
		binary.LittleEndian.PutUint32(record[40:], segment.startOffset)
		binary.LittleEndian.PutUint32(record[44:], segment.endOffset)
	}
	return buffer
}

func testNASInfo(serial string, dataDirs uint32) []byte {
	buffer := make([]byte, DefaultFormat().NASInfoSize)
	copy(buffer[0:48], serial)
	copy(buffer[48:52], []byte{0xde, 0xad, 0xbe, 0xef})
	binary.LittleEndian.PutUint32(buffer[56:], 4096)
	binary.LittleEndian.PutUint32(buffer[60:], 1000)
	binary.LittleEndian.PutUint32(buffer[64:], dataDirs)
	return buffer
}

func writeTestFile(t *testing.T, fs afero.Fs, name string, data []byte) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, afero.WriteFile(fs, name, data, 0o644))
}

// writeTestRelationalIndex creates a relational index store on the OS file system.
func writeTestRelationalIndex(t *testing.T, filename string, rows []relationalRow) {
	t.Helper()
	require.NoError(t, afero.NewOsFs().MkdirAll(filepath.Dir(filename), 0o755))

	db, err := gorm.Open(sqlite.Open(filename), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	table := DefaultFormat().RelationalTable
	require.NoError(t, db.Exec("CREATE TABLE "+table+" (file_no INTEGER, start_offset INTEGER, end_offset INTEGER, start_time INTEGER, end_time INTEGER, record_type INTEGER)").Error)
	if len(rows) > 0 {
		require.NoError(t, db.Table(table).Create(&rows).Error)
	}
}

func testRecording(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func int64Pointer(value int64) *int64 {
	return &value
}
