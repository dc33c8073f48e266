package hikvision

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// relationalRow is one row of the segment table of "record_db_index00".
type relationalRow struct {
	FileNo      int64 `gorm:"column:file_no"`
	StartOffset int64 `gorm:"column:start_offset"`
	EndOffset   int64 `gorm:"column:end_offset"`
	StartTime   int64 `gorm:"column:start_time"`
	EndTime     int64 `gorm:"column:end_time"`
	RecordType  int64 `gorm:"column:record_type"`
}

// RelationalIndex reads the SQLite index that newer firmware writes instead of the binary one.
//
// Times are plain Unix seconds and the time filter runs inside the query.
type RelationalIndex struct {
	root      string
	directory int
	media     MediaType
	format    *Format
}

// NewRelationalIndex returns a reader for the relational index of a data directory.
//
// The store is opened straight from the OS file system.
func NewRelationalIndex(root string, directory int, media MediaType, format *Format) *RelationalIndex {
	return &RelationalIndex{
		root:      root,
		directory: directory,
		media:     media,
		format:    format,
	}
}

func (r *RelationalIndex) Directory() int     { return r.directory }
func (r *RelationalIndex) Encoding() Encoding { return EncodingRelational }

// Path returns the path of the index store.
func (r *RelationalIndex) Path() string {
	return filepath.Join(r.root, r.format.RelationalIndexPath(r.directory))
}

func (r *RelationalIndex) open() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", r.Path())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("Could not open relational index '%s': %w", r.Path(), err)
	}
	return db, nil
}

// ListSegments queries the segments whose start time is inside the time range, bounds included.
func (r *RelationalIndex) ListSegments(timeRange TimeRange) ([]*Segment, error) {
	db, err := r.open()
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("Could not get the connection of '%s': %w", r.Path(), err)
	}
	defer sqlDB.Close()

	query := db.Table(r.format.RelationalTable).
		Select("file_no", "start_offset", "end_offset", "start_time", "end_time", "record_type").
		Where("record_type != 0")
	if lower, ok := timeRange.Lower(); ok {
		// Round up so a fractional bound does not let in the second before it.
		query = query.Where("start_time >= ?", lower.Add(time.Second-1).Unix())
	}
	if upper, ok := timeRange.Upper(); ok {
		query = query.Where("start_time <= ?", upper.Unix())
	}

	var rows []relationalRow
	err = query.Order("start_time ASC").Order("file_no ASC").Order("start_offset ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("Could not query '%s': %w", r.Path(), err)
	}

	segments := make([]*Segment, 0, len(rows))
	for slot, row := range rows {
		segments = append(segments, r.newSegment(slot, row))
	}
	logger.Debugf("Directory %d: %d segments", r.directory, len(segments))
	return segments, nil
}

func (r *RelationalIndex) newSegment(slot int, row relationalRow) *Segment {
	segment := &Segment{
		Type:         uint8(row.RecordType),
		StartTimeRaw: uint64(row.StartTime),
		EndTimeRaw:   uint64(row.EndTime),
		StartOffset:  uint64(row.StartOffset),
		EndOffset:    uint64(row.EndOffset),
		Directory:    r.directory,
		FileIndex:    int(row.FileNo),
		Slot:         slot,
		Encoding:     EncodingRelational,
		Path:         r.format.RecordingPath(r.directory, int(row.FileNo), r.media),
		StartTime:    time.Unix(row.StartTime, 0).UTC(),
		EndTime:      time.Unix(row.EndTime, 0).UTC(),
	}
	segment.Duration = segment.EndTime.Sub(segment.StartTime)
	return segment
}
