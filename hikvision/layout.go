package hikvision

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FieldKind is the primitive type of a record field.
type FieldKind int

// Field kinds.  All integers are little-endian and unsigned.
const (
	FieldUint8 FieldKind = iota
	FieldUint16
	FieldUint32
	FieldUint64
	FieldRaw // Fixed-length bytes that are kept as-is.
)

// Field is one named, fixed-width field of a record.
type Field struct {
	Name  string
	Width int
	Kind  FieldKind
}

// Layout is the ordered list of fields that make up a fixed-size record.
type Layout []Field

// FieldValue is a decoded field.
type FieldValue struct {
	Field
	Offset int
	Uint   uint64 // Set for integer fields.
	Raw    []byte // Set for raw fields.
}

func (v FieldValue) String() string {
	if v.Kind == FieldRaw {
		return fmt.Sprintf("%x", v.Raw)
	}
	return fmt.Sprintf("%d", v.Uint)
}

func u8(name string) Field         { return Field{Name: name, Width: 1, Kind: FieldUint8} }
func u16(name string) Field        { return Field{Name: name, Width: 2, Kind: FieldUint16} }
func u32(name string) Field        { return Field{Name: name, Width: 4, Kind: FieldUint32} }
func u64(name string) Field        { return Field{Name: name, Width: 8, Kind: FieldUint64} }
func raw(name string, n int) Field { return Field{Name: name, Width: n, Kind: FieldRaw} }

// NASInfoLayout is the layout of "info.bin".
var NASInfoLayout = Layout{
	raw("serialNumber", 48),
	raw("MACAddr", 4),
	u8("byRes"),
	raw("padding", 3),
	u32("f_bsize"),
	u32("f_blocks"),
	u32("DataDirs"),
}

// IndexHeaderLayout is the layout of the header at the start of a binary index.
var IndexHeaderLayout = Layout{
	u64("modifyTimes"),
	u32("version"),
	u32("avFiles"),
	u32("nextFileRecNo"),
	u32("lastFileRecNo"),
	raw("curFileRec", 1176),
	raw("unknown", 76),
	u32("checksum"),
}

// FileRecordLayout is the layout of one file table entry.
var FileRecordLayout = Layout{
	u32("fileNo"),
	u16("chan"),
	u16("segRecNums"),
	u32("startTime"),
	u32("endTime"),
	u8("status"),
	u8("unknownA"),
	u16("lockedSegNum"),
	raw("unknownB", 4),
	raw("infoTypes", 8),
}

// SegmentRecordLayout is the layout of one segment table slot.
var SegmentRecordLayout = Layout{
	u8("type"),
	u8("status"),
	raw("resA", 2),
	raw("resolution", 4),
	u64("startTime"),
	u64("endTime"),
	u64("firstKeyFrame_absTime"),
	u32("firstKeyFrame_stdTime"),
	u32("lastFrame_stdTime"),
	u32("startOffset"),
	u32("endOffset"),
	raw("resB", 4),
	raw("infoNum", 4),
	raw("infoTypes", 8),
	raw("infoStartTime", 4),
	raw("infoEndTime", 4),
	raw("infoStartOffset", 4),
	raw("infoEndOffset", 4),
}

// Size returns the total width of the layout in bytes.
func (l Layout) Size() int {
	size := 0
	for _, field := range l {
		size += field.Width
	}
	return size
}

// Decode decodes the buffer into the layout's fields, in order.
//
// The buffer must hold at least Size() bytes; it is never padded.
func (l Layout) Decode(buffer []byte) ([]FieldValue, error) {
	if len(buffer) < l.Size() {
		return nil, &TruncatedRecordError{
			RecordLocation: RecordLocation{Path: "buffer", Record: "layout", Directory: -1, FileSlot: -1, SegmentSlot: -1},
			Want:           l.Size(),
			Got:            len(buffer),
		}
	}

	values := make([]FieldValue, 0, len(l))
	offset := 0
	for _, field := range l {
		value := FieldValue{Field: field, Offset: offset}
		chunk := buffer[offset : offset+field.Width]
		switch field.Kind {
		case FieldUint8:
			value.Uint = uint64(chunk[0])
		case FieldUint16:
			value.Uint = uint64(binary.LittleEndian.Uint16(chunk))
		case FieldUint32:
			value.Uint = uint64(binary.LittleEndian.Uint32(chunk))
		case FieldUint64:
			value.Uint = binary.LittleEndian.Uint64(chunk)
		case FieldRaw:
			value.Raw = append([]byte(nil), chunk...)
		}
		values = append(values, value)
		offset += field.Width
	}
	return values, nil
}

// fieldReader walks a buffer field by field, following a layout.
//
// Asking for a field that does not match the layout is a programming error and panics.
type fieldReader struct {
	layout Layout
	buffer []byte
	index  int
	offset int
}

func newFieldReader(layout Layout, buffer []byte) *fieldReader {
	if len(buffer) < layout.Size() {
		panic(fmt.Sprintf("buffer of %d bytes is too small for a %d-byte layout", len(buffer), layout.Size()))
	}
	return &fieldReader{layout: layout, buffer: buffer}
}

func (r *fieldReader) next(kind FieldKind) []byte {
	if r.index >= len(r.layout) {
		panic("read past the end of the layout")
	}
	field := r.layout[r.index]
	if field.Kind != kind {
		panic(fmt.Sprintf("field %q: kind mismatch", field.Name))
	}
	chunk := r.buffer[r.offset : r.offset+field.Width]
	r.index++
	r.offset += field.Width
	return chunk
}

func (r *fieldReader) readUint8() uint8   { return r.next(FieldUint8)[0] }
func (r *fieldReader) readUint16() uint16 { return binary.LittleEndian.Uint16(r.next(FieldUint16)) }
func (r *fieldReader) readUint32() uint32 { return binary.LittleEndian.Uint32(r.next(FieldUint32)) }
func (r *fieldReader) readUint64() uint64 { return binary.LittleEndian.Uint64(r.next(FieldUint64)) }

// readRaw copies the next raw field into destination, which must be exactly as wide as the field.
func (r *fieldReader) readRaw(destination []byte) {
	chunk := r.next(FieldRaw)
	if len(chunk) != len(destination) {
		panic(fmt.Sprintf("field %q: width %d, destination %d", r.layout[r.index-1].Name, len(chunk), len(destination)))
	}
	copy(destination, chunk)
}

// readRecord reads exactly size bytes at offset.
//
// A short read becomes a TruncatedRecordError for the given location.
func readRecord(reader io.ReaderAt, offset int64, size int, location RecordLocation) ([]byte, error) {
	buffer := make([]byte, size)
	n, err := reader.ReadAt(buffer, offset)
	if n == size {
		return buffer, nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &TruncatedRecordError{
			RecordLocation: location,
			Offset:         offset,
			Want:           size,
			Got:            n,
		}
	}
	return nil, fmt.Errorf("Could not read %s at offset %d: %w", location, offset, err)
}
