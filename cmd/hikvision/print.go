package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bkbilly/libHikvision/hexline"
	"github.com/bkbilly/libHikvision/hikvision"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

// timeRangeFlags holds the time range flags shared by the segment commands.
type timeRangeFlags struct {
	from     string
	to       string
	fromUnix int64
	toUnix   int64
}

func (f *timeRangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Only segments starting after this time")
	cmd.Flags().StringVar(&f.to, "to", "", "Only segments starting before this time")
	cmd.Flags().Int64Var(&f.fromUnix, "from-unix", 0, "Only segments starting after this Unix time; wins over --from")
	cmd.Flags().Int64Var(&f.toUnix, "to-unix", 0, "Only segments starting before this Unix time; wins over --to")
}

func (f *timeRangeFlags) timeRange(cmd *cobra.Command) (hikvision.TimeRange, error) {
	var timeRange hikvision.TimeRange
	var err error
	if f.from != "" {
		timeRange.From, err = parseTime(f.from)
		if err != nil {
			return timeRange, err
		}
	}
	if f.to != "" {
		timeRange.To, err = parseTime(f.to)
		if err != nil {
			return timeRange, err
		}
	}
	if cmd.Flags().Changed("from-unix") {
		value := f.fromUnix
		timeRange.FromUnix = &value
	}
	if cmd.Flags().Changed("to-unix") {
		value := f.toUnix
		timeRange.ToUnix = &value
	}
	return timeRange, nil
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.ParseInLocation(timeLayout, value, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("Could not parse time %q (expected %q or RFC 3339)", value, timeLayout)
}

func formatSegment(segment *hikvision.Segment) string {
	return fmt.Sprintf("%-28s %5v %10d %10d   %s - %s (type %d, %s)",
		segment.Path,
		segment.Duration.Seconds(),
		segment.StartOffset,
		segment.EndOffset,
		segment.StartTime.Format(timeLayout),
		segment.EndTime.Format(timeLayout),
		segment.Type,
		segment.Encoding,
	)
}

func printNASInfo(info *hikvision.NASInfo) {
	fmt.Printf("Serial number: %s\n", info.Serial())
	fmt.Printf("MAC address: %s\n", info.MAC())
	fmt.Printf("Block size: %d\n", info.BlockSize)
	fmt.Printf("Blocks: %d\n", info.BlockCount)
	fmt.Printf("Data directories: %d\n", info.DataDirs)
}

// dumpRecord prints one record of the info file or a binary index, field by field.
func dumpRecord(root string, media hikvision.MediaType, record string, numbers []int, width int) error {
	format := hikvision.DefaultFormat()
	fs := afero.NewOsFs()

	need := func(count int) error {
		if len(numbers) != count {
			return fmt.Errorf("%s needs %d numbers, got %d", record, count, len(numbers))
		}
		return nil
	}

	var filename string
	var offset int64
	var layout hikvision.Layout
	switch record {
	case "info":
		if err := need(0); err != nil {
			return err
		}
		filename = filepath.Join(root, format.InfoFile)
		layout = hikvision.NASInfoLayout
	case "header":
		if err := need(1); err != nil {
			return err
		}
		filename = filepath.Join(root, format.IndexPath(numbers[0], media))
		layout = hikvision.IndexHeaderLayout
	case "file":
		if err := need(2); err != nil {
			return err
		}
		filename = filepath.Join(root, format.IndexPath(numbers[0], media))
		offset = int64(format.HeaderSize) + int64(numbers[1])*int64(format.FileRecordSize)
		layout = hikvision.FileRecordLayout
	case "segment":
		if err := need(3); err != nil {
			return err
		}
		index := hikvision.NewBinaryIndex(fs, root, numbers[0], media, format)
		header, err := index.ReadHeader()
		if err != nil {
			return err
		}
		filename = index.Path()
		slot := int64(numbers[1])*int64(format.SegmentsPerFile) + int64(numbers[2])
		offset = format.SegmentTableOffset(header.AVFiles) + slot*int64(format.SegmentRecordSize)
		layout = hikvision.SegmentRecordLayout
	default:
		return fmt.Errorf("Unknown record: %s", record)
	}

	handle, err := fs.Open(filename)
	if err != nil {
		return fmt.Errorf("Could not open '%s': %w", filename, err)
	}
	defer handle.Close()

	buffer := make([]byte, layout.Size())
	n, err := handle.ReadAt(buffer, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("Could not read '%s': %w", filename, err)
	}
	buffer = buffer[:n]

	fmt.Printf("File: %s\n", filename)
	fmt.Printf("Record: %s at offset %d (%d bytes)\n", record, offset, layout.Size())
	values, err := layout.Decode(buffer)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}
	for _, value := range values {
		text := value.String()
		if value.Kind == hikvision.FieldRaw && value.Width > 32 {
			text = fmt.Sprintf("(%d bytes)", value.Width)
		}
		if record == "segment" && (value.Name == "startTime" || value.Name == "endTime") {
			text += " = " + hikvision.UnpackTime(value.Uint).Format(timeLayout)
		}
		fmt.Printf("   %-24s 0x%04x %s\n", value.Name, value.Offset, text)
	}

	return hexline.Write(os.Stdout, buffer, offset, width)
}
