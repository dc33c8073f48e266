package main

import (
	"fmt"
	"os"

	"github.com/bkbilly/libHikvision/hikvision"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Printf("Usage: %s <root> [video|image]\n", os.Args[0])
		os.Exit(1)
	}
	root := os.Args[1]

	media := hikvision.MediaVideo
	if len(os.Args) > 2 {
		var err error
		media, err = hikvision.ParseMediaType(os.Args[2])
		if err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
	}

	session, err := hikvision.Open(root, media, hikvision.WithContinueOnError(true))
	if err != nil {
		fmt.Printf("Could not open '%s': %v\n", root, err)
		os.Exit(1)
	}

	info := session.Info()
	fmt.Printf("Serial number: %s\n", info.Serial())
	fmt.Printf("Data directories: %d\n", info.DataDirs)

	for _, source := range session.Sources() {
		fmt.Printf("Directory: %d\n", source.Directory())
		segments, err := source.ListSegments(hikvision.TimeRange{})
		if err != nil {
			fmt.Printf("   Error: %v\n", err)
			continue
		}
		fmt.Printf("   Index: %s\n", source.Encoding())
		fmt.Printf("   Segments: %d\n", len(segments))
		if len(segments) > 0 {
			first := segments[0]
			last := segments[len(segments)-1]
			for _, segment := range segments {
				if segment.StartTime.Before(first.StartTime) {
					first = segment
				}
				if segment.EndTime.After(last.EndTime) {
					last = segment
				}
			}
			fmt.Printf("   Recorded: %s - %s\n", first.StartTime, last.EndTime)
		}
	}
}
