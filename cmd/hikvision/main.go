package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/bkbilly/libHikvision/hikvision"
	"github.com/bkbilly/libHikvision/hikvisionconv"
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	debugValue := false

	config := viper.New()
	config.SetEnvPrefix("HIKVISION")
	config.AutomaticEnv()

	var rootCommand = &cobra.Command{
		Use:   "hikvision",
		Short: "Hikvision NVR recording browser",
		Long: `
This tool reads the index of a Hikvision NVR recording directory (a mounted disk or NAS share) and extracts the recorded segments.

The root directory is the one holding "info.bin" and the "datadir<N>" directories.
It can also be set with HIKVISION_ROOT; the media type with HIKVISION_MEDIA.
`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugValue {
				hikvision.SetLogLevel(logrus.DebugLevel)
				hikvisionconv.SetLogLevel(logrus.DebugLevel)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(1)
		},
	}
	rootCommand.PersistentFlags().BoolVar(&debugValue, "debug", false, "Enable debug output")
	rootCommand.PersistentFlags().String("root", ".", "The recording root directory")
	rootCommand.PersistentFlags().String("media", "video", "The media type (can be one of: video, image)")
	rootCommand.PersistentFlags().Int("concurrency", 1, "The number of data directories to scan at once")
	rootCommand.PersistentFlags().Bool("continue-on-error", false, "Skip data directories that cannot be read")
	for _, name := range []string{"root", "media", "concurrency", "continue-on-error"} {
		config.BindPFlag(name, rootCommand.PersistentFlags().Lookup(name))
	}

	{
		dumpValue := false
		var infoCommand = &cobra.Command{
			Use:   "info",
			Short: "Show the NAS information and the index of every data directory",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				session := openSession(config)
				printNASInfo(session.Info())
				for _, source := range session.Sources() {
					encoding := source.Encoding()
					if encoding == "" {
						encoding = "unavailable"
					}
					fmt.Printf("Directory %d: %s\n", source.Directory(), encoding)
				}

				if dumpValue {
					spew.Dump(session.Info())
				}
			},
		}
		infoCommand.Flags().BoolVar(&dumpValue, "dump", false, "Dump out everything about the NAS info")
		rootCommand.AddCommand(infoCommand)
	}

	{
		dumpValue := false
		var filesCommand = &cobra.Command{
			Use:   "files",
			Short: "List the recording files of every binary index",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				session := openSession(config)
				files, err := session.ListFiles()
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					if files == nil {
						os.Exit(1)
					}
				}
				fmt.Printf("Files: (%d)\n", len(files))
				for _, file := range files {
					fmt.Printf("   Directory %d, slot %d: file %d, channel %d, segments: %d, %s - %s\n", file.Directory, file.Slot, file.FileNo, file.Channel, file.SegRecNums, file.StartDateTime().Format(timeLayout), file.EndDateTime().Format(timeLayout))
					if dumpValue {
						spew.Dump(file)
					}
				}
			},
		}
		filesCommand.Flags().BoolVar(&dumpValue, "dump", false, "Dump out everything about each file")
		rootCommand.AddCommand(filesCommand)
	}

	{
		dumpValue := false
		probeValue := false
		var timeRange timeRangeFlags
		var listCommand = &cobra.Command{
			Use:   "list",
			Short: "List the recorded segments, ordered by start time",
			Long: `
Times can be given as "2006-01-02 15:04:05" (UTC) or RFC 3339, or as Unix seconds.
The binary index excludes segments that start exactly at a bound; the relational index includes them.
`,
			Args: cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				session := openSession(config)
				timeline := listTimeline(cmd, session, &timeRange)

				fmt.Printf("Segments: (%d)\n", len(timeline))
				for index, segment := range timeline {
					fmt.Printf("   %d. %s\n", index, formatSegment(segment))
					if probeValue && session.Media() == hikvision.MediaVideo {
						var buffer bytes.Buffer
						if _, err := session.ExtractSegment(segment, &buffer); err != nil {
							fmt.Printf("      Error: %v\n", err)
						} else if size, ok := hikvisionconv.ProbeH264(buffer.Bytes()); ok {
							fmt.Printf("      Video: %dx%d\n", size.Width, size.Height)
						} else {
							fmt.Printf("      Video: unknown size\n")
						}
					}
					if dumpValue {
						spew.Dump(segment)
					}
				}
			},
		}
		listCommand.Flags().BoolVar(&dumpValue, "dump", false, "Dump out everything about each segment")
		listCommand.Flags().BoolVar(&probeValue, "probe", false, "Read each video segment to find its picture size")
		timeRange.register(listCommand)
		rootCommand.AddCommand(listCommand)
	}

	{
		var timeRange timeRangeFlags
		var extractCommand = &cobra.Command{
			Use:   "extract <segment> <output-file>",
			Short: "Copy the raw bytes of a segment to a file",
			Long: `
The segment is its number in the output of "list" (with the same time range flags).
Use "-" as the output file to write to standard output.
`,
			Args: cobra.ExactArgs(2),
			Run: func(cmd *cobra.Command, args []string) {
				session := openSession(config)
				segment := selectSegment(listTimeline(cmd, session, &timeRange), args[0])

				var out io.Writer = os.Stdout
				if args[1] != "-" {
					handle, err := os.Create(args[1])
					if err != nil {
						fmt.Printf("Could not create output file: %v\n", err)
						os.Exit(1)
					}
					defer handle.Close()
					out = handle
				}

				written, err := session.ExtractSegment(segment, out)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}
				logrus.Infof("Wrote %d bytes from %s", written, session.Path(segment))
			},
		}
		timeRange.register(extractCommand)
		rootCommand.AddCommand(extractCommand)
	}

	{
		var exportCommand = &cobra.Command{
			Use:   "export",
			Short: "Export segments as regular media files",
			Run: func(cmd *cobra.Command, args []string) {
				cmd.Help()
				os.Exit(1)
			},
		}
		exportCommand.PersistentFlags().String("ffmpeg", "ffmpeg", "The ffmpeg binary (or HIKVISION_FFMPEG)")
		config.BindPFlag("ffmpeg", exportCommand.PersistentFlags().Lookup("ffmpeg"))
		cacheDirectory := os.TempDir()
		exportCommand.PersistentFlags().StringVar(&cacheDirectory, "cache-dir", cacheDirectory, "The directory that holds the exported files")
		rootCommand.AddCommand(exportCommand)

		makeExporter := func() *hikvisionconv.Exporter {
			return &hikvisionconv.Exporter{
				Session:  openSession(config),
				FFmpeg:   hikvisionconv.NewFFmpeg(config.GetString("ffmpeg")),
				CacheDir: cacheDirectory,
			}
		}

		{
			resolution := ""
			var timeRange timeRangeFlags
			var exportMP4Command = &cobra.Command{
				Use:   "mp4 <segment>",
				Short: "Export a video segment as an MP4 file",
				Args:  cobra.ExactArgs(1),
				Run: func(cmd *cobra.Command, args []string) {
					exporter := makeExporter()
					exporter.Resolution = resolution
					segment := selectSegment(listTimeline(cmd, exporter.Session, &timeRange), args[0])

					filename, err := exporter.ExportMP4(context.Background(), segment)
					if err != nil {
						fmt.Printf("Error: %v\n", err)
						os.Exit(1)
					}
					fmt.Printf("%s\n", filename)
				},
			}
			exportMP4Command.Flags().StringVar(&resolution, "resolution", resolution, "Re-encode at this size (for example, 1280x720); by default the video is copied")
			timeRange.register(exportMP4Command)
			exportCommand.AddCommand(exportMP4Command)
		}

		{
			resolution := hikvisionconv.DefaultThumbnailResolution
			var timeRange timeRangeFlags
			var exportJPGCommand = &cobra.Command{
				Use:   "jpg <segment>",
				Short: "Export a thumbnail from the middle of a video segment",
				Args:  cobra.ExactArgs(1),
				Run: func(cmd *cobra.Command, args []string) {
					exporter := makeExporter()
					exporter.ThumbnailResolution = resolution
					segment := selectSegment(listTimeline(cmd, exporter.Session, &timeRange), args[0])

					filename, err := exporter.ExportJPG(context.Background(), segment)
					if err != nil {
						fmt.Printf("Error: %v\n", err)
						os.Exit(1)
					}
					fmt.Printf("%s\n", filename)
				},
			}
			exportJPGCommand.Flags().StringVar(&resolution, "resolution", resolution, "The thumbnail size")
			timeRange.register(exportJPGCommand)
			exportCommand.AddCommand(exportJPGCommand)
		}

		{
			var timeRange timeRangeFlags
			var exportPictureCommand = &cobra.Command{
				Use:   "picture <segment> <output-file>",
				Short: "Export the JPEG image of a picture segment (use --media image)",
				Args:  cobra.ExactArgs(2),
				Run: func(cmd *cobra.Command, args []string) {
					session := openSession(config)
					segment := selectSegment(listTimeline(cmd, session, &timeRange), args[0])

					picture, err := hikvisionconv.ExtractPicture(session, segment)
					if err != nil {
						fmt.Printf("Error: %v\n", err)
						os.Exit(1)
					}
					if err := os.WriteFile(args[1], picture, 0o644); err != nil {
						fmt.Printf("Could not write output file: %v\n", err)
						os.Exit(1)
					}
				},
			}
			timeRange.register(exportPictureCommand)
			exportCommand.AddCommand(exportPictureCommand)
		}
	}

	{
		width := 32
		var dumpCommand = &cobra.Command{
			Use:   "dump <info|header|file|segment> [directory] [file-slot] [segment-slot]",
			Short: "Show the raw fields and bytes of one index record",
			Long: `
This decodes a single record straight from disk, field by field, and prints its bytes.

   dump info
   dump header <directory>
   dump file <directory> <file-slot>
   dump segment <directory> <file-slot> <segment-slot>
`,
			Args: cobra.RangeArgs(1, 4),
			Run: func(cmd *cobra.Command, args []string) {
				numbers := []int{}
				for _, arg := range args[1:] {
					value, err := strconv.Atoi(arg)
					if err != nil {
						fmt.Printf("Invalid number: %s\n", arg)
						os.Exit(1)
					}
					numbers = append(numbers, value)
				}
				media, err := hikvision.ParseMediaType(config.GetString("media"))
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}

				err = dumpRecord(config.GetString("root"), media, args[0], numbers, width)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}
			},
		}
		dumpCommand.Flags().IntVar(&width, "width", width, "The number of bytes per line")
		rootCommand.AddCommand(dumpCommand)
	}

	err := rootCommand.Execute()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func openSession(config *viper.Viper) *hikvision.Session {
	media, err := hikvision.ParseMediaType(config.GetString("media"))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	session, err := hikvision.Open(
		config.GetString("root"),
		media,
		hikvision.WithConcurrency(config.GetInt("concurrency")),
		hikvision.WithContinueOnError(config.GetBool("continue-on-error")),
	)
	if err != nil {
		fmt.Printf("Could not open %s: %v\n", config.GetString("root"), err)
		os.Exit(1)
	}
	return session
}

// listTimeline returns the timeline, exiting on errors unless some segments could still be read.
func listTimeline(cmd *cobra.Command, session *hikvision.Session, flags *timeRangeFlags) []*hikvision.Segment {
	timeRange, err := flags.timeRange(cmd)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	timeline, err := session.ListTimeline(timeRange)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if timeline == nil {
			os.Exit(1)
		}
	}
	return timeline
}

func selectSegment(timeline []*hikvision.Segment, value string) *hikvision.Segment {
	index, err := strconv.Atoi(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid segment number: %s\n", value)
		os.Exit(1)
	}
	if index < 0 || index >= len(timeline) {
		fmt.Fprintf(os.Stderr, "Invalid segment number: %d (there are %d segments)\n", index, len(timeline))
		os.Exit(1)
	}
	return timeline[index]
}
