package hikvision

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// Session is an opened recorder export: the NAS info plus one index source per data directory.
type Session struct {
	fs              afero.Fs
	root            string
	media           MediaType
	format          *Format
	concurrency     int
	continueOnError bool

	info    *NASInfo
	sources []IndexSource
}

// Option configures Open.
type Option func(*Session)

// WithFs reads through the given file system instead of the OS one.
//
// The relational index is an SQLite store and is always opened from the OS
// file system, so a directory that only has "record_db_index00" can be read
// only when fs is backed by the OS paths.
func WithFs(fs afero.Fs) Option {
	return func(s *Session) {
		s.fs = fs
	}
}

// WithFormat overrides the default on-disk layout.
func WithFormat(format *Format) Option {
	return func(s *Session) {
		s.format = format
	}
}

// WithConcurrency sets how many data directories are scanned at once.
func WithConcurrency(n int) Option {
	return func(s *Session) {
		s.concurrency = n
	}
}

// WithContinueOnError keeps going past directories that cannot be read.
func WithContinueOnError(enabled bool) Option {
	return func(s *Session) {
		s.continueOnError = enabled
	}
}

// Open reads the NAS info under root and probes every data directory for its index.
func Open(root string, media MediaType, options ...Option) (*Session, error) {
	s := &Session{
		fs:          afero.NewOsFs(),
		root:        root,
		media:       media,
		format:      DefaultFormat(),
		concurrency: 1,
	}
	for _, option := range options {
		option(s)
	}

	if err := s.format.Validate(); err != nil {
		return nil, err
	}

	s.checkPaths()

	info, err := ReadNASInfo(s.fs, s.root, s.format)
	if err != nil {
		return nil, err
	}
	s.info = info

	for directory := 0; directory < int(info.DataDirs); directory++ {
		source, err := ProbeSource(s.fs, s.root, directory, s.media, s.format)
		if err != nil {
			if !s.continueOnError {
				return nil, &DirectoryError{Directory: directory, Err: err}
			}
			logger.Warnf("Directory %d: %v", directory, err)
			source = &unavailableSource{directory: directory, err: err}
		}
		s.sources = append(s.sources, source)
	}

	logger.Debugf("Opened %s (%s): %d data directories", s.root, s.media, len(s.sources))
	return s, nil
}

// checkPaths logs the expected paths that are not there.
func (s *Session) checkPaths() {
	for _, name := range []string{s.root, filepath.Join(s.root, s.format.InfoFile)} {
		exists, err := afero.Exists(s.fs, name)
		if err != nil {
			logger.Warnf("Could not check path %s: %v", name, err)
			continue
		}
		if !exists {
			logger.Warnf("Path not found: %s", name)
		}
	}
}

// Root returns the root path of the export.
func (s *Session) Root() string {
	return s.root
}

// Media returns the media type the session reads.
func (s *Session) Media() MediaType {
	return s.media
}

// Format returns the on-disk layout in use.
func (s *Session) Format() *Format {
	return s.format
}

// Info returns the NAS info read at open time.
func (s *Session) Info() *NASInfo {
	return s.info
}

// Sources returns the index source of every data directory, in directory order.
func (s *Session) Sources() []IndexSource {
	return s.sources
}

// ListTimeline returns the segments of every directory ordered by start time.
func (s *Session) ListTimeline(timeRange TimeRange) ([]*Segment, error) {
	return BuildTimeline(s.sources, timeRange, TimelineOptions{
		Concurrency:     s.concurrency,
		ContinueOnError: s.continueOnError,
	})
}

// ListFiles returns the used file table entries of every binary index.
//
// Relational directories have no file table and are skipped.
func (s *Session) ListFiles() ([]*FileRecord, error) {
	files := []*FileRecord{}
	var failures []error
	for _, source := range s.sources {
		index, ok := source.(*BinaryIndex)
		if !ok {
			logger.Debugf("Directory %d: no file table (%s)", source.Directory(), source.Encoding())
			continue
		}
		records, err := index.ReadFiles()
		if err != nil {
			err = &DirectoryError{Directory: index.Directory(), Err: err}
			if !s.continueOnError {
				return nil, err
			}
			logger.Warnf("%v", err)
			failures = append(failures, err)
			continue
		}
		files = append(files, records...)
	}
	if len(failures) > 0 {
		return files, errors.Join(failures...)
	}
	return files, nil
}

// Path returns the recording file of a segment, including the root.
func (s *Session) Path(segment *Segment) string {
	return filepath.Join(s.root, segment.Path)
}

// ExtractSegment writes the segment's bytes to w.
func (s *Session) ExtractSegment(segment *Segment, w io.Writer) (int64, error) {
	if segment == nil {
		return 0, fmt.Errorf("Could not extract: no segment")
	}
	located := *segment
	located.Path = s.Path(segment)
	return Extract(s.fs, &located, w, s.format)
}
