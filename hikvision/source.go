package hikvision

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// IndexSource lists the segments of one data directory.
type IndexSource interface {
	Directory() int
	Encoding() Encoding
	// ListSegments returns the directory's segments that fall within the time range.
	ListSegments(timeRange TimeRange) ([]*Segment, error)
}

// ProbeSource picks the index encoding of a data directory.
//
// The binary index for the media type wins over the relational index.
func ProbeSource(fs afero.Fs, root string, directory int, media MediaType, format *Format) (IndexSource, error) {
	binaryPath := format.IndexPath(directory, media)
	exists, err := afero.Exists(fs, filepath.Join(root, binaryPath))
	if err != nil {
		return nil, fmt.Errorf("Could not check for '%s': %w", binaryPath, err)
	}
	if exists {
		logger.Debugf("Directory %d: using binary index %s", directory, binaryPath)
		return NewBinaryIndex(fs, root, directory, media, format), nil
	}

	relationalPath := format.RelationalIndexPath(directory)
	exists, err = afero.Exists(fs, filepath.Join(root, relationalPath))
	if err != nil {
		return nil, fmt.Errorf("Could not check for '%s': %w", relationalPath, err)
	}
	if exists {
		logger.Debugf("Directory %d: using relational index %s", directory, relationalPath)
		return NewRelationalIndex(root, directory, media, format), nil
	}

	logger.Warnf("Path not found: %s", filepath.Join(root, binaryPath))
	return nil, &IndexNotFoundError{
		Directory: directory,
		Tried:     []string{binaryPath, relationalPath},
	}
}

// unavailableSource stands in for a directory whose index could not be probed.
type unavailableSource struct {
	directory int
	err       error
}

func (u *unavailableSource) Directory() int     { return u.directory }
func (u *unavailableSource) Encoding() Encoding { return "" }

func (u *unavailableSource) ListSegments(TimeRange) ([]*Segment, error) {
	return nil, u.err
}
