package hikvision

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ReadNASInfo reads the top-level info file under root.
func ReadNASInfo(fs afero.Fs, root string, format *Format) (*NASInfo, error) {
	filename := filepath.Join(root, format.InfoFile)
	handle, err := fs.Open(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &MissingInfoFileError{Path: filename}
	}
	if err != nil {
		return nil, fmt.Errorf("Could not open NAS info file '%s': %w", filename, err)
	}
	defer handle.Close()

	buffer, err := readRecord(handle, 0, format.NASInfoSize, RecordLocation{
		Path:        filename,
		Record:      "NAS info",
		Directory:   -1,
		FileSlot:    -1,
		SegmentSlot: -1,
	})
	if err != nil {
		return nil, err
	}

	info := parseNASInfo(buffer)
	logger.Debugf("NAS info: serial: %q, MAC: %x, block size: %d, blocks: %d, data directories: %d", info.Serial(), info.MACAddr, info.BlockSize, info.BlockCount, info.DataDirs)
	return info, nil
}
