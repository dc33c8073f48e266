package hikvision

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutSizes(t *testing.T) {
	assert.Equal(t, 68, NASInfoLayout.Size())
	assert.Equal(t, 1280, IndexHeaderLayout.Size())
	assert.Equal(t, 32, FileRecordLayout.Size())
	assert.Equal(t, 80, SegmentRecordLayout.Size())

	require.NoError(t, DefaultFormat().Validate())
}

func TestFormatValidate(t *testing.T) {
	format := DefaultFormat()
	format.SegmentRecordSize = 64
	assert.Error(t, format.Validate())

	format = DefaultFormat()
	format.BlockSize = 0
	assert.Error(t, format.Validate())
}

func TestFormatSupportsVersion(t *testing.T) {
	assert.True(t, DefaultFormat().SupportsVersion(0))
	assert.True(t, DefaultFormat().SupportsVersion(7))

	format := DefaultFormat()
	format.Versions = version.MustConstraints(version.NewConstraint(">= 1, < 3"))
	assert.False(t, format.SupportsVersion(0))
	assert.True(t, format.SupportsVersion(2))
	assert.False(t, format.SupportsVersion(3))
}

func TestFormatPaths(t *testing.T) {
	format := DefaultFormat()
	assert.Equal(t, "datadir1/hiv00007.mp4", format.RecordingPath(1, 7, MediaVideo))
	assert.Equal(t, "datadir0/hiv00123.pic", format.RecordingPath(0, 123, MediaImage))
	assert.Equal(t, "datadir2/index00.bin", format.IndexPath(2, MediaVideo))
	assert.Equal(t, "datadir2/index00p.bin", format.IndexPath(2, MediaImage))
	assert.Equal(t, "datadir3/record_db_index00", format.RelationalIndexPath(3))
	assert.Equal(t, int64(1280+3*32), format.SegmentTableOffset(3))
}

func TestLayoutDecode(t *testing.T) {
	values, err := NASInfoLayout.Decode(testNASInfo("SERIAL", 3))
	require.NoError(t, err)
	require.Len(t, values, len(NASInfoLayout))

	assert.Equal(t, "serialNumber", values[0].Name)
	assert.True(t, bytes.HasPrefix(values[0].Raw, []byte("SERIAL")))
	assert.Equal(t, "f_bsize", values[4].Name)
	assert.Equal(t, 56, values[4].Offset)
	assert.Equal(t, uint64(4096), values[4].Uint)
	assert.Equal(t, "DataDirs", values[6].Name)
	assert.Equal(t, uint64(3), values[6].Uint)
	assert.Equal(t, "3", values[6].String())
}

func TestLayoutDecodeTruncated(t *testing.T) {
	_, err := SegmentRecordLayout.Decode(make([]byte, 79))
	require.Error(t, err)

	var truncated *TruncatedRecordError
	require.True(t, errors.As(err, &truncated))
	assert.Equal(t, 80, truncated.Want)
	assert.Equal(t, 79, truncated.Got)
}

func TestUnpackTime(t *testing.T) {
	const seconds = 1566415000
	packed := uint64(0x4000000000000000) | seconds

	assert.Equal(t, time.Unix(seconds, 0).UTC(), UnpackTime(packed))
	assert.Equal(t, 2019, UnpackTime(packed).Year())

	// Without the mask, the flag bits push the year out of any plausible range.
	unmasked := time.Unix(int64(packed), 0).UTC()
	assert.False(t, unmasked.Year() >= 2000 && unmasked.Year() <= time.Now().Year())
}

func TestParseMediaType(t *testing.T) {
	for _, value := range []string{"video", "mp4", "VIDEO"} {
		media, err := ParseMediaType(value)
		require.NoError(t, err)
		assert.Equal(t, MediaVideo, media)
	}
	for _, value := range []string{"image", "img", "pic"} {
		media, err := ParseMediaType(value)
		require.NoError(t, err)
		assert.Equal(t, MediaImage, media)
	}

	_, err := ParseMediaType("audio")
	assert.Error(t, err)
}
