package hikvisionconv

import (
	"bytes"

	"github.com/nareix/joy4/codec/h264parser"
)

// VideoSize is the picture size declared by a stream's SPS.
type VideoSize struct {
	Width  int
	Height int
}

var annexBStartCode = []byte{0x00, 0x00, 0x01}

// ProbeH264 returns the largest picture size declared by any SPS in the data.
//
// The data may be a raw Annex B stream or a container that carries one; the
// scan starts at the first start code.
func ProbeH264(data []byte) (VideoSize, bool) {
	var size VideoSize

	start := bytes.Index(data, annexBStartCode)
	if start < 0 {
		logger.Debugf("No start code in %d bytes", len(data))
		return size, false
	}
	if start > 0 && data[start-1] == 0x00 {
		start--
	}

	nalus, _ := h264parser.SplitNALUs(data[start:])
	found := false
	for naluIndex, nalu := range nalus {
		if len(nalu) == 0 || nalu[0]&0x1f != 7 {
			continue
		}
		spsInfo, err := h264parser.ParseSPS(nalu)
		if err != nil {
			logger.Debugf("NALU %d: Could not parse SPS: %v", naluIndex, err)
			continue
		}
		logger.Debugf("NALU %d: profile_idc: %d, width: %d, height: %d", naluIndex, spsInfo.ProfileIdc, spsInfo.Width, spsInfo.Height)
		switch spsInfo.ProfileIdc {
		case 66, 77, 88, 100, 110, 122, 244: // These profiles actually encode real video.
			found = true
			if int(spsInfo.Width) > size.Width {
				size.Width = int(spsInfo.Width)
			}
			if int(spsInfo.Height) > size.Height {
				size.Height = int(spsInfo.Height)
			}
		}
	}
	logger.Debugf("Video dimensions: width: %d, height: %d", size.Width, size.Height)
	return size, found
}
