package hikvisionconv

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/bkbilly/libHikvision/hikvision"
)

var jpegStart = []byte{0xff, 0xd8, 0xff}

// jpegScanner copies JPEG markers from a reader until the end of the image.
type jpegScanner struct {
	reader *bufio.Reader
	result []byte
}

func (s *jpegScanner) readByte() (byte, error) {
	value, err := s.reader.ReadByte()
	if err != nil {
		return 0, err
	}
	s.result = append(s.result, value)
	return value, nil
}

func (s *jpegScanner) readBytes(count int) ([]byte, error) {
	buffer := make([]byte, count)
	n, err := io.ReadFull(s.reader, buffer)
	if err != nil {
		return nil, fmt.Errorf("read %d of %d bytes: %w", n, count, err)
	}
	s.result = append(s.result, buffer...)
	return buffer, nil
}

// readPayload copies a marker's length-prefixed payload.
func (s *jpegScanner) readPayload() error {
	buffer, err := s.readBytes(2)
	if err != nil {
		return err
	}
	length := (int(buffer[0]) << 8) + int(buffer[1])
	if length < 2 {
		return fmt.Errorf("invalid segment length: %d", length)
	}
	_, err = s.readBytes(length - 2)
	return err
}

// readEntropyCoded copies scan data up to and including the end-of-image marker.
func (s *jpegScanner) readEntropyCoded() error {
	lastWasFF := false
	for {
		value, err := s.readByte()
		if err != nil {
			return err
		}
		if lastWasFF && value == 0xd9 {
			return nil
		}
		lastWasFF = value == 0xff
	}
}

// ScanJPEG reads one complete JPEG image from the reader, which must be positioned at its first marker.
func ScanJPEG(reader io.Reader) ([]byte, error) {
	s := &jpegScanner{reader: bufio.NewReader(reader)}

	for {
		value, err := s.readByte()
		if err != nil {
			return nil, err
		}
		if value != 0xff {
			return nil, fmt.Errorf("expected ff at byte %d, got %x", len(s.result)-1, value)
		}

		value, err = s.readByte()
		if err != nil {
			return nil, err
		}
		for value == 0xff {
			value, err = s.readByte()
			if err != nil {
				return nil, err
			}
		}

		switch value {
		case 0x00:
			// Stuffed byte.
		case 0xd9:
			// End of image; no payload.
			return s.result, nil
		case 0xd8, 0xd0, 0xd1, 0xd2, 0xd3, 0xd4, 0xd5, 0xd6, 0xd7:
			// No payload.
		case 0xdd:
			if _, err := s.readBytes(4); err != nil {
				return nil, err
			}
		case 0xda:
			// Start of scan; header, then data until ffd9.
			if err := s.readPayload(); err != nil {
				return nil, err
			}
			if err := s.readEntropyCoded(); err != nil {
				return nil, err
			}
			return s.result, nil
		default:
			if err := s.readPayload(); err != nil {
				return nil, err
			}
		}
	}
}

// FindJPEG returns the first complete JPEG image found in the data.
func FindJPEG(data []byte) ([]byte, error) {
	offset := 0
	for {
		index := bytes.Index(data[offset:], jpegStart)
		if index < 0 {
			return nil, fmt.Errorf("Could not find a JPEG image in %d bytes", len(data))
		}
		start := offset + index
		found, err := ScanJPEG(bytes.NewReader(data[start:]))
		if err == nil {
			logger.Debugf("Found a JPEG image of %d bytes at offset %d", len(found), start)
			return found, nil
		}
		logger.Debugf("Offset %d: Could not scan JPEG: %v", start, err)
		offset = start + 1
	}
}

// ExtractPicture returns the image stored in a picture segment.
func ExtractPicture(session *hikvision.Session, segment *hikvision.Segment) ([]byte, error) {
	var buffer bytes.Buffer
	if _, err := session.ExtractSegment(segment, &buffer); err != nil {
		return nil, err
	}
	picture, err := FindJPEG(buffer.Bytes())
	if err != nil {
		return nil, fmt.Errorf("Could not extract picture from %s: %w", session.Path(segment), err)
	}
	return picture, nil
}
