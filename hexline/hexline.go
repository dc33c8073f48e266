// Package hexline prints binary data as pairs of lines: the printable
// characters, then the hex bytes, each labelled with its file offset.
package hexline

import (
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// DefaultWidth is the number of bytes per line pair when no width is given.
const DefaultWidth = 32

// Print writes the dump to standard output.
func Print(data []byte, base int64, width int) error {
	return Write(os.Stdout, data, base, width)
}

// Write dumps data, labelling each line pair with base plus the position in data.
func Write(out io.Writer, data []byte, base int64, width int) error {
	if width <= 0 {
		width = DefaultWidth
	}

	for start := 0; start < len(data); start += width {
		end := min(start+width, len(data))
		chunk := data[start:end]
		for line := 0; line < 2; line++ {
			if _, err := fmt.Fprintf(out, "0x%06x: ", base+int64(start)); err != nil {
				return err
			}
			for _, currentByte := range chunk {
				var err error
				switch line {
				case 0:
					if currentByte < ' ' || currentByte > '~' {
						_, err = io.WriteString(out, "..")
					} else {
						_, err = fmt.Fprintf(out, " %c", currentByte)
					}
				case 1:
					_, err = fmt.Fprintf(out, "%02x", currentByte)
				}
				if err != nil {
					return err
				}
			}
			if _, err := io.WriteString(out, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteRegion dumps length bytes of the reader starting at offset.
//
// A region that runs past the end of the reader is cut short. A length of 0 or less means "to the end".
func WriteRegion(out io.Writer, reader io.ReaderAt, offset int64, length int, width int) error {
	if length <= 0 {
		var data []byte
		buffer := make([]byte, 64*1024)
		position := offset
		for {
			n, err := reader.ReadAt(buffer, position)
			data = append(data, buffer[:n]...)
			position += int64(n)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				log.Errorf("Could not read at offset %d: %v", position, err)
				return err
			}
		}
		return Write(out, data, offset, width)
	}

	data := make([]byte, length)
	n, err := reader.ReadAt(data, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		log.Errorf("Could not read at offset %d: %v", offset, err)
		return err
	}
	if n < length {
		log.Debugf("Only %d of %d bytes available at offset %d", n, length, offset)
	}
	return Write(out, data[:n], offset, width)
}
