package frames

import (
	"bufio"
	"fmt"
	"io"
)

const (
	markerPrefix = 0xff
	markerSOI    = 0xd8 // start of image
	markerEOI    = 0xd9 // end of image
)

// readJPEG extracts the next complete JPEG image from an MJPEG byte stream.
// Bytes before the SOI marker are skipped. A clean end of stream before any
// image data is io.EOF; a stream that ends mid-image is an error.
//
// Scanning for the EOI byte pair is sound for baseline JPEG: inside
// entropy-coded data a 0xff byte is always followed by 0x00 or a restart
// marker, never 0xd9.
func readJPEG(br *bufio.Reader) ([]byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return nil, io.EOF
		}
		if b != markerPrefix {
			continue
		}
		next, err := br.Peek(1)
		if err != nil {
			return nil, io.EOF
		}
		if next[0] == markerSOI {
			_, _ = br.ReadByte()
			break
		}
	}

	img := []byte{markerPrefix, markerSOI}
	prev := byte(0)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("truncated image: %w", io.ErrUnexpectedEOF)
		}
		img = append(img, b)
		if prev == markerPrefix && b == markerEOI {
			return img, nil
		}
		prev = b
	}
}
