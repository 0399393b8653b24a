package frames

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Frame is one decoded video frame. Ordinals are 1-based and gap-free within a
// single Source; Data holds the JPEG bytes as emitted by the decoder.
type Frame struct {
	Ordinal int
	Data    []byte
}

// Source produces the frames of one video file in presentation order. The
// sequence is finite and not restartable: once exhausted or abandoned, a new
// Open is required to iterate again. Close must be called on every exit path.
type Source struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	br     *bufio.Reader
	stderr bytes.Buffer

	pending []byte // first frame, read eagerly during Open
	ordinal int
	closed  bool
}

// Open starts the decoder for the video at path. It reads the first frame
// before returning, so a file that cannot be read or decoded as a video
// container fails here rather than on the first Next.
func Open(ctx context.Context, ffmpegPath, path string) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open video %q: %w", path, err)
	}

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "image2pipe", "-c:v", "mjpeg", "-q:v", "2",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	s := &Source{
		cmd:    cmd,
		stdout: stdout,
		br:     bufio.NewReaderSize(stdout, 1<<16),
	}
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start decoder: %w", err)
	}

	if err := s.prime(); err != nil {
		// No frame at all means the container itself is unreadable.
		_ = s.Close()
		return nil, fmt.Errorf("could not decode video %q: %s", path, s.decoderError())
	}

	return s, nil
}

// newStreamSource wraps a raw MJPEG stream. Open wires the same source to the
// decoder process; this path carries no process to release.
func newStreamSource(r io.Reader) (*Source, error) {
	s := &Source{br: bufio.NewReaderSize(r, 1<<16)}
	if err := s.prime(); err != nil {
		return nil, fmt.Errorf("could not decode stream: %w", err)
	}
	return s, nil
}

// prime reads the first image eagerly so construction fails when the stream
// yields no frames at all.
func (s *Source) prime() error {
	first, err := readJPEG(s.br)
	if err != nil {
		return err
	}
	s.pending = first
	return nil
}

// Next returns the next frame in presentation order, or io.EOF once the
// sequence is exhausted.
func (s *Source) Next() (Frame, error) {
	var data []byte
	if s.pending != nil {
		data = s.pending
		s.pending = nil
	} else {
		var err error
		data, err = readJPEG(s.br)
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		if err != nil {
			return Frame{}, fmt.Errorf("read frame %d: %w", s.ordinal+1, err)
		}
	}

	s.ordinal++
	return Frame{Ordinal: s.ordinal, Data: data}, nil
}

// Close releases the decoder process and its pipe. Safe to call more than
// once, and on a source abandoned before exhaustion.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.stdout != nil {
		_ = s.stdout.Close()
	}
	if s.cmd != nil {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
	}
	return nil
}

func (s *Source) decoderError() string {
	msg := strings.TrimSpace(s.stderr.String())
	if msg == "" {
		msg = "decoder produced no frames"
	}
	return msg
}
