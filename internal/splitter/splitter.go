package splitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	conf "github.com/nba-highlights/frame-splitter/internal/config"
	"github.com/nba-highlights/frame-splitter/internal/frames"
)

// Fatal pipeline errors. Anything else that goes wrong during a run is
// contained and logged where it happens.
var (
	ErrDownload = errors.New("video download failed")
	ErrDecode   = errors.New("video decode failed")
)

type BlobStore interface {
	Download(ctx context.Context, bucket, key, destPath string) error
}

type FramePublisher interface {
	Publish(ctx context.Context, frame frames.Frame, jobKey string) error
}

type Notifier interface {
	Notify(ctx context.Context, jobKey string, frameCount int) error
}

// FrameSource is one non-restartable pass over a video's frames.
type FrameSource interface {
	Next() (frames.Frame, error)
	Close() error
}

type FrameOpener func(ctx context.Context, path string) (FrameSource, error)

// Pipeline downloads a video, streams its frames through the publisher and
// reports how many frames the video contained.
type Pipeline struct {
	store    BlobStore
	pub      FramePublisher
	notifier Notifier
	open     FrameOpener

	videoDir string
	frameDir string
}

func New(store BlobStore, pub FramePublisher, notifier Notifier, cfg *conf.FramesConfig) *Pipeline {
	open := func(ctx context.Context, path string) (FrameSource, error) {
		return frames.Open(ctx, cfg.FFmpegPath, path)
	}
	return NewWithOpener(store, pub, notifier, cfg, open)
}

func NewWithOpener(store BlobStore, pub FramePublisher, notifier Notifier, cfg *conf.FramesConfig, open FrameOpener) *Pipeline {
	return &Pipeline{
		store:    store,
		pub:      pub,
		notifier: notifier,
		open:     open,
		videoDir: cfg.VideoDir,
		frameDir: cfg.FrameDir,
	}
}

// Run executes one splitting run and returns the number of frames observed in
// the video. Per-frame upload failures do not stop the run and do not reduce
// the count; only a failed download or an undecodable container abort it.
func (p *Pipeline) Run(ctx context.Context, bucket, objectKey string) (int, error) {
	for _, dir := range []string{p.videoDir, p.frameDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create staging dir %q: %w", dir, err)
		}
	}

	videoPath := filepath.Join(p.videoDir, objectKey)

	log.Printf("[splitter] downloading object %q from bucket %q", objectKey, bucket)
	if err := p.store.Download(ctx, bucket, objectKey, videoPath); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrDownload, err)
	}
	log.Printf("[splitter] download of %q successful", objectKey)

	src, err := p.open(ctx, videoPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrDecode, err)
	}
	defer src.Close()

	jobKey := JobKey(objectKey)
	frameCount := 0

	log.Printf("[splitter] going through frames of %q", objectKey)
	for {
		frame, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A frame that cannot be read off the stream ends the sequence,
			// like a decoder reporting no more frames.
			log.Printf("[splitter] frame stream for %q ended early: %v", objectKey, err)
			break
		}

		frameCount++
		if err := p.pub.Publish(ctx, frame, jobKey); err != nil {
			log.Printf("[splitter] frame %d of %q not published: %v", frame.Ordinal, jobKey, err)
		}
	}

	return frameCount, nil
}

// Process runs the pipeline and, on success, emits the completion event
// exactly once. A failed emission is logged and does not fail the run.
func (p *Pipeline) Process(ctx context.Context, bucket, objectKey, jobKey string) (int, error) {
	frameCount, err := p.Run(ctx, bucket, objectKey)
	if err != nil {
		return 0, err
	}

	if err := p.notifier.Notify(ctx, jobKey, frameCount); err != nil {
		log.Printf("[splitter] completion event for %q failed: %v", jobKey, err)
	}

	return frameCount, nil
}

// JobKey derives the stable job identifier from a source object key: the
// portion before the first extension separator.
func JobKey(objectKey string) string {
	for i := 0; i < len(objectKey); i++ {
		if objectKey[i] == '.' {
			return objectKey[:i]
		}
	}
	return objectKey
}
