package publisher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	conf "github.com/nba-highlights/frame-splitter/internal/config"
	"github.com/nba-highlights/frame-splitter/internal/frames"
)

type BlobStore interface {
	Upload(ctx context.Context, bucket, key, contentType string, payload []byte, metadata map[string]string) error
}

type Encoder interface {
	Encode(data []byte) ([]byte, error)
	Ext() string
}

// Publisher persists one frame: render to a local staging file, upload to the
// destination bucket, delete the staging copy once the upload is confirmed.
type Publisher struct {
	store    BlobStore
	enc      Encoder
	bucket   string
	frameDir string
}

func New(store BlobStore, enc Encoder, cfg *conf.FramesConfig) *Publisher {
	return &Publisher{
		store:    store,
		enc:      enc,
		bucket:   cfg.DestinationBucket,
		frameDir: cfg.FrameDir,
	}
}

// ObjectKey computes the destination key for one frame of a job.
func ObjectKey(jobKey string, ordinal int) string {
	return fmt.Sprintf("%s/frame_%04d", jobKey, ordinal)
}

// Publish renders and uploads one frame. A non-nil return is a per-frame
// failure: the staging file is left on disk for out-of-band inspection and the
// caller is expected to log and move on. Only a successful upload deletes the
// staging file; a failed deletion is reported as a leak warning, never as an
// error.
func (p *Publisher) Publish(ctx context.Context, frame frames.Frame, jobKey string) error {
	payload, err := p.enc.Encode(frame.Data)
	if err != nil {
		return fmt.Errorf("render frame %d: %w", frame.Ordinal, err)
	}

	staging := p.stagingPath(jobKey, frame.Ordinal)
	if err := os.WriteFile(staging, payload, 0o644); err != nil {
		return fmt.Errorf("write staging file for frame %d: %w", frame.Ordinal, err)
	}

	key := ObjectKey(jobKey, frame.Ordinal)
	contentType := mimetype.Detect(payload).String()

	err = p.store.Upload(ctx, p.bucket, key, contentType, payload, map[string]string{"game-id": jobKey})
	if err != nil {
		return fmt.Errorf("upload frame %d: %w", frame.Ordinal, err)
	}

	if err := os.Remove(staging); err != nil {
		log.Printf("[publisher] leaked staging file %s: %v", staging, err)
	}

	return nil
}

func (p *Publisher) stagingPath(jobKey string, ordinal int) string {
	return filepath.Join(p.frameDir, fmt.Sprintf("%s_frame_%04d%s", jobKey, ordinal, p.enc.Ext()))
}
