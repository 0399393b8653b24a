package s3store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	conf "github.com/nba-highlights/frame-splitter/internal/config"
)

type S3 struct {
	Region         string
	MaxRetries     int
	RetryBaseDelay time.Duration

	S3Client   *s3.Client
	Uploader   *manager.Uploader
	Downloader *manager.Downloader
}

func NewStorage(cfg *conf.S3Config) (*S3, error) {
	st := &S3{
		Region:         cfg.Region,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay * time.Millisecond,
	}
	if err := st.run(cfg); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *S3) run(cfg *conf.S3Config) error {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s.Region),
	}
	// Static credentials are only needed for S3-compatible stores; on AWS the
	// default chain (instance role, env) takes over.
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretKey, "",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	s.S3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	s.Uploader = manager.NewUploader(s.S3Client)
	s.Downloader = manager.NewDownloader(s.S3Client)

	return nil
}

// Download fetches an object into a local file, creating parent directories as
// needed. The partial file is removed when the fetch does not complete.
func (s *S3) Download(ctx context.Context, bucket, key, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", destPath, err)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", destPath, err)
	}

	_, err = s.Downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("failed to download %q from %q: %w", key, bucket, err)
	}

	return nil
}

// Upload puts an object with user metadata, retrying transient failures with
// jittered backoff before giving up.
func (s *S3) Upload(ctx context.Context, bucket, key, contentType string, payload []byte, metadata map[string]string) error {
	var err error
	attempt := 0

	for {
		attempt++
		_, err = s.Uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(payload),
			ContentType: aws.String(contentType),
			Metadata:    metadata,
		})
		if err == nil {
			return nil
		}

		// retry?
		if attempt > s.MaxRetries {
			break
		}

		backoff := s.backoffDelay(attempt)
		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
		if ctx.Err() != nil {
			break
		}
	}

	return fmt.Errorf("failed to upload %q to %q: %w", key, bucket, err)
}

func (s *S3) backoffDelay(attempt int) time.Duration {
	delay := s.RetryBaseDelay << (attempt - 1)
	jitter := time.Duration(int64(delay) / 10)
	return delay - (jitter / 2) + time.Duration(int64(jitter)*time.Now().UnixNano()%2)
}
