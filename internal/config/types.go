package config

import "time"

type Config struct {
	Server     ServerConfig     `json:"server"`
	S3         S3Config         `json:"s3"`
	Frames     FramesConfig     `json:"frames"`
	Dispatcher DispatcherConfig `json:"dispatcher"`
	Events     EventsConfig     `json:"events"`
	Sentry     SentryConfig     `json:"sentry"`
}

type ServerConfig struct {
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type S3Config struct {
	Region      string `json:"region"`
	Endpoint    string `json:"endpoint"` // optional, for S3-compatible stores
	AccessKeyID string `json:"access_key_id"`
	SecretKey   string `json:"secret_key"`

	MaxRetries     int           `json:"max_retries"`
	RetryBaseDelay time.Duration `json:"retry_base_delay"`
}

type FramesConfig struct {
	DestinationBucket string `json:"destination_bucket"` // bucket receiving the per-frame objects
	VideoDir          string `json:"video_dir"`          // local staging dir for downloaded videos
	FrameDir          string `json:"frame_dir"`          // local staging dir for rendered frames
	FFmpegPath        string `json:"ffmpeg_path"`

	// Output encoding. Format "jpeg" with no max dimensions passes the decoded
	// frame bytes through untouched.
	Format    string `json:"format"` // "jpeg" | "png" | "webp"
	Quality   int    `json:"quality"`
	MaxWidth  int    `json:"max_width"`
	MaxHeight int    `json:"max_height"`
}

type DispatcherConfig struct {
	Workers int `json:"workers"`
}

type EventsConfig struct {
	BusName    string `json:"bus_name"`
	Source     string `json:"source"`
	DetailType string `json:"detail_type"`
}

type SentryConfig struct {
	SentryDSN   string `json:"sentry_dsn"`
	Environment string `json:"environment"`
}
