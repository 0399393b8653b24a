package config

import (
	"encoding/json"
	"os"
)

// Create new config instance
func NewConfig() *Config {
	return &Config{}
}

// Load configuration file in json format
func (c *Config) Read(file string) error {
	data, err := os.ReadFile(file)
	if err == nil {
		_ = json.Unmarshal(data, c)
	}
	c.applyDefaults()
	return err
}

// applyDefaults treats zero values as unset, so an explicit zero in the file
// falls back to the default; zero retries or zero quality are not expressible.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
	if c.S3.MaxRetries == 0 {
		c.S3.MaxRetries = 3
	}
	if c.S3.RetryBaseDelay == 0 {
		c.S3.RetryBaseDelay = 300
	}
	if c.Frames.DestinationBucket == "" {
		c.Frames.DestinationBucket = "nba-match-frames"
	}
	if c.Frames.VideoDir == "" {
		c.Frames.VideoDir = "temp-video"
	}
	if c.Frames.FrameDir == "" {
		c.Frames.FrameDir = "frames"
	}
	if c.Frames.FFmpegPath == "" {
		c.Frames.FFmpegPath = "ffmpeg"
	}
	if c.Frames.Format == "" {
		c.Frames.Format = "jpeg"
	}
	if c.Frames.Quality == 0 {
		c.Frames.Quality = 90
	}
	if c.Dispatcher.Workers == 0 {
		c.Dispatcher.Workers = 2
	}
	if c.Events.Source == "" {
		c.Events.Source = "frame-splitter"
	}
	if c.Events.DetailType == "" {
		c.Events.DetailType = "Frame Splitting Completed"
	}
}
