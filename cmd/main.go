package main

import (
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/nba-highlights/frame-splitter/internal/app"
	"github.com/nba-highlights/frame-splitter/internal/config"
)

const file = "config.json"

func initSentry(cfg *config.SentryConfig, version string) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     version,
	})
}

func main() {
	cfg := config.NewConfig()
	err := cfg.Read(file)
	if err != nil {
		log.Fatal(err)
	}

	err = initSentry(&cfg.Sentry, "v1")
	if err != nil {
		log.Fatal(err)
	}
	defer sentry.Flush(2 * time.Second)

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("starting frame splitter on port %d", cfg.Server.Port)
	if err := a.Run(); err != nil {
		log.Fatal(err)
	}
}
