package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nba-highlights/frame-splitter/internal/config"
	"github.com/nba-highlights/frame-splitter/internal/dispatcher"
	"github.com/nba-highlights/frame-splitter/internal/notifier"
	"github.com/nba-highlights/frame-splitter/internal/processor"
	"github.com/nba-highlights/frame-splitter/internal/publisher"
	"github.com/nba-highlights/frame-splitter/internal/s3store"
	"github.com/nba-highlights/frame-splitter/internal/splitter"
	"github.com/nba-highlights/frame-splitter/internal/transport/handler"
	"github.com/nba-highlights/frame-splitter/internal/transport/router"
)

type App struct {
	HttpServer *http.Server
	Dispatcher *dispatcher.Dispatcher
}

func New(cfg *config.Config) (*App, error) {
	store, err := s3store.NewStorage(&cfg.S3)
	if err != nil {
		return nil, err
	}

	n, err := notifier.New(&cfg.S3, &cfg.Events)
	if err != nil {
		return nil, err
	}

	enc := processor.NewEncoder(&cfg.Frames)
	pub := publisher.New(store, enc, &cfg.Frames)
	pipeline := splitter.New(store, pub, n, &cfg.Frames)

	d := dispatcher.New(&cfg.Dispatcher)

	h := handler.New(d, pipeline)
	r := router.NewRouter(h)

	s := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout * time.Second,
	}

	return &App{
		HttpServer: s,
		Dispatcher: d,
	}, nil
}

func (a *App) Run() error {
	return a.HttpServer.ListenAndServe()
}
