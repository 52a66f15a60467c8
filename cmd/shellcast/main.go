package main

import (
	"flag"
	"time"

	log "github.com/sirupsen/logrus"

	"shellcast/internal/catalog"
	"shellcast/internal/config"
	"shellcast/internal/controller"
	"shellcast/internal/db"
	"shellcast/internal/download"
	"shellcast/internal/feed"
	"shellcast/internal/msg"
)

func main() {
	configPath := flag.String("c", "", "path to config.toml (default: OS config dir)")
	flag.Parse()

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			// The one fatal startup condition: nowhere to look for
			// configuration. Everything after this is recoverable.
			log.WithError(err).Fatal("Could not resolve configuration location; pass one with -c")
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.WithField("path", path).WithError(err).Fatal("Could not load configuration")
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		log.WithField("path", cfg.DBPath).WithError(err).Fatal("Could not open database")
	}
	defer store.Close()

	podcasts, err := store.GetPodcasts()
	if err != nil {
		log.WithError(err).Fatal("Could not load podcasts")
	}
	cat := catalog.New(podcasts)

	// All producers (presentation, feed workers, download workers) feed
	// this one channel; the controller is its only consumer.
	rx := make(chan msg.Message, 64)
	notify := make(chan msg.Notification, 16)

	downloads := download.NewManager(rx, cfg.SimultaneousDownloads, uint64(cfg.MaxDownloadRetries))
	downloads.Start()

	feeds := feed.NewSyncer(rx, cfg.MaxSyncWorkers, time.Duration(cfg.FeedTimeoutSeconds)*time.Second)

	ctrl := controller.New(cat, store, feeds, downloads, cfg, rx, notify)

	ui := newRepl(cat, downloads, rx, notify)
	go ui.run()

	ctrl.Run()
	ui.wait()
}
