package main

import (
	"github.com/NescAdmin/nesc-planering/internal/app"
	"github.com/NescAdmin/nesc-planering/internal/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	configureLogger(cfg.Logger)

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	if err := application.Start(); err != nil {
		log.Fatal(err)
	}
}

func configureLogger(cfg config.Logger) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}
