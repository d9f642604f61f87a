package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/NescAdmin/nesc-planering/internal/config"
	"github.com/NescAdmin/nesc-planering/internal/database"
	"github.com/NescAdmin/nesc-planering/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// App wires configuration, database, router, and server lifecycle.
type App struct {
	cfg    config.Application
	router *mux.Router
	srv    *http.Server
}

// NewApp constructs the full HTTP application, ready to Start().
func NewApp(cfg config.Application) (*App, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	// db is closed when the process exits together with the server.
	if err := database.Migrate(cfg.Database); err != nil {
		return nil, err
	}

	r := mux.NewRouter()

	deps := BuildDependencies(db, cfg)

	handler := SetupMiddleware(r, cfg)

	RegisterRoutes(r, deps)

	// Frontend
	if cfg.Frontend.Enabled {
		frontend := rest.NewFrontendHandler("frontend", "index.html")
		r.PathPrefix("/").Handler(frontend)
	}

	srv := &http.Server{
		Handler:      handler,
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{cfg: cfg, router: r, srv: srv}, nil
}

// Start runs the HTTP server and blocks.
func (a *App) Start() error {
	log.Infof("Starting server on %s", a.srv.Addr)
	return a.srv.ListenAndServe()
}
