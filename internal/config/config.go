package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host     string   `koanf:"host"`
	Port     int      `koanf:"port"`
	Frontend Frontend `koanf:"frontend"`
	Database Database `koanf:"db"`
	Logger   Logger   `koanf:"logger"`
	Planner  Planner  `koanf:"planner"`
}

type Frontend struct {
	Enabled bool `koanf:"enabled"`
}

type Database struct {
	// Type selects the driver: "sqlite" or "postgres".
	Type string `koanf:"type"`
	// Path is the sqlite database file.
	Path   string `koanf:"path"`
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Logger struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Planner struct {
	// OverbookingPct is the weekly load (percent of a person) above which
	// a mutation response carries an overbooking warning.
	OverbookingPct int `koanf:"overbookingpct"`
	// SlotMinutes is the smallest unit of plannable time.
	SlotMinutes int `koanf:"slotminutes"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Host: "http://localhost:3000",
		Port: 8181,
		Frontend: Frontend{
			Enabled: true,
		},
		Database: Database{
			Type:   "sqlite",
			Path:   "planering.db",
			Host:   "localhost",
			Port:   5432,
			User:   "planering",
			Pass:   "",
			Name:   "planering",
			Schema: "planering",
		},
		Logger: Logger{
			Level:  "info",
			Format: "text",
		},
		Planner: Planner{
			OverbookingPct: 100,
			SlotMinutes:    15,
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.ProviderWithValue("PLANERING_", ".", func(k, v string) (string, any) {
		// Transform the key.
		k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "PLANERING_")), "_", ".")
		return k, v
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
