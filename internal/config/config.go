package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"acervo/internal/catalog"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Drive    DriveConfig    `yaml:"drive"`
	Database DatabaseConfig `yaml:"database"`
	Covers   CoversConfig   `yaml:"covers"`
	Player   PlayerConfig   `yaml:"player"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DriveConfig struct {
	BaseURL   string       `yaml:"base_url"`
	PageSize  int          `yaml:"page_size"`
	BatchSize int          `yaml:"batch_size"` // parent ids per subfolder query
	Workers   int          `yaml:"workers"`    // in-flight batch requests
	Roots     []RootConfig `yaml:"roots"`
}

// RootConfig is one top-level remote folder to mirror.
type RootConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // audiobooks, ebooks, videos, finance
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type CoversConfig struct {
	CacheCapacity int   `yaml:"cache_capacity"`
	CacheMaxSize  int64 `yaml:"cache_max_size"` // bytes
}

type PlayerConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         6542,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
		},
		Drive: DriveConfig{
			PageSize:  100,
			BatchSize: 20,
			Workers:   4,
		},
		Database: DatabaseConfig{
			Path: "data/acervo.db",
		},
		Covers: CoversConfig{
			CacheCapacity: 500,
			CacheMaxSize:  64 * 1024 * 1024, // 64 MB
		},
		Player: PlayerConfig{
			TickInterval: 250 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RootCollections converts the configured roots to catalog values.
func (c *Config) RootCollections() []catalog.RootCollection {
	roots := make([]catalog.RootCollection, 0, len(c.Drive.Roots))
	for _, r := range c.Drive.Roots {
		roots = append(roots, catalog.RootCollection{
			ID:   r.ID,
			Name: r.Name,
			Kind: catalog.CollectionKind(r.Kind),
		})
	}
	return roots
}
