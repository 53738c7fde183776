package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"fabriq-content/lib/configutil"

	"dario.cat/mergo"
)

const DefaultConfigPath = "pipeline.json5"

type S3Config struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
	Region string `json:"region"`
}

type AssetsConfig struct {
	// Dir is where images are written when no bucket is configured.
	Dir string `json:"dir"`
	// ImagePrefix is joined in front of every image key in the catalog.
	ImagePrefix string   `json:"image_prefix"`
	S3          S3Config `json:"s3"`
}

type Config struct {
	Sources   string       `json:"sources"`
	Catalog   string       `json:"catalog"`
	Report    string       `json:"report"`
	Assets    AssetsConfig `json:"assets"`
	HistoryDB string       `json:"history_db"`
	UserAgent string       `json:"user_agent"`
	// Timeout is a go duration string, empty means no timeout.
	Timeout string `json:"timeout"`
	// DumpHTTP writes every http exchange into this directory.
	DumpHTTP string `json:"dump_http"`
}

func DefaultConfig() Config {
	return Config{
		Sources: "data/sources.json",
		Catalog: "data/styles.json",
		Report:  "data/pipeline-report.json",
		Assets: AssetsConfig{
			Dir: "assets/img/styles",
		},
	}
}

// LoadConfig reads the config at path with its local overrides and fills in
// defaults. A missing default config is not an error, a missing config that
// was asked for explicitly is.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) && path == DefaultConfigPath {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	err = mergo.Merge(&cfg, DefaultConfig())
	if err != nil {
		return Config{}, err
	}
	_, err = cfg.timeout()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
