package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	ModeAuto = "auto"
	ModeTree = "tree"
	ModeTail = "tail"
)

type File struct {
	Watch struct {
		Path string `toml:"path"`
		Mode string `toml:"mode"`

		PollInterval     int `toml:"poll-interval"`      // milliseconds
		TreePollInterval int `toml:"tree-poll-interval"` // milliseconds; negative disables

		DecodeErrors string `toml:"decode-errors"`

		Ignore []string `toml:"ignore"`
	} `toml:"watch"`

	Report struct {
		Format string `toml:"format"`
	} `toml:"report"`

	ElasticSearch struct {
		Enabled bool `toml:"enabled"`

		Host  string `toml:"host"`
		Index string `toml:"index"`

		ConnectTimeout int `toml:"connect-timeout"`
	} `toml:"elastic"`

	Status struct {
		ListenAddress string `toml:"listen-address"`
	} `toml:"status"`
}

func (cfg *File) SetDefaults() {
	if cfg.Watch.Mode == "" {
		cfg.Watch.Mode = ModeAuto
	}

	if cfg.Watch.PollInterval <= 0 {
		cfg.Watch.PollInterval = 100 // 100 ms
	}

	if cfg.Watch.TreePollInterval == 0 {
		cfg.Watch.TreePollInterval = 1000 // 1 second
	}

	if cfg.Watch.DecodeErrors == "" {
		cfg.Watch.DecodeErrors = "ignore"
	}

	if cfg.Report.Format == "" {
		cfg.Report.Format = "console"
	}

	if cfg.ElasticSearch.Host == "" {
		cfg.ElasticSearch.Host = "http://localhost:9200"
	}

	if cfg.ElasticSearch.Index == "" {
		cfg.ElasticSearch.Index = "fswatch_logs"
	}

	if cfg.ElasticSearch.ConnectTimeout == 0 {
		cfg.ElasticSearch.ConnectTimeout = 3 // 3 seconds
	}
}

// Validate reports settings that SetDefaults cannot fix.
func (cfg *File) Validate() error {
	switch cfg.Watch.Mode {
	case ModeAuto, ModeTree, ModeTail:
	default:
		return fmt.Errorf("invalid watch mode %q", cfg.Watch.Mode)
	}

	switch cfg.Report.Format {
	case "console", "log":
	default:
		return fmt.Errorf("invalid report format %q", cfg.Report.Format)
	}

	return nil
}

func (cfg *File) PollInterval() time.Duration {
	return time.Duration(cfg.Watch.PollInterval) * time.Millisecond
}

// TreePollInterval is zero if the tree poll backstop is disabled.
func (cfg *File) TreePollInterval() time.Duration {
	if cfg.Watch.TreePollInterval < 0 {
		return 0
	}

	return time.Duration(cfg.Watch.TreePollInterval) * time.Millisecond
}

func Parse(name string) (File, error) {
	var cfg File

	f, err := os.Open(name)

	if err != nil {
		return File{}, err
	}

	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return File{}, err
	}

	return cfg, nil
}
