// navdb/config.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navdb

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mmp/navdb/airport"
	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/util"
)

const DefaultPartialBudget = 32 * time.Millisecond

// Config holds the settings for a navigation database; it is usually
// loaded from a JSON file.
type Config struct {
	// Path to the msgpack+zstd cache file. Ignored if PostgresDSN is set.
	CacheFile   string `json:"cache_file"`
	PostgresDSN string `json:"postgres_dsn"`

	// Directories searched, in order, for per-airport scenery override
	// files.
	SceneryPaths []string `json:"scenery_paths"`

	EntityCacheSize   int                   `json:"entity_cache_size"`
	MinRunwayLengthFt float64               `json:"min_runway_length_ft"`
	RunwaySearch      airport.RunwayWeights `json:"runway_search"`

	// Time budget in milliseconds for the partial searches.
	PartialBudgetMs int `json:"partial_budget_ms"`

	LogLevel string `json:"log_level"`
	LogDir   string `json:"log_dir"`
}

var ErrNoBackend = errors.New("No cache_file or postgres_dsn specified")

// LoadConfig reads the configuration from the given JSON file. Unknown
// keys are reported as errors, along with the location of any syntax
// errors.
func LoadConfig(path string) (Config, error) {
	var c Config

	contents, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}

	var e util.ErrorLogger
	e.Push(path)
	util.CheckJSON[Config](contents, &e)
	if e.HaveErrors() {
		return c, errors.New(e.String())
	}

	if err := util.UnmarshalJSONBytes(contents, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, c.Validate()
}

// Validate checks the configuration and fills in defaults for unset
// values.
func (c *Config) Validate() error {
	if c.EntityCacheSize < 0 {
		return fmt.Errorf("entity_cache_size: %d: must be positive", c.EntityCacheSize)
	}
	if c.EntityCacheSize == 0 {
		c.EntityCacheSize = navcache.DefaultEntityCacheSize
	}
	if c.PartialBudgetMs < 0 {
		return fmt.Errorf("partial_budget_ms: %d: must be positive", c.PartialBudgetMs)
	}
	if c.PartialBudgetMs == 0 {
		c.PartialBudgetMs = int(DefaultPartialBudget / time.Millisecond)
	}
	if c.RunwaySearch == (airport.RunwayWeights{}) {
		c.RunwaySearch = airport.DefaultRunwayWeights
	}
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level: %q: must be one of debug, info, warn, or error", c.LogLevel)
	}
	for _, dir := range c.SceneryPaths {
		if fi, err := os.Stat(dir); err != nil {
			return fmt.Errorf("scenery_paths: %w", err)
		} else if !fi.IsDir() {
			return fmt.Errorf("scenery_paths: %s: not a directory", dir)
		}
	}
	return nil
}

func (c Config) PartialBudget() time.Duration {
	return time.Duration(c.PartialBudgetMs) * time.Millisecond
}
