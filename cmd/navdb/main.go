// cmd/navdb/main.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"fmt"
	"os"

	"github.com/goforj/godump"
	"github.com/spf13/cobra"

	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/navdb"
	"github.com/mmp/navdb/util"
)

var (
	configFile   string
	cacheFile    string
	postgresDSN  string
	sceneryPaths []string
	logLevel     string
	logDir       string
	dump         bool
)

var rootCmd = &cobra.Command{
	Use:   "navdb",
	Short: "Query and maintain a navigation database",
	Long: `navdb imports CIFP and OurAirports navigation data into a cache and
answers spatial, ident, and frequency queries against it.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "JSON configuration file")
	pf.StringVar(&cacheFile, "cache", "", "cache file (overrides the configuration; defaults to the user cache directory)")
	pf.StringVar(&postgresDSN, "postgres", "", "PostgreSQL connection string (overrides the configuration)")
	pf.StringSliceVar(&sceneryPaths, "scenery", nil, "scenery directories to search")
	pf.StringVar(&logLevel, "loglevel", "info", "logging level: debug, info, warn, error")
	pf.StringVar(&logDir, "logdir", "", "log file directory")
	pf.BoolVar(&dump, "dump", false, "dump the full result structures")

	rootCmd.AddCommand(buildCmd, closestCmd, identCmd, runwayCmd, freqCmd, waypointCmd, benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (navdb.Config, error) {
	var cfg navdb.Config
	if configFile != "" {
		var err error
		if cfg, err = navdb.LoadConfig(configFile); err != nil {
			return cfg, err
		}
	}

	if cacheFile != "" {
		cfg.CacheFile = cacheFile
	}
	if postgresDSN != "" {
		cfg.PostgresDSN = postgresDSN
	}
	if len(sceneryPaths) > 0 {
		cfg.SceneryPaths = sceneryPaths
	}
	if cfg.LogLevel == "" || rootCmd.PersistentFlags().Changed("loglevel") {
		cfg.LogLevel = logLevel
	}
	if logDir != "" {
		cfg.LogDir = logDir
	}
	if cfg.CacheFile == "" && cfg.PostgresDSN == "" {
		path, err := util.DefaultCachePath("navdb.msgpack.zst")
		if err != nil {
			return cfg, err
		}
		cfg.CacheFile = path
	}
	return cfg, cfg.Validate()
}

func openDB() (*navdb.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	lg := log.New(cfg.LogLevel, cfg.LogDir)
	return navdb.Open(cfg, lg)
}

// show prints v with godump if --dump was given and otherwise calls
// summary.
func show(v any, summary func()) {
	if dump {
		godump.Dump(v)
	} else {
		summary()
	}
}
