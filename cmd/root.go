package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/metadata"
	"github.com/shopmonkeyus/eds-sensors/internal/tracker"
	"github.com/shopmonkeyus/eds-sensors/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
	csys "github.com/shopmonkeyus/go-common/sys"
	"github.com/spf13/cobra"

	// dialects
	_ "github.com/shopmonkeyus/eds-sensors/internal/dialects/mysql"
	_ "github.com/shopmonkeyus/eds-sensors/internal/dialects/postgresql"
	_ "github.com/shopmonkeyus/eds-sensors/internal/dialects/snowflake"
	_ "github.com/shopmonkeyus/eds-sensors/internal/dialects/sqlserver"
)

var Version string // set in main

func mustFlagBool(cmd *cobra.Command, name string, required bool) bool {
	val, err := cmd.Flags().GetBool(name)
	if required && err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
	return val
}

func mustFlagString(cmd *cobra.Command, name string, required bool) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
	if required && val == "" {
		fmt.Printf("error: required flag --%s missing\n", name)
		os.Exit(1)
	}
	return val
}

// flagBindings maps config keys to the persistent flags that override them.
var flagBindings = map[string]string{
	"api.url":  "api-url",
	"data-dir": "data-dir",
	"parallel": "parallel",
	"limit":    "limit",
	"verbose":  "verbose",
	"silent":   "silent",
}

func loadConfig(cmd *cobra.Command) *internal.Config {
	v, err := internal.NewViper(mustFlagString(cmd, "config", false))
	if err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
	for key, name := range flagBindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			fmt.Printf("error: %s\n", err)
			os.Exit(1)
		}
	}
	config, err := internal.LoadConfig(v)
	if err != nil {
		fmt.Printf("error: invalid config: %s\n", err)
		os.Exit(1)
	}
	return config
}

func newLogger(config *internal.Config) logger.Logger {
	if config.Verbose {
		return logger.NewConsoleLogger(logger.LevelTrace)
	}
	if config.Silent {
		return logger.NewConsoleLogger(logger.LevelError)
	}
	return logger.NewConsoleLogger(logger.LevelInfo)
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-csys.CreateShutdownChannel():
			cancel()
			return
		}
	}()
	return ctx, cancel
}

func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func newTracker(ctx context.Context, logger logger.Logger, config *internal.Config) *tracker.Tracker {
	if err := util.EnsureDir(config.DataDir); err != nil {
		logger.Error("error creating data directory: %s", err)
		os.Exit(3)
	}
	if ok, err := util.IsDirWritable(config.DataDir); err != nil || !ok {
		logger.Error("data directory %s is not writable", config.DataDir)
		os.Exit(3)
	}
	tracker, err := tracker.NewTracker(tracker.TrackerConfig{
		Logger:  logger,
		Context: ctx,
		Dir:     config.DataDir,
	})
	if err != nil {
		logger.Error("error creating tracker db: %s", err)
		os.Exit(3)
	}
	return tracker
}

// newProvider returns a file provider when schemaFile is set and an API provider otherwise.
func newProvider(ctx context.Context, logger logger.Logger, config *internal.Config, schemaFile string, tr *tracker.Tracker) (internal.MetadataProvider, func()) {
	if schemaFile != "" {
		p, err := metadata.NewFileProvider(schemaFile)
		if err != nil {
			logger.Error("error loading schema file: %s", err)
			os.Exit(1)
		}
		return p, func() {}
	}
	if config.APIURL != internal.DefaultAPIURL {
		logger.Info("using alternative API url: %s", config.APIURL)
	}
	p, err := metadata.NewAPIProvider(ctx, metadata.ProviderConfig{
		Logger:    logger,
		URL:       config.APIURL,
		Timeout:   config.APITimeout,
		LastNDays: config.LastNDays,
		CacheTTL:  config.CacheTTL,
		Tracker:   tr,
	})
	if err != nil {
		logger.Error("error creating metadata provider: %s", err)
		os.Exit(1)
	}
	return p, func() { p.Close() }
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "eds-sensors",
	Short: "Converts sensor telemetry schemas into relational tables",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "turn on verbose logging")
	rootCmd.PersistentFlags().Bool("silent", false, "turn off all logging except errors")
	rootCmd.PersistentFlags().String("data-dir", internal.DefaultDataDir, "the data directory for the local cache")
	rootCmd.PersistentFlags().String("api-url", internal.DefaultAPIURL, "url of the sensor data api")
	rootCmd.PersistentFlags().Int("parallel", internal.DefaultParallel, "the number of schema documents fetched in parallel")
	rootCmd.PersistentFlags().Int("limit", 0, "the max number of sensor types converted when none are named, 0 for all")
}
