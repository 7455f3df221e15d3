package cmd

import (
	"context"
	"os"
	"time"

	"github.com/shopmonkeyus/eds-sensors/internal/util"
	"github.com/spf13/cobra"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Download the sensor types and their schemas into a file",
	Long: "Download every sensor type and the schema inferred from its recent readings into a file that convert, validate and migrate accept with --schema-file.\n\n" +
		util.GenerateHelpSection("Examples", util.GenerateExamplesSection(
			"eds-sensors metadata --out metadata.json",
		)),
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig(cmd)
		logger := newLogger(config)
		defer util.RecoverPanic(logger)

		out := mustFlagString(cmd, "out", true)

		ctx, cancel := newContext()
		defer cancel()

		tr := newTracker(ctx, logger, config)
		defer tr.Close()

		provider, closer := newProvider(ctx, logger, config, "", tr)
		defer closer()

		started := time.Now()
		quiet := config.Verbose || config.Silent
		err := util.RunTaskWithSpinner(ctx, "Downloading sensor metadata...", quiet, func(ctx context.Context, spinner *util.Spinner) error {
			return provider.Save(ctx, out)
		})
		if err != nil {
			if isCancelled(ctx) {
				return
			}
			logger.Error("error saving metadata: %s", err)
			os.Exit(1)
		}
		logger.Info("👋 Saved metadata to %s in %v", out, time.Since(started))
	},
}

func init() {
	rootCmd.AddCommand(metadataCmd)
	metadataCmd.Flags().String("out", "metadata.json", "the file to write")
}
