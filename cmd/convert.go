package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/converter"
	"github.com/shopmonkeyus/eds-sensors/internal/export"
	"github.com/shopmonkeyus/eds-sensors/internal/model"
	"github.com/shopmonkeyus/eds-sensors/internal/tracker"
	"github.com/shopmonkeyus/eds-sensors/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/spf13/cobra"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// render encodes the entities in the requested format and returns the content type.
func render(entities model.EntityMap, format string, dialectName string) ([]byte, string, error) {
	switch format {
	case "json":
		buf, err := entities.JSON()
		if err != nil {
			return nil, "", err
		}
		return append(buf, '\n'), "application/json", nil
	case "sql":
		dialect, err := internal.GetDialect(dialectName)
		if err != nil {
			return nil, "", err
		}
		return []byte(strings.Join(dialect.CreateSQL(entities.Sorted()), "\n")), "application/sql", nil
	}
	return nil, "", fmt.Errorf("unsupported format: %s", format)
}

func printSummary(w io.Writer, result *converter.Result, sensorTypes int, took time.Duration) {
	fmt.Fprintf(w, "%s %d of %d sensor types into %d entities in %v (session %s)\n",
		bold("converted"),
		sensorTypes-len(result.Rejected),
		sensorTypes,
		len(result.Entities),
		took.Round(time.Millisecond),
		result.SessionID,
	)
	for _, rej := range result.Rejected {
		fmt.Fprintf(w, "  %s %s: %s\n", red("rejected"), rej.SensorType, rej.Reason)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "  %s %s\n", yellow("warning"), warning)
	}
}

// rememberEntities stores the entities in the tracker and returns true if they differ from
// the last stored conversion.
func rememberEntities(logger logger.Logger, tr *tracker.Tracker, entities model.EntityMap) (bool, error) {
	fingerprint, err := converter.Fingerprint(entities)
	if err != nil {
		return false, err
	}
	found, last, err := tr.GetKey(tracker.FingerprintKey)
	if err != nil {
		return false, err
	}
	changed := !found || last != fingerprint
	if err := tr.SetObject(tracker.EntitiesKey, entities, 0); err != nil {
		return false, err
	}
	if err := tr.SetKey(tracker.FingerprintKey, fingerprint, 0); err != nil {
		return false, err
	}
	logger.Debug("stored entities with fingerprint: %s (changed: %v)", fingerprint, changed)
	return changed, nil
}

func resolveSensorTypes(ctx context.Context, logger logger.Logger, provider internal.MetadataProvider, args []string, limit int) []string {
	if len(args) > 0 {
		return args
	}
	types, err := provider.SensorTypes(ctx)
	if err != nil {
		logger.Error("error fetching sensor types: %s", err)
		os.Exit(1)
	}
	if limit > 0 && len(types) > limit {
		logger.Info("converting the first %d of %d sensor types", limit, len(types))
	}
	return util.Limit(types, limit)
}

var convertCmd = &cobra.Command{
	Use:   "convert [sensor types...]",
	Short: "Convert sensor schemas into entity definitions or DDL",
	Long: "Convert the schema of each sensor type into relational entity definitions.\n\n" +
		"When no sensor types are named every sensor type known to the api (or the schema file) is converted.\n\n" +
		util.GenerateHelpSection("Examples", util.GenerateExamplesSection(
			`eds-sensors convert "Air Quality" "Traffic Flow"`,
			`eds-sensors convert --schema-file metadata.json --format sql --dialect mysql --output schema.sql`,
			`eds-sensors convert --format json --output s3://bucket/sensors/entities.json`,
		)),
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig(cmd)
		logger := newLogger(config)
		defer util.RecoverPanic(logger)

		schemaFile := mustFlagString(cmd, "schema-file", false)
		format := mustFlagString(cmd, "format", true)
		dialect := mustFlagString(cmd, "dialect", false)
		output := mustFlagString(cmd, "output", false)

		ctx, cancel := newContext()
		defer cancel()

		tr := newTracker(ctx, logger, config)
		defer tr.Close()

		provider, closer := newProvider(ctx, logger, config, schemaFile, tr)
		defer closer()

		started := time.Now()
		var result *converter.Result
		var types []string
		quiet := config.Verbose || config.Silent
		err := util.RunTaskWithSpinner(ctx, "Converting sensor schemas...", quiet, func(ctx context.Context, spinner *util.Spinner) error {
			types = resolveSensorTypes(ctx, logger, provider, args, config.Limit)
			spinner.Title(fmt.Sprintf("Converting %d sensor schemas...", len(types)))
			result = converter.New(converter.Config{
				Logger:   logger,
				Provider: provider,
				Parallel: config.Parallel,
			}).Convert(ctx, types)
			return nil
		})
		if err != nil {
			logger.Error("error converting: %s", err)
			os.Exit(1)
		}
		if isCancelled(ctx) {
			return
		}

		buf, contentType, err := render(result.Entities, format, dialect)
		if err != nil {
			logger.Error("error rendering entities: %s", err)
			os.Exit(1)
		}
		if err := export.Write(ctx, output, buf, contentType); err != nil {
			logger.Error("error writing output: %s", err)
			os.Exit(1)
		}

		changed, err := rememberEntities(logger, tr, result.Entities)
		if err != nil {
			logger.Error("error storing entities: %s", err)
			os.Exit(1)
		}

		if !config.Silent {
			printSummary(os.Stderr, result, len(types), time.Since(started))
			if changed {
				fmt.Fprintln(os.Stderr, green("schema changed since the last conversion"))
			}
		}
		logger.Debug("conversion stats: %s", util.JSONStringify(internal.GetConversionStats()))

		if len(result.Entities) == 0 && len(result.Rejected) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().String("schema-file", "", "read sensor schemas from a file written by the metadata command instead of the api")
	convertCmd.Flags().String("format", "json", "the output format: json or sql")
	convertCmd.Flags().String("dialect", "postgres", "the sql dialect used with --format sql")
	convertCmd.Flags().String("output", export.Stdout, "where to write the output: - for stdout, a filename or s3://bucket/key")
}
