package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/converter"
	"github.com/shopmonkeyus/eds-sensors/internal/metadata"
	"github.com/shopmonkeyus/eds-sensors/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/spf13/cobra"
)

type validation struct {
	SensorType string              `json:"sensorType"`
	Entities   int                 `json:"entities"`
	Warnings   []converter.Warning `json:"warnings,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// validateDocuments lints and converts every document of the provider on its own.
func validateDocuments(ctx context.Context, logger logger.Logger, provider internal.MetadataProvider) ([]validation, error) {
	types, err := provider.SensorTypes(ctx)
	if err != nil {
		return nil, err
	}
	c := converter.New(converter.Config{Logger: logger, Provider: provider})
	var res []validation
	for _, sensorType := range types {
		v := validation{SensorType: sensorType}
		doc, err := provider.Schema(ctx, sensorType)
		if err == nil {
			err = metadata.Lint(doc.Raw)
		}
		if err == nil {
			em, warnings, cerr := c.ConvertDocument(sensorType, doc)
			v.Entities = len(em)
			v.Warnings = warnings
			err = cerr
		}
		if err != nil {
			v.Error = err.Error()
		}
		res = append(res, v)
	}
	return res, nil
}

func printValidations(w io.Writer, validations []validation) int {
	var failed int
	for _, v := range validations {
		if v.Error != "" {
			failed++
			fmt.Fprintf(w, "%s %s: %s\n", red("✗"), v.SensorType, v.Error)
			continue
		}
		fmt.Fprintf(w, "%s %s: %d entities\n", green("✓"), v.SensorType, v.Entities)
		for _, warning := range v.Warnings {
			fmt.Fprintf(w, "    %s %s\n", yellow("warning"), warning)
		}
	}
	return failed
}

var validateCmd = &cobra.Command{
	Use:   "validate [schema-file]",
	Short: "Validate a schema file written by the metadata command",
	Long: "Validate that every sensor schema in a file has the sensor envelope, is valid JSON Schema and converts.\n\n" +
		util.GenerateHelpSection("Examples", util.GenerateExamplesSection(
			"eds-sensors validate metadata.json",
			"eds-sensors validate --json metadata.json",
		)),
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig(cmd)
		logger := newLogger(config)
		defer util.RecoverPanic(logger)

		provider, err := metadata.NewFileProvider(args[0])
		if err != nil {
			logger.Error("error loading schema file: %s", err)
			os.Exit(1)
		}
		validations, err := validateDocuments(cmd.Context(), logger, provider)
		if err != nil {
			logger.Error("error validating schema file: %s", err)
			os.Exit(1)
		}
		var failed int
		if mustFlagBool(cmd, "json", false) {
			fmt.Println(util.JSONStringify(validations))
			for _, v := range validations {
				if v.Error != "" {
					failed++
				}
			}
		} else {
			failed = printValidations(os.Stdout, validations)
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("json", false, "print the result as json")
}
