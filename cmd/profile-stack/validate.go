package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/validation"
)

// newValidateCmd creates the "validate" subcommand for checking the template.
func newValidateCmd() *cobra.Command {
	var (
		opts         synthOptions
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the synthesized template",
		Long: `Validate synthesizes the stack and checks the result.

Checks performed:
  - Stack invariants: the PRF rules run by "check"
  - CloudFormation validity: cfn-lint rules over the generated template

Examples:
    profile-stack validate
    profile-stack validate --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, outputFormat)
		},
	}

	addSynthFlags(cmd, &opts)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

// runValidate synthesizes the stack and runs both validation layers.
func runValidate(cmd *cobra.Command, opts synthOptions, format string) error {
	cfg, err := loadConfig(cmd.Context(), opts)
	if err != nil {
		return err
	}

	result, err := validation.ValidateStack(cfg)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return outputValidateResult(cmd.OutOrStdout(), result.ToContract(), format)
}

func outputValidateResult(w io.Writer, result profilestack.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
			for _, info := range result.Informational {
				fmt.Fprintf(w, "  INFO: %s\n", info)
			}
			for _, warnMsg := range result.Warnings {
				fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
			}
			return nil
		}

		fmt.Fprintln(w, "Validation FAILED:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		os.Exit(1)
	}

	return nil
}
