package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	profilestack "github.com/profilemcp/profile-stack"
)

func newBuildCmd() *cobra.Command {
	var (
		opts         synthOptions
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:     "build",
		Aliases: []string{"synth"},
		Short:   "Generate the CloudFormation template",
		Long: `Build synthesizes the profile-server stack into a CloudFormation template.

Examples:
    profile-stack build
    profile-stack build -o template.json
    profile-stack build --format yaml
    profile-stack build --config prod.yaml --resolve-env`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts, outputFormat, outputFile)
		},
	}

	addSynthFlags(cmd, &opts)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// addSynthFlags registers --config, --resolve-env and --asset-dir.
func addSynthFlags(cmd *cobra.Command, opts *synthOptions) {
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "Stack config file (default: ./profile-stack.yaml if present)")
	cmd.Flags().BoolVar(&opts.resolveEnv, "resolve-env", false, "Pin account and region from the AWS credential chain")
	cmd.Flags().StringVar(&opts.assetDir, "asset-dir", "dist", "Directory holding the packaged asset manifest for the default code key")
}

func runBuild(cmd *cobra.Command, opts synthOptions, format, outputFile string) error {
	_, tmpl, err := synthesize(cmd.Context(), opts)
	if err != nil {
		return outputResult(cmd.OutOrStdout(), profilestack.BuildResult{
			Success: false,
			Errors:  []string{err.Error()},
		}, format, outputFile)
	}

	return outputResult(cmd.OutOrStdout(), profilestack.BuildResult{
		Success:   true,
		Template:  *tmpl,
		Resources: tmpl.ResourceNames(),
	}, format, outputFile)
}

func outputResult(w io.Writer, result profilestack.BuildResult, format, outputFile string) error {
	// Handle build failures - output errors to stderr
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		return fmt.Errorf("build failed")
	}

	data, err := encodeTemplate(&result.Template, format)
	if err != nil {
		return err
	}

	if outputFile == "" {
		fmt.Fprintln(w, string(data))
		return nil
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return err
	}
	logger.WithField("file", outputFile).Infof("wrote %d resources", len(result.Resources))
	return nil
}

