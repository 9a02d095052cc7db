package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/check"
)

func newCheckCmd() *cobra.Command {
	var (
		opts         synthOptions
		outputFormat string
		rules        []string
	)

	cmd := &cobra.Command{
		Use:   "check [template]",
		Short: "Check stack invariants",
		Long: `Check runs the PRF rules over the synthesized stack, or over a template file
when one is given. With --config, a template file is checked against the
config's stage name and path part.

Rules:
  PRF001  table keyed by a single string partition key "id"
  PRF002  table billed on demand
  PRF003  table deleted with the stack
  PRF004  function role is Lambda-only and grants exactly the expected permissions
  PRF005  function receives the table name via PROFILE_TABLE_NAME
  PRF006  ANY method proxies to the function
  PRF007  method is open and API Gateway may invoke the function
  PRF008  one deployment bound to one stage
  PRF009  function ARN and endpoint URL are exported
  PRF010  known production gaps (informational)

Exits with code 2 when an error-severity issue is found.

Examples:
    profile-stack check
    profile-stack check template.json --format json
    profile-stack check template.json --config staging.yaml
    profile-stack check --rules PRF004,PRF007`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runCheck(cmd, path, opts, outputFormat, rules)
		},
	}

	addSynthFlags(cmd, &opts)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&rules, "rules", nil, "Only run these rule IDs")

	return cmd
}

func runCheck(cmd *cobra.Command, path string, opts synthOptions, format string, rules []string) error {
	checkOpts := check.Options{EnabledRules: rules}

	if path == "" {
		cfg, tmpl, err := synthesize(cmd.Context(), opts)
		if err != nil {
			return err
		}
		checkOpts.PathPart = cfg.API.PathPart
		checkOpts.StageName = cfg.API.StageName
		return outputCheckResult(cmd.OutOrStdout(), check.Run(tmpl, checkOpts).ToContract(), format)
	}

	// A config names the stage and path the template was synthesized for.
	if opts.configFile != "" {
		cfg, err := loadConfig(cmd.Context(), opts)
		if err != nil {
			return err
		}
		checkOpts.PathPart = cfg.API.PathPart
		checkOpts.StageName = cfg.API.StageName
	}

	tmpl, err := templateFrom(cmd.Context(), path, opts)
	if err != nil {
		return err
	}
	return outputCheckResult(cmd.OutOrStdout(), check.Run(tmpl, checkOpts).ToContract(), format)
}

func outputCheckResult(w io.Writer, result profilestack.CheckResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Issues) == 0 {
			fmt.Fprintln(w, "No issues found.")
			return nil
		}

		for _, issue := range result.Issues {
			if issue.Resource != "" {
				fmt.Fprintf(w, "%s: %s: %s [%s]\n", issue.Resource, issue.Severity, issue.Message, issue.Rule)
			} else {
				fmt.Fprintf(w, "%s: %s [%s]\n", issue.Severity, issue.Message, issue.Rule)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		os.Exit(2) // Exit code 2 for issues found
	}

	return nil
}
