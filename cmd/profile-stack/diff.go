package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/profilemcp/profile-stack/internal/differ"
)

func newDiffCmd() *cobra.Command {
	var (
		opts         synthOptions
		outputFormat string
		ignoreOrder  bool
	)

	cmd := &cobra.Command{
		Use:   "diff <template1> [template2]",
		Short: "Compare two CloudFormation templates",
		Long: `Diff compares two template files semantically. With a single file it
compares that file against a fresh synth of the stack, which shows what a
config change would do to a committed snapshot.

Examples:
    profile-stack diff old.json new.json
    profile-stack diff template.json
    profile-stack diff template.json --ignore-order --format json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, args, opts, outputFormat, ignoreOrder)
		},
	}

	addSynthFlags(cmd, &opts)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")

	return cmd
}

func runDiff(cmd *cobra.Command, args []string, opts synthOptions, format string, ignoreOrder bool) error {
	left, err := differ.LoadTemplate(args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}

	rightPath := ""
	if len(args) == 2 {
		rightPath = args[1]
	}
	right, err := templateFrom(cmd.Context(), rightPath, opts)
	if err != nil {
		return err
	}

	result, err := differ.Compare(left, right, differ.Options{IgnoreOrder: ignoreOrder})
	if err != nil {
		return err
	}

	return outputDiffResult(cmd.OutOrStdout(), result, format)
}

func outputDiffResult(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(struct {
			Diff    any `json:"diff"`
			Summary any `json:"summary"`
		}{result.Diff, result.Summary}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Empty() {
			fmt.Fprintln(w, "No differences.")
			return nil
		}

		for _, e := range result.Diff.Added {
			fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Removed {
			fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
			for _, c := range e.Changes {
				fmt.Fprintf(w, "    %s\n", c)
			}
		}
		for _, e := range result.Diff.Outputs {
			fmt.Fprintf(w, "~ Outputs/%s\n", e.Resource)
			for _, c := range e.Changes {
				fmt.Fprintf(w, "    %s\n", c)
			}
		}
		s := result.Summary
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified, %d outputs changed\n",
			s.Added, s.Removed, s.Modified, s.Outputs)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
