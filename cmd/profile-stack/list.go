package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/stack"
)

func newListCmd() *cobra.Command {
	var (
		opts         synthOptions
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stack resources",
		Long: `List displays every resource of the stack in dependency order, with its
CloudFormation type and the resources it depends on.

Examples:
    profile-stack list
    profile-stack list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, outputFormat)
		},
	}

	addSynthFlags(cmd, &opts)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(cmd *cobra.Command, opts synthOptions, format string) error {
	cfg, err := loadConfig(cmd.Context(), opts)
	if err != nil {
		return err
	}
	builder, err := stack.New(cfg)
	if err != nil {
		return err
	}
	tmpl, err := builder.Build()
	if err != nil {
		return err
	}
	order, err := builder.Order()
	if err != nil {
		return err
	}
	deps, err := builder.Dependencies()
	if err != nil {
		return err
	}

	listResult := profilestack.ListResult{
		Resources: make([]profilestack.ListResource, 0, len(order)),
	}
	for _, name := range order {
		listResult.Resources = append(listResult.Resources, profilestack.ListResource{
			Name:      name,
			Type:      tmpl.Resources[name].Type,
			DependsOn: deps[name],
		})
	}

	return outputListResult(cmd.OutOrStdout(), listResult, format)
}

func outputListResult(w io.Writer, result profilestack.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources found.")
			return nil
		}

		fmt.Fprintf(w, "Stack resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			if len(res.DependsOn) == 0 {
				fmt.Fprintf(w, "  %s: %s\n", res.Name, res.Type)
				continue
			}
			fmt.Fprintf(w, "  %s: %s (depends on %s)\n", res.Name, res.Type, strings.Join(res.DependsOn, ", "))
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
