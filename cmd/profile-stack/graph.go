package main

import (
	"github.com/spf13/cobra"

	"github.com/profilemcp/profile-stack/internal/graph"
)

func newGraphCmd() *cobra.Command {
	var (
		opts              synthOptions
		outputFormat      string
		includeParameters bool
		clusterByService  bool
	)

	cmd := &cobra.Command{
		Use:   "graph [template]",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies of the
synthesized stack, or of a template file when one is given.

The output can be rendered with Graphviz:
    profile-stack graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    profile-stack graph -f mermaid

Examples:
    profile-stack graph
    profile-stack graph -p                    # include parameters
    profile-stack graph -c                    # cluster by service
    profile-stack graph template.json -f mermaid`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runGraph(cmd, path, opts, outputFormat, includeParameters, clusterByService)
		},
	}

	addSynthFlags(cmd, &opts)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&includeParameters, "include-parameters", "p", false, "Include parameter nodes in the graph")
	cmd.Flags().BoolVar(&clusterByService, "cluster", false, "Cluster resources by AWS service")

	return cmd
}

func runGraph(cmd *cobra.Command, path string, opts synthOptions, format string, includeParams, cluster bool) error {
	graphFormat, err := graph.ParseFormat(format)
	if err != nil {
		return err
	}

	tmpl, err := templateFrom(cmd.Context(), path, opts)
	if err != nil {
		return err
	}

	gen := &graph.Generator{
		Format:            graphFormat,
		IncludeParameters: includeParams,
		ClusterByService:  cluster,
	}

	return gen.Generate(tmpl, cmd.OutOrStdout())
}
