package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/awsenv"
	"github.com/profilemcp/profile-stack/internal/smoke"
)

type smokeFlags struct {
	synth        synthOptions
	url          string
	apiID        string
	region       string
	stage        string
	path         string
	method       string
	timeout      time.Duration
	outputFormat string
}

func newSmokeCmd() *cobra.Command {
	var f smokeFlags

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Probe the deployed endpoint",
		Long: `Smoke sends one request to the deployed /{stage}/mcp endpoint and fails
when API Gateway rejects it before it reaches the function, or when the
host is unreachable. Any response produced by the function passes.

Examples:
    profile-stack smoke --api-id a1b2c3d4e5
    profile-stack smoke --url https://a1b2c3d4e5.execute-api.us-east-1.amazonaws.com/dev/mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmoke(cmd, f)
		},
	}

	addSynthFlags(cmd, &f.synth)
	cmd.Flags().StringVar(&f.url, "url", "", "Full endpoint URL (overrides --api-id)")
	cmd.Flags().StringVar(&f.apiID, "api-id", "", "REST API id")
	cmd.Flags().StringVar(&f.region, "region", "", "Region (default: env.region, then the AWS config chain)")
	cmd.Flags().StringVar(&f.stage, "stage", "", "Stage (default: api.stageName)")
	cmd.Flags().StringVar(&f.path, "path", "", "Path (default: api.pathPart)")
	cmd.Flags().StringVar(&f.method, "method", "GET", "HTTP method")
	cmd.Flags().DurationVar(&f.timeout, "timeout", smoke.DefaultTimeout, "Request timeout")
	cmd.Flags().StringVarP(&f.outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runSmoke(cmd *cobra.Command, f smokeFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts := smoke.Options{
		URL:    f.url,
		APIID:  f.apiID,
		Region: f.region,
		Stage:  f.stage,
		Path:   f.path,
		Method: f.method,
		Logger: logger,
	}

	if opts.URL == "" {
		if opts.APIID == "" {
			return fmt.Errorf("either --url or --api-id is required")
		}
		cfg, err := loadConfig(ctx, f.synth)
		if err != nil {
			return err
		}
		if opts.Stage == "" {
			opts.Stage = cfg.API.StageName
		}
		if opts.Path == "" {
			opts.Path = cfg.API.PathPart
		}
		if opts.Region == "" {
			opts.Region = cfg.Env.Region
		}
		if opts.Region == "" {
			region, err := awsenv.Region(ctx, "")
			if err != nil {
				return err
			}
			opts.Region = region
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	result, err := smoke.Probe(ctx, opts)
	if outErr := outputSmokeResult(cmd.OutOrStdout(), result.ToContract(err), f.outputFormat); outErr != nil {
		return outErr
	}
	if err != nil {
		return fmt.Errorf("smoke test failed: %w", err)
	}
	return nil
}

func outputSmokeResult(w io.Writer, result profilestack.SmokeResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Smoke test passed: %s -> %d\n", result.URL, result.StatusCode)
			return nil
		}
		fmt.Fprintf(w, "Smoke test FAILED: %s\n", result.URL)
		fmt.Fprintf(w, "  %s\n", result.Message)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
