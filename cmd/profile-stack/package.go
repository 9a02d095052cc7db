package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/profilemcp/profile-stack/internal/asset"
	"github.com/profilemcp/profile-stack/internal/stack"
)

func newPackageCmd() *cobra.Command {
	var (
		opts         synthOptions
		dir          string
		outDir       string
		bucket       string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Zip the handler code into a content-addressed asset",
		Long: `Package zips the function.codeAsset directory into asset.<sha256>.zip. Upload
the archive to a bucket and pass its location through the CodeBucket and
CodeKey template parameters. An asset.json manifest is written next to the
archive; later builds with the same --asset-dir use its object key as the
CodeKey default.

Examples:
    profile-stack package
    profile-stack package --dir ../profile-server --out-dir dist
    profile-stack package --bucket my-assets --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackage(cmd, opts, dir, outDir, bucket, outputFormat)
		},
	}

	addSynthFlags(cmd, &opts)
	cmd.Flags().StringVar(&dir, "dir", "", "Handler code directory (default: function.codeAsset)")
	cmd.Flags().StringVar(&outDir, "out-dir", "dist", "Directory for the packaged archive")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Asset bucket to print parameter overrides for")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runPackage(cmd *cobra.Command, opts synthOptions, dir, outDir, bucket, format string) error {
	if dir == "" {
		cfg, err := loadConfig(cmd.Context(), opts)
		if err != nil {
			return err
		}
		dir = cfg.Function.CodeAsset
	}

	manifest, err := asset.Package(dir, outDir)
	if err != nil {
		return fmt.Errorf("packaging %s: %w", dir, err)
	}
	logger.WithField("files", manifest.Files).Debug("packaged asset")

	return outputPackageResult(cmd.OutOrStdout(), manifest, bucket, format)
}

func outputPackageResult(w io.Writer, m asset.Manifest, bucket, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		fmt.Fprintf(w, "Packaged %d files (%d bytes)\n", m.Files, m.Size)
		fmt.Fprintf(w, "  %s\n", m.Path)
		if bucket != "" {
			fmt.Fprintf(w, "\nParameter overrides:\n  %s=%s %s=%s\n",
				stack.ParamCodeBucket, bucket, stack.ParamCodeKey, m.ObjectKey)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
