// Command profile-stack synthesizes and checks the profile-server
// CloudFormation stack.
//
// Usage:
//
//	profile-stack build                 Synthesize the CloudFormation template
//	profile-stack check                 Check stack invariants
//	profile-stack validate              Check invariants and run cfn-lint
//	profile-stack diff snapshot.json    Compare a snapshot with a fresh synth
//	profile-stack version               Show version
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/profilemcp/profile-stack/internal/logging"
)

// logger is replaced by the root command's persistent pre-run.
var logger = logging.New("info", logging.FormatText)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:   "profile-stack",
		Short: "Synthesize the profile-server CloudFormation stack",
		Long: `profile-stack declares the profile-server infrastructure in Go: a DynamoDB
table, a Lambda function serving the MCP endpoint, its IAM role, and an API
Gateway REST API proxying /mcp to the function.

Generate the CloudFormation template:

    profile-stack build -o template.json

Then deploy it with CloudFormation.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(logLevel, logFormat)
		},
	}

	defaultLevel := os.Getenv("LOG_LEVEL")
	if defaultLevel == "" {
		defaultLevel = logrus.InfoLevel.String()
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLevel, "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")

	rootCmd.AddCommand(
		newBuildCmd(),
		newListCmd(),
		newGraphCmd(),
		newCheckCmd(),
		newValidateCmd(),
		newDiffCmd(),
		newWatchCmd(),
		newPackageCmd(),
		newSmokeCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "profile-stack %s\n", getVersion())
		},
	}
}
