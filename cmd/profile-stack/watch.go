package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/profilemcp/profile-stack/internal/check"
	"github.com/profilemcp/profile-stack/internal/config"
)

// newWatchCmd creates the "watch" subcommand for re-synthesizing on changes.
func newWatchCmd() *cobra.Command {
	var (
		opts         synthOptions
		checkOnly    bool
		debounce     time.Duration
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize on config or handler code changes",
		Long: `Watch monitors the stack config file and the handler code directory and
re-synthesizes the template on every change.

The watch command:
- Monitors the config file and the function.codeAsset directory
- Runs the stack checks on each change
- Rebuilds if the checks pass (unless --check-only)
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    profile-stack watch -o template.json
    profile-stack watch --check-only
    profile-stack watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), watchOptions{
				synth:        opts,
				checkOnly:    checkOnly,
				debounce:     debounce,
				outputFormat: outputFormat,
				outputFile:   outputFile,
			})
		},
	}

	addSynthFlags(cmd, &opts)
	cmd.Flags().BoolVar(&checkOnly, "check-only", false, "Only run checks, skip build")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format for build: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for build (default: stdout)")

	return cmd
}

type watchOptions struct {
	synth        synthOptions
	checkOnly    bool
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// runWatch monitors the config and asset paths and rebuilds on changes.
func runWatch(ctx context.Context, opts watchOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	paths, err := watchPaths(opts.synth.configFile)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := addPath(watcher, p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		logger.WithField("path", p).Info("watching")
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("running initial check/build")
	runCheckAndBuild(ctx, opts)

	// Debounce timer
	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	logger.Info("watching for changes (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !relevant(event, opts.outputFile) {
				continue
			}
			if err := watchCreated(watcher, event); err != nil {
				logger.WithError(err).WithField("path", event.Name).Warn("failed to watch new directory")
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			logger.Info("change detected, rebuilding")
			runCheckAndBuild(ctx, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("watch error")

		case <-sigChan:
			logger.Info("stopping watch")
			return nil

		case <-ctx.Done():
			return nil
		}
	}
}

// watchPaths returns the config file and the handler code directory.
// The config file is watched through its directory so editors that replace
// the file on save keep being observed.
func watchPaths(configFile string) ([]string, error) {
	if configFile == "" {
		configFile = config.DefaultFile
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		if _, statErr := os.Stat(configFile); statErr == nil {
			return nil, err
		}
		cfg = config.Default()
	}

	var paths []string
	configDir, err := filepath.Abs(filepath.Dir(configFile))
	if err != nil {
		return nil, err
	}
	paths = append(paths, configDir)

	if cfg.Function.CodeAsset != "" {
		assetDir, err := filepath.Abs(cfg.Function.CodeAsset)
		if err != nil {
			return nil, err
		}
		if info, err := os.Stat(assetDir); err == nil && info.IsDir() && assetDir != configDir {
			paths = append(paths, assetDir)
		}
	}
	return paths, nil
}

// addPath adds a directory and all subdirectories to the watcher.
func addPath(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			base := filepath.Base(path)
			// Skip hidden directories
			if strings.HasPrefix(base, ".") && path != dir {
				return filepath.SkipDir
			}
			if base == "node_modules" {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}

// watchCreated starts watching directories created under a watched path,
// since fsnotify does not recurse on its own.
func watchCreated(watcher *fsnotify.Watcher, event fsnotify.Event) error {
	if !event.Has(fsnotify.Create) {
		return nil
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		return nil
	}
	if filepath.Base(event.Name) == "node_modules" {
		return nil
	}
	return addPath(watcher, event.Name)
}

// relevant filters out events that cannot change the template, including
// writes to the watch output itself.
func relevant(event fsnotify.Event, outputFile string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if outputFile != "" {
		if abs, err := filepath.Abs(outputFile); err == nil && abs == event.Name {
			return false
		}
	}
	base := filepath.Base(event.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}

// runCheckAndBuild runs the checks and optionally the build.
func runCheckAndBuild(ctx context.Context, opts watchOptions) {
	cfg, tmpl, err := synthesize(ctx, opts.synth)
	if err != nil {
		logger.WithError(err).Error("synth failed")
		return
	}

	result := check.Run(tmpl, check.Options{
		PathPart:  cfg.API.PathPart,
		StageName: cfg.API.StageName,
	})
	for _, issue := range result.Issues {
		entry := logger.WithFields(logrus.Fields{"rule": issue.Rule, "resource": issue.Resource})
		switch issue.Severity {
		case check.SeverityError:
			entry.Error(issue.Message)
		case check.SeverityWarning:
			entry.Warn(issue.Message)
		default:
			entry.Debug(issue.Message)
		}
	}
	if !result.Success {
		logger.Warn("check failed, skipping build")
		return
	}
	logger.Info("check passed")

	if opts.checkOnly {
		return
	}

	data, err := encodeTemplate(tmpl, opts.outputFormat)
	if err != nil {
		logger.WithError(err).Error("output error")
		return
	}

	if opts.outputFile == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(opts.outputFile, data, 0644); err != nil {
		logger.WithError(err).Error("failed to write output")
		return
	}
	logger.WithField("file", opts.outputFile).Infof("build successful, %d resources", len(tmpl.Resources))
}
