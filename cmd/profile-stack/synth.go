package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/sirupsen/logrus"

	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/asset"
	"github.com/profilemcp/profile-stack/internal/awsenv"
	"github.com/profilemcp/profile-stack/internal/config"
	"github.com/profilemcp/profile-stack/internal/differ"
	"github.com/profilemcp/profile-stack/internal/stack"
	"github.com/profilemcp/profile-stack/internal/template"
)

// synthOptions are the flags shared by every command that synthesizes.
type synthOptions struct {
	configFile string
	resolveEnv bool
	assetDir   string
}

// loadConfig reads the config and, with resolveEnv, fills the unpinned
// account and region from the AWS credential chain. An unset code key
// defaults to the object key of the asset last packaged into assetDir.
func loadConfig(ctx context.Context, opts synthOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	if opts.resolveEnv && (cfg.Env.Account == "" || cfg.Env.Region == "") {
		env, err := awsenv.Resolve(ctx, awsenv.Options{Region: cfg.Env.Region, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("resolving environment: %w", err)
		}
		if cfg.Env.Account == "" {
			cfg.Env.Account = env.Account
		}
		if cfg.Env.Region == "" {
			cfg.Env.Region = env.Region
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	if cfg.Function.CodeKey == "" && opts.assetDir != "" {
		cfg.Function.CodeKey = packagedKey(opts.assetDir, cfg.Function.CodeAsset)
	}

	logger.WithFields(logrus.Fields{
		"stack":   cfg.StackName,
		"stage":   cfg.API.StageName,
		"account": cfg.Env.Account,
		"region":  cfg.Env.Region,
	}).Debug("loaded config")
	return cfg, nil
}

// packagedKey returns the object key of the manifest in assetDir when it
// was packaged from codeAsset, else "".
func packagedKey(assetDir, codeAsset string) string {
	m, err := asset.ReadManifest(assetDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.WithError(err).Warn("ignoring asset manifest")
		}
		return ""
	}
	if !m.Packaged(codeAsset) {
		logger.WithFields(logrus.Fields{
			"manifest": m.Source,
			"asset":    codeAsset,
		}).Debug("asset manifest is for another directory")
		return ""
	}
	logger.WithField("key", m.ObjectKey).Debug("using packaged asset key")
	return m.ObjectKey
}

// synthesize loads the config and builds the template.
func synthesize(ctx context.Context, opts synthOptions) (*config.Config, *profilestack.Template, error) {
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	tmpl, err := stack.Synth(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.WithField("resources", len(tmpl.Resources)).Debug("synthesized template")
	return cfg, tmpl, nil
}

// templateFrom loads path when given, else synthesizes.
func templateFrom(ctx context.Context, path string, opts synthOptions) (*profilestack.Template, error) {
	if path != "" {
		return differ.LoadTemplate(path)
	}
	_, tmpl, err := synthesize(ctx, opts)
	return tmpl, err
}

// encodeTemplate renders tmpl as json or yaml.
func encodeTemplate(tmpl *profilestack.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(tmpl)
	case "yaml":
		return template.ToYAML(tmpl)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}
