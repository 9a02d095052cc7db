// Package awsenv resolves the target account and region from the local AWS
// credential chain, so a synthesized template can pin them.
package awsenv

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/sirupsen/logrus"
)

// ErrNoRegion is returned when neither the options nor the AWS config chain
// yield a region.
var ErrNoRegion = errors.New("no AWS region configured")

// IdentityAPI is the subset of the STS client used here.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Options controls resolution.
type Options struct {
	// Region overrides the region from the config chain.
	Region string
	// Profile selects a named shared-config profile.
	Profile string
	// Client replaces the STS client built from the loaded config.
	Client IdentityAPI
	Logger *logrus.Logger
}

// Env is a resolved deployment environment.
type Env struct {
	Account string `json:"account"`
	Region  string `json:"region"`
	Arn     string `json:"arn,omitempty"`
}

// Resolve loads the default AWS config and asks STS who the caller is.
func Resolve(ctx context.Context, opts Options) (Env, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return Env{}, fmt.Errorf("loading AWS config: %w", err)
	}

	client := opts.Client
	if client == nil {
		client = sts.NewFromConfig(cfg)
	}
	return resolveWith(ctx, cfg, client, opts.Logger)
}

func resolveWith(ctx context.Context, cfg aws.Config, client IdentityAPI, logger *logrus.Logger) (Env, error) {
	if cfg.Region == "" {
		return Env{}, ErrNoRegion
	}

	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Env{}, fmt.Errorf("calling sts:GetCallerIdentity: %w", err)
	}

	env := Env{
		Account: aws.ToString(out.Account),
		Region:  cfg.Region,
		Arn:     aws.ToString(out.Arn),
	}
	if env.Account == "" {
		return Env{}, errors.New("sts:GetCallerIdentity returned no account")
	}

	if logger != nil && logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.WithFields(logrus.Fields{
			"account": env.Account,
			"region":  env.Region,
		}).Debug("resolved AWS environment")
	}
	return env, nil
}

// Region returns the region from the default config chain without calling
// any AWS API.
func Region(ctx context.Context, profile string) (string, error) {
	var loadOpts []func(*config.LoadOptions) error
	if profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}
	if cfg.Region == "" {
		return "", ErrNoRegion
	}
	return cfg.Region, nil
}
