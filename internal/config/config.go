// Package config loads the deployment settings of the profile stack.
//
// Every field has a default reproducing the reference deployment, so an
// absent config file synthesizes the canonical stack. The invariants of the
// stack (key schema, billing mode, permission set, proxy integration, open
// endpoint) are not configurable.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "profile-stack.yaml"

// Config describes one deployment of the profile stack.
type Config struct {
	StackName   string   `yaml:"stackName"`
	Description string   `yaml:"description,omitempty"`
	Env         Env      `yaml:"env,omitempty"`
	Function    Function `yaml:"function"`
	API         API      `yaml:"api"`
	Outputs     Outputs  `yaml:"outputs"`
}

// Env pins the stack to an account and region. Both are optional.
type Env struct {
	Account string `yaml:"account,omitempty"`
	Region  string `yaml:"region,omitempty"`
}

// Function configures the compute function and its code asset.
type Function struct {
	Runtime    string `yaml:"runtime"`
	Handler    string `yaml:"handler"`
	CodeAsset  string `yaml:"codeAsset"`
	CodeBucket string `yaml:"codeBucket,omitempty"`
	CodeKey    string `yaml:"codeKey,omitempty"`
}

// API configures the REST API front door.
type API struct {
	Name         string `yaml:"name"`
	EndpointType string `yaml:"endpointType"`
	PathPart     string `yaml:"pathPart"`
	StageName    string `yaml:"stageName"`
}

// Outputs configures export names.
type Outputs struct {
	ExportPrefix string `yaml:"exportPrefix"`
}

// Default returns the reference deployment.
func Default() *Config {
	return &Config{
		StackName: "ProfileServerCdkStack",
		Function: Function{
			Runtime:   "nodejs22.x",
			Handler:   "src/index.handler",
			CodeAsset: "../profile-server",
		},
		API: API{
			Name:         "profile-mcp-server",
			EndpointType: "EDGE",
			PathPart:     "mcp",
			StageName:    "dev",
		},
		Outputs: Outputs{
			ExportPrefix: "profile-mcp-server-dev",
		},
	}
}

// Load reads a YAML config over the defaults and validates it. An empty
// path loads DefaultFile when it exists, else the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			return cfg, nil
		}
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

var (
	stackNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{0,127}$`)
	stagePattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
	pathPartPattern  = regexp.MustCompile(`^([A-Za-z0-9._~-]+|\{[A-Za-z0-9_]+\+?\})$`)
	accountPattern   = regexp.MustCompile(`^\d{12}$`)
	regionPattern    = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d+$`)
)

var endpointTypes = map[string]bool{
	"EDGE":     true,
	"REGIONAL": true,
	"PRIVATE":  true,
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	if !stackNamePattern.MatchString(c.StackName) {
		errs = append(errs, fmt.Errorf("stackName %q: must start with a letter and contain only letters, digits and hyphens", c.StackName))
	}
	if c.Env.Account != "" && !accountPattern.MatchString(c.Env.Account) {
		errs = append(errs, fmt.Errorf("env.account %q: must be 12 digits", c.Env.Account))
	}
	if c.Env.Region != "" && !regionPattern.MatchString(c.Env.Region) {
		errs = append(errs, fmt.Errorf("env.region %q: not a region name", c.Env.Region))
	}
	if c.Function.Runtime == "" {
		errs = append(errs, errors.New("function.runtime: required"))
	}
	if c.Function.Handler == "" {
		errs = append(errs, errors.New("function.handler: required"))
	}
	if !endpointTypes[c.API.EndpointType] {
		errs = append(errs, fmt.Errorf("api.endpointType %q: must be EDGE, REGIONAL or PRIVATE", c.API.EndpointType))
	}
	if c.API.Name == "" {
		errs = append(errs, errors.New("api.name: required"))
	}
	if !pathPartPattern.MatchString(c.API.PathPart) {
		errs = append(errs, fmt.Errorf("api.pathPart %q: invalid path segment", c.API.PathPart))
	}
	if !stagePattern.MatchString(c.API.StageName) {
		errs = append(errs, fmt.Errorf("api.stageName %q: only letters, digits, hyphens and underscores", c.API.StageName))
	}
	if c.Outputs.ExportPrefix == "" {
		errs = append(errs, errors.New("outputs.exportPrefix: required"))
	}

	return errors.Join(errs...)
}

// ExportName returns the export name for an output.
func (c *Config) ExportName(output string) string {
	return c.Outputs.ExportPrefix + "-" + output
}
