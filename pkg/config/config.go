package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/cuemby/corral/pkg/credentials"
	"github.com/cuemby/corral/pkg/deploy"
	"github.com/cuemby/corral/pkg/interpolate"
	"gopkg.in/yaml.v3"
)

// Connection holds the Rancher endpoint and API key settings shared by every command.
type Connection struct {
	Endpoint      string  `env:"RANCHER_URL" yaml:"endpoint" validate:"required,url"`
	EnvironmentID string  `env:"RANCHER_ENVIRONMENT" yaml:"environmentId" validate:"required"`
	AccessKey     string  `env:"RANCHER_ACCESS_KEY" yaml:"accessKey"`
	SecretKey     string  `env:"RANCHER_SECRET_KEY" yaml:"secretKey"`
	CredentialID  string  `env:"RANCHER_CREDENTIAL_ID" yaml:"credentialId"`
	RateLimit     float64 `env:"CORRAL_RATE_LIMIT" envDefault:"10" yaml:"rateLimit" validate:"gte=0"`
}

// ResolveCredentials fills the API keys from store when none were given
// directly and a credential id is set.
func (c *Connection) ResolveCredentials(store credentials.Store) error {
	if c.AccessKey != "" || c.SecretKey != "" || c.CredentialID == "" {
		return nil
	}
	if store == nil {
		return fmt.Errorf("no credential store available for %s", c.CredentialID)
	}

	cred, err := store.Get(c.CredentialID)
	if err != nil {
		return fmt.Errorf("resolving credential %s: %w", c.CredentialID, err)
	}
	c.AccessKey = cred.AccessKey
	c.SecretKey = cred.SecretKey
	return nil
}

func (c *Connection) interpolate(vars map[string]string) {
	c.Endpoint = interpolate.Expand(c.Endpoint, vars)
	c.EnvironmentID = interpolate.Expand(c.EnvironmentID, vars)
}

// Timing holds the wait settings
type Timing struct {
	TimeoutSeconds int           `env:"CORRAL_TIMEOUT" envDefault:"50" yaml:"timeout" validate:"gt=0"`
	PollInterval   time.Duration `env:"CORRAL_POLL_INTERVAL" envDefault:"2s" yaml:"pollInterval" validate:"gt=0"`
}

// Timeout returns the per-wait timeout
func (t Timing) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// EnvText is environment override text. In a YAML file it may be written as
// a string or as a mapping.
type EnvText string

// UnmarshalYAML accepts a scalar or a mapping node
func (e *EnvText) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*e = EnvText(node.Value)
		return nil
	case yaml.MappingNode:
		out, err := yaml.Marshal(node)
		if err != nil {
			return err
		}
		*e = EnvText(out)
		return nil
	default:
		return fmt.Errorf("line %d: env must be a string or a mapping", node.Line)
	}
}

// DeployConfig is everything the deploy command needs
type DeployConfig struct {
	Connection `yaml:",inline"`
	Timing     `yaml:",inline"`

	Service    string  `yaml:"service" validate:"required,service"`
	Image      string  `yaml:"image" validate:"required"`
	Ports      string  `yaml:"ports" validate:"omitempty,ports"`
	Env        EnvText `yaml:"env"`
	StartFirst bool    `yaml:"startFirst"`
	Confirm    bool    `yaml:"confirm"`

	environment map[string]any
}

// LoadDeploy reads a deploy configuration from the environment, then from
// the YAML file at path if one is given.
func LoadDeploy(path string) (*DeployConfig, error) {
	cfg := &DeployConfig{}
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Interpolate expands $NAME tokens in the endpoint, environment id, service,
// image, ports and env text, then parses the env overrides.
func (c *DeployConfig) Interpolate(vars map[string]string) error {
	c.Connection.interpolate(vars)
	c.Service = interpolate.Expand(c.Service, vars)
	c.Image = interpolate.Expand(c.Image, vars)
	c.Ports = interpolate.Expand(c.Ports, vars)
	c.Env = EnvText(interpolate.Expand(string(c.Env), vars))

	parsed, err := interpolate.ParseEnvironment(string(c.Env))
	if err != nil {
		return err
	}
	c.environment = parsed
	return nil
}

// Validate checks the configuration
func (c *DeployConfig) Validate() error {
	return validateStruct(c)
}

// Request builds the deploy request. Interpolate must have been called.
func (c *DeployConfig) Request() deploy.DeployRequest {
	return deploy.DeployRequest{
		EnvironmentID: c.EnvironmentID,
		Service:       c.Service,
		Image:         c.Image,
		Ports:         c.Ports,
		Environment:   c.environment,
		StartFirst:    c.StartFirst,
		Confirm:       c.Confirm,
		Timeout:       c.Timeout(),
	}
}

// FinishConfig is everything the finish command needs
type FinishConfig struct {
	Connection `yaml:",inline"`
	Timing     `yaml:",inline"`

	Service string `yaml:"service" validate:"required,service"`
	Action  string `yaml:"action" validate:"required,oneof=confirm rollback"`
}

// LoadFinish reads a finish configuration from the environment, then from
// the YAML file at path if one is given.
func LoadFinish(path string) (*FinishConfig, error) {
	cfg := &FinishConfig{Action: string(deploy.FinishConfirm)}
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Interpolate expands $NAME tokens in the endpoint, environment id and service
func (c *FinishConfig) Interpolate(vars map[string]string) {
	c.Connection.interpolate(vars)
	c.Service = interpolate.Expand(c.Service, vars)
}

// Validate checks the configuration. The action is matched case-insensitively.
func (c *FinishConfig) Validate() error {
	c.Action = strings.ToLower(strings.TrimSpace(c.Action))
	return validateStruct(c)
}

// Request builds the finish request
func (c *FinishConfig) Request() deploy.FinishRequest {
	return deploy.FinishRequest{
		EnvironmentID: c.EnvironmentID,
		Service:       c.Service,
		Action:        deploy.FinishAction(c.Action),
		Timeout:       c.Timeout(),
	}
}

// CheckConfig is everything the check command needs
type CheckConfig struct {
	Connection `yaml:",inline"`
}

// LoadCheck reads a connectivity check configuration
func LoadCheck(path string) (*CheckConfig, error) {
	cfg := &CheckConfig{}
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Interpolate expands $NAME tokens in the endpoint and environment id
func (c *CheckConfig) Interpolate(vars map[string]string) {
	c.Connection.interpolate(vars)
}

// Validate checks the configuration
func (c *CheckConfig) Validate() error {
	return validateStruct(c)
}

// load parses environment variables into cfg, then overlays the YAML file
func load(path string, cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Environ snapshots a KEY=VALUE list such as os.Environ() into a map
func Environ(entries []string) map[string]string {
	vars := make(map[string]string, len(entries))
	for _, entry := range entries {
		if k, v, ok := strings.Cut(entry, "="); ok && k != "" {
			vars[k] = v
		}
	}
	return vars
}
