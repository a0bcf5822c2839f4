package types

import (
	"encoding/json"
	"strings"
)

// ServiceState is the lifecycle state reported by Rancher for a service.
// Rancher is not consistent about casing, so compare with Is.
type ServiceState string

const (
	ServiceStateInactive  ServiceState = "inactive"
	ServiceStateActive    ServiceState = "active"
	ServiceStateUpgrading ServiceState = "upgrading"
	ServiceStateUpgraded  ServiceState = "upgraded"
)

// Is reports whether s matches the raw state string, ignoring case
func (s ServiceState) Is(state string) bool {
	return strings.EqualFold(string(s), state)
}

// Environment represents a Rancher environment (project)
type Environment struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	State string `json:"state,omitempty"`
}

// Stack is a named group of services within an environment
type Stack struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	State string `json:"state,omitempty"`
}

// Stacks is the collection envelope returned by the stacks endpoint
type Stacks struct {
	Data []Stack `json:"data"`
}

// Service is a deployable unit within a stack
type Service struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name"`
	StackID      string        `json:"stackId,omitempty"`
	State        string        `json:"state,omitempty"`
	Scale        int           `json:"scale,omitempty"`
	LaunchConfig *LaunchConfig `json:"launchConfig,omitempty"`
}

// Services is the collection envelope returned by the services endpoint
type Services struct {
	Data []Service `json:"data"`
}

// LaunchConfig describes how a service's containers run.
//
// Only the image, ports and environment are ever modified. Every other
// field returned by Rancher is kept in Extra and written back untouched,
// so health checks, volumes, labels and the like survive an upgrade.
type LaunchConfig struct {
	ImageUUID   string
	Ports       []string
	Environment map[string]any
	Extra       map[string]json.RawMessage
}

const (
	launchConfigImageKey = "imageUuid"
	launchConfigPortsKey = "ports"
	launchConfigEnvKey   = "environment"
)

// MarshalJSON writes the managed fields over the passthrough fields
func (lc LaunchConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(lc.Extra)+3)
	for k, v := range lc.Extra {
		out[k] = v
	}

	out[launchConfigImageKey] = lc.ImageUUID

	ports := lc.Ports
	if ports == nil {
		ports = []string{}
	}
	out[launchConfigPortsKey] = ports

	env := lc.Environment
	if env == nil {
		env = map[string]any{}
	}
	out[launchConfigEnvKey] = env

	return json.Marshal(out)
}

// UnmarshalJSON splits managed fields from passthrough fields
func (lc *LaunchConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*lc = LaunchConfig{}

	if v, ok := raw[launchConfigImageKey]; ok {
		if err := json.Unmarshal(v, &lc.ImageUUID); err != nil {
			return err
		}
		delete(raw, launchConfigImageKey)
	}
	if v, ok := raw[launchConfigPortsKey]; ok {
		if err := json.Unmarshal(v, &lc.Ports); err != nil {
			return err
		}
		delete(raw, launchConfigPortsKey)
	}
	if v, ok := raw[launchConfigEnvKey]; ok {
		if err := json.Unmarshal(v, &lc.Environment); err != nil {
			return err
		}
		delete(raw, launchConfigEnvKey)
	}

	if len(raw) > 0 {
		lc.Extra = raw
	}
	return nil
}

// InServiceStrategy is Rancher's rolling upgrade policy
type InServiceStrategy struct {
	StartFirst   bool          `json:"startFirst"`
	LaunchConfig *LaunchConfig `json:"launchConfig,omitempty"`
}

// ServiceUpgrade is the body of the upgrade action
type ServiceUpgrade struct {
	InServiceStrategy *InServiceStrategy `json:"inServiceStrategy"`
}
