package deploy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuemby/corral/pkg/types"
)

// dockerImagePrefix marks an imageUuid as a Docker image reference
const dockerImagePrefix = "docker:"

// ImageUUID turns an image reference into Rancher's imageUuid form
func ImageUUID(image string) string {
	if strings.HasPrefix(image, dockerImagePrefix) {
		return image
	}
	return dockerImagePrefix + image
}

// ParsePorts splits a "host:container,host:container" list. Blank entries
// are dropped, so "" yields no ports.
func ParsePorts(ports string) []string {
	var out []string
	for _, p := range strings.Split(ports, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewLaunchConfig builds the launch config for a service that does not exist yet
func NewLaunchConfig(imageUUID, ports string, env map[string]any) *types.LaunchConfig {
	lc := &types.LaunchConfig{
		ImageUUID:   imageUUID,
		Ports:       ParsePorts(ports),
		Environment: make(map[string]any, len(env)),
	}
	for k, v := range env {
		lc.Environment[k] = v
	}
	return lc
}

// MergeLaunchConfig derives the upgrade launch config from a service's
// current one. The image is replaced, env keys are inserted or overwritten
// with the rest kept, and ports are replaced only when ports is non-empty.
// base is not modified.
func MergeLaunchConfig(base *types.LaunchConfig, imageUUID, ports string, env map[string]any) *types.LaunchConfig {
	lc := copyLaunchConfig(base)

	lc.ImageUUID = imageUUID
	for k, v := range env {
		lc.Environment[k] = v
	}
	if parsed := ParsePorts(ports); len(parsed) > 0 {
		lc.Ports = parsed
	}
	return lc
}

// ResolveStrategy picks the in-service strategy for an upgrade. Starting new
// containers before stopping old ones is impossible while host ports are
// bound, so startFirst with any port mapping is rejected.
func ResolveStrategy(startFirst bool, lc *types.LaunchConfig) (*types.InServiceStrategy, error) {
	if startFirst && len(lc.Ports) > 0 {
		return nil, fmt.Errorf("%w: ports %s can not be used with start-before-stop",
			ErrIncompatibleStrategy, strings.Join(lc.Ports, ","))
	}
	return &types.InServiceStrategy{
		StartFirst:   startFirst,
		LaunchConfig: lc,
	}, nil
}

func copyLaunchConfig(base *types.LaunchConfig) *types.LaunchConfig {
	lc := &types.LaunchConfig{Environment: make(map[string]any)}
	if base == nil {
		return lc
	}

	lc.ImageUUID = base.ImageUUID
	if base.Ports != nil {
		lc.Ports = append([]string(nil), base.Ports...)
	}
	for k, v := range base.Environment {
		lc.Environment[k] = v
	}
	if base.Extra != nil {
		lc.Extra = make(map[string]json.RawMessage, len(base.Extra))
		for k, v := range base.Extra {
			lc.Extra[k] = v
		}
	}
	return lc
}
