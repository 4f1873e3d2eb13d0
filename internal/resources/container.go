package resources

import (
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"

	"github.com/dockgen/dockgen/internal/enhanced"
)

// ContainerInfo is a view over an inspected container.
type ContainerInfo struct {
	raw *container.InspectResponse
}

// NewContainer wraps an inspect response.
func NewContainer(raw *container.InspectResponse) *ContainerInfo {
	return &ContainerInfo{raw: raw}
}

func (c *ContainerInfo) Kind() Kind { return KindContainer }

func (c *ContainerInfo) Raw() any {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw
}

func (c *ContainerInfo) base() *container.ContainerJSONBase {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.ContainerJSONBase
}

func (c *ContainerInfo) config() *container.Config {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Config
}

func (c *ContainerInfo) ID() string {
	if b := c.base(); b != nil {
		return b.ID
	}
	return ""
}

// Name is the container name without the leading slash.
func (c *ContainerInfo) Name() string {
	if b := c.base(); b != nil {
		return strings.TrimPrefix(b.Name, "/")
	}
	return ""
}

func (c *ContainerInfo) Labels() enhanced.Dict[string] {
	if cfg := c.config(); cfg != nil {
		return labelsOf(cfg.Labels)
	}
	return enhanced.Dict[string]{}
}

func (c *ContainerInfo) Env() enhanced.Dict[string] {
	if cfg := c.config(); cfg != nil {
		return parseEnv(cfg.Env)
	}
	return enhanced.Dict[string]{}
}

// Image is the image reference the container was created from.
func (c *ContainerInfo) Image() string {
	if cfg := c.config(); cfg != nil && cfg.Image != "" {
		return cfg.Image
	}
	if b := c.base(); b != nil {
		return b.Image
	}
	return ""
}

// Status is the engine state, e.g. "running" or "exited".
func (c *ContainerInfo) Status() string {
	if b := c.base(); b != nil && b.State != nil {
		return string(b.State.Status)
	}
	return ""
}

func (c *ContainerInfo) Hostname() string {
	if cfg := c.config(); cfg != nil {
		return cfg.Hostname
	}
	return ""
}

// Ports groups the published container ports by protocol.
func (c *ContainerInfo) Ports() Ports {
	if c == nil || c.raw == nil || c.raw.NetworkSettings == nil {
		return Ports{}
	}
	return containerPorts(c.raw.NetworkSettings.Ports)
}

func (c *ContainerInfo) endpoints() map[string]*network.EndpointSettings {
	if c == nil || c.raw == nil || c.raw.NetworkSettings == nil {
		return nil
	}
	return c.raw.NetworkSettings.Networks
}

// NetworkIDs returns the id of every attached network.
func (c *ContainerInfo) NetworkIDs() []string {
	eps := c.endpoints()
	ids := make([]string, 0, len(eps))
	for _, ep := range eps {
		if ep != nil && ep.NetworkID != "" {
			ids = append(ids, ep.NetworkID)
		}
	}
	sort.Strings(ids)
	return ids
}

// IPAddress returns the address on the named network, or the first address
// found when name is empty.
func (c *ContainerInfo) IPAddress(name string) string {
	eps := c.endpoints()
	if name != "" {
		if ep := eps[name]; ep != nil {
			return ep.IPAddress
		}
		return ""
	}
	names := make([]string, 0, len(eps))
	for n := range eps {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if ep := eps[n]; ep != nil && ep.IPAddress != "" {
			return ep.IPAddress
		}
	}
	return ""
}

// Networks lists the attached networks ordered by name. The entries are
// built from the endpoint settings, so only id and name are populated.
func (c *ContainerInfo) Networks() NetworkList {
	eps := c.endpoints()
	names := make([]string, 0, len(eps))
	for n := range eps {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make(NetworkList, 0, len(names))
	for _, n := range names {
		ep := eps[n]
		if ep == nil {
			continue
		}
		out = append(out, NewNetwork(&network.Summary{ID: ep.NetworkID, Name: n}))
	}
	return out
}
