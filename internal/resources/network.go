package resources

import (
	"github.com/docker/docker/api/types/network"

	"github.com/dockgen/dockgen/internal/enhanced"
)

// NetworkInfo is a view over a network.
type NetworkInfo struct {
	raw *network.Summary
}

func NewNetwork(raw *network.Summary) *NetworkInfo {
	return &NetworkInfo{raw: raw}
}

func (n *NetworkInfo) Kind() Kind { return KindNetwork }

func (n *NetworkInfo) Raw() any {
	if n == nil || n.raw == nil {
		return nil
	}
	return n.raw
}

func (n *NetworkInfo) ID() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return n.raw.ID
}

func (n *NetworkInfo) Name() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return n.raw.Name
}

func (n *NetworkInfo) Labels() enhanced.Dict[string] {
	if n == nil || n.raw == nil {
		return enhanced.Dict[string]{}
	}
	return labelsOf(n.raw.Labels)
}

func (n *NetworkInfo) Driver() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return n.raw.Driver
}

func (n *NetworkInfo) Scope() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return n.raw.Scope
}
