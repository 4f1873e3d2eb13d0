package resources

import (
	"github.com/docker/docker/api/types/swarm"

	"github.com/dockgen/dockgen/internal/enhanced"
)

// NodeInfo is a view over a swarm node.
type NodeInfo struct {
	raw *swarm.Node
}

func NewNode(raw *swarm.Node) *NodeInfo {
	return &NodeInfo{raw: raw}
}

func (n *NodeInfo) Kind() Kind { return KindNode }

func (n *NodeInfo) Raw() any {
	if n == nil || n.raw == nil {
		return nil
	}
	return n.raw
}

func (n *NodeInfo) ID() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return n.raw.ID
}

// Name prefers the node's annotated name and falls back to the hostname.
func (n *NodeInfo) Name() string {
	if n == nil || n.raw == nil {
		return ""
	}
	if n.raw.Spec.Name != "" {
		return n.raw.Spec.Name
	}
	return n.raw.Description.Hostname
}

func (n *NodeInfo) Labels() enhanced.Dict[string] {
	if n == nil || n.raw == nil {
		return enhanced.Dict[string]{}
	}
	return labelsOf(n.raw.Spec.Labels)
}

func (n *NodeInfo) Hostname() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return n.raw.Description.Hostname
}

// Role is "manager" or "worker".
func (n *NodeInfo) Role() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return string(n.raw.Spec.Role)
}

func (n *NodeInfo) Availability() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return string(n.raw.Spec.Availability)
}

func (n *NodeInfo) State() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return string(n.raw.Status.State)
}

func (n *NodeInfo) Address() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return n.raw.Status.Addr
}

func (n *NodeInfo) Leader() bool {
	return n != nil && n.raw != nil && n.raw.ManagerStatus != nil && n.raw.ManagerStatus.Leader
}
