package resources

import (
	"sort"
	"strings"

	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/go-connections/nat"

	"github.com/dockgen/dockgen/internal/enhanced"
)

// Ports groups port numbers by protocol ("tcp", "udp", "sctp"). Templates
// reach a group with .Ports.tcp; a missing protocol yields an empty list.
type Ports map[string]enhanced.List[int]

// TCP returns the tcp group.
func (p Ports) TCP() enhanced.List[int] { return p["tcp"] }

// UDP returns the udp group.
func (p Ports) UDP() enhanced.List[int] { return p["udp"] }

// Ingress describes the ports a swarm service publishes on the routing mesh.
type Ingress struct {
	Ports Ports
}

func (p Ports) add(proto string, port int) {
	if port <= 0 {
		return
	}
	proto = strings.ToLower(proto)
	if proto == "" {
		proto = "tcp"
	}
	p[proto] = append(p[proto], port)
}

// containerPorts lists the container-side ports that have at least one host
// binding. The engine reports a map, so ports are ordered numerically.
func containerPorts(pm nat.PortMap) Ports {
	out := Ports{}
	keys := make([]nat.Port, 0, len(pm))
	for p, bindings := range pm {
		if len(bindings) == 0 {
			continue
		}
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Int() != keys[j].Int() {
			return keys[i].Int() < keys[j].Int()
		}
		return keys[i].Proto() < keys[j].Proto()
	})
	for _, p := range keys {
		out.add(p.Proto(), p.Int())
	}
	return out
}

// swarmPorts groups port configs in listing order, reading either the target
// or the published side.
func swarmPorts(cfgs []swarm.PortConfig, published bool) Ports {
	out := Ports{}
	for _, c := range cfgs {
		port := c.TargetPort
		if published {
			if c.PublishMode != "" && c.PublishMode != swarm.PortConfigPublishModeIngress {
				continue
			}
			port = c.PublishedPort
		}
		out.add(string(c.Protocol), int(port))
	}
	return out
}
