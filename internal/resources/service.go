package resources

import (
	"github.com/docker/docker/api/types/swarm"

	"github.com/dockgen/dockgen/internal/enhanced"
)

// TaskFetcher loads the current tasks of a service. It is called on every
// ServiceInfo.Tasks access and may block on the engine.
type TaskFetcher func(svc *swarm.Service) []swarm.Task

// ServiceInfo is a view over a swarm service.
type ServiceInfo struct {
	raw        *swarm.Service
	fetchTasks TaskFetcher
}

// NewService wraps a service. fetch may be nil, in which case Tasks is
// always empty.
func NewService(raw *swarm.Service, fetch TaskFetcher) *ServiceInfo {
	return &ServiceInfo{raw: raw, fetchTasks: fetch}
}

func (s *ServiceInfo) Kind() Kind { return KindService }

func (s *ServiceInfo) Raw() any {
	if s == nil || s.raw == nil {
		return nil
	}
	return s.raw
}

func (s *ServiceInfo) ID() string {
	if s == nil || s.raw == nil {
		return ""
	}
	return s.raw.ID
}

func (s *ServiceInfo) Name() string {
	if s == nil || s.raw == nil {
		return ""
	}
	return s.raw.Spec.Name
}

func (s *ServiceInfo) Labels() enhanced.Dict[string] {
	if s == nil || s.raw == nil {
		return enhanced.Dict[string]{}
	}
	return labelsOf(s.raw.Spec.Labels)
}

func (s *ServiceInfo) containerSpec() *swarm.ContainerSpec {
	if s == nil || s.raw == nil {
		return nil
	}
	return s.raw.Spec.TaskTemplate.ContainerSpec
}

// Image is the service image without its pinned digest.
func (s *ServiceInfo) Image() string {
	if cs := s.containerSpec(); cs != nil {
		return stripDigest(cs.Image)
	}
	return ""
}

func (s *ServiceInfo) Env() enhanced.Dict[string] {
	if cs := s.containerSpec(); cs != nil {
		return parseEnv(cs.Env)
	}
	return enhanced.Dict[string]{}
}

// Ports groups the target ports declared in the endpoint spec.
func (s *ServiceInfo) Ports() Ports {
	if s == nil || s.raw == nil || s.raw.Spec.EndpointSpec == nil {
		return Ports{}
	}
	return swarmPorts(s.raw.Spec.EndpointSpec.Ports, false)
}

// Ingress groups the ports published on the routing mesh.
func (s *ServiceInfo) Ingress() Ingress {
	if s == nil || s.raw == nil {
		return Ingress{Ports: Ports{}}
	}
	return Ingress{Ports: swarmPorts(s.raw.Endpoint.Ports, true)}
}

// Mode is "replicated", "global" or "" when unknown.
func (s *ServiceInfo) Mode() string {
	if s == nil || s.raw == nil {
		return ""
	}
	switch {
	case s.raw.Spec.Mode.Replicated != nil:
		return "replicated"
	case s.raw.Spec.Mode.Global != nil:
		return "global"
	}
	return ""
}

// Tasks fetches the service's tasks. The result is never cached.
func (s *ServiceInfo) Tasks() TaskList {
	if s == nil || s.raw == nil || s.fetchTasks == nil {
		return TaskList{}
	}
	raw := s.fetchTasks(s.raw)
	out := make(TaskList, 0, len(raw))
	for i := range raw {
		out = append(out, NewTask(&raw[i], s.raw))
	}
	return out
}
