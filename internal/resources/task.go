package resources

import (
	"strconv"

	"github.com/docker/docker/api/types/swarm"

	"github.com/dockgen/dockgen/internal/enhanced"
)

// TaskInfo is a view over a swarm task. The owning service, when known,
// supplies the task name and the swarm labels Docker puts on task
// containers.
type TaskInfo struct {
	raw     *swarm.Task
	service *swarm.Service
}

// NewTask wraps a task. service may be nil.
func NewTask(raw *swarm.Task, service *swarm.Service) *TaskInfo {
	return &TaskInfo{raw: raw, service: service}
}

func (t *TaskInfo) Kind() Kind { return KindTask }

func (t *TaskInfo) Raw() any {
	if t == nil || t.raw == nil {
		return nil
	}
	return t.raw
}

func (t *TaskInfo) ID() string {
	if t == nil || t.raw == nil {
		return ""
	}
	return t.raw.ID
}

// Name follows the engine's container naming: service.slot.id for
// replicated services and service.node.id for global ones.
func (t *TaskInfo) Name() string {
	if t == nil || t.raw == nil {
		return ""
	}
	if t.raw.Name != "" {
		return t.raw.Name
	}
	if t.service == nil || t.service.Spec.Name == "" {
		return ""
	}
	middle := t.raw.NodeID
	if t.raw.Slot > 0 {
		middle = strconv.Itoa(t.raw.Slot)
	}
	return t.service.Spec.Name + "." + middle + "." + t.raw.ID
}

// Labels merges the task labels over the container spec labels and fills
// in the swarm service and stack labels from the owning service.
func (t *TaskInfo) Labels() enhanced.Dict[string] {
	out := enhanced.Dict[string]{}
	if t == nil || t.raw == nil {
		return out
	}
	if cs := t.raw.Spec.ContainerSpec; cs != nil {
		for k, v := range cs.Labels {
			out[k] = v
		}
	}
	for k, v := range t.raw.Labels {
		out[k] = v
	}
	setDefault := func(k, v string) {
		if _, ok := out[k]; !ok && v != "" {
			out[k] = v
		}
	}
	setDefault(LabelSwarmTaskID, t.raw.ID)
	setDefault(LabelSwarmServiceID, t.raw.ServiceID)
	if t.service != nil {
		setDefault(LabelSwarmService, t.service.Spec.Name)
		setDefault(LabelStackNamespace, t.service.Spec.Labels[LabelStackNamespace])
	}
	return out
}

func (t *TaskInfo) ContainerID() string {
	if t == nil || t.raw == nil || t.raw.Status.ContainerStatus == nil {
		return ""
	}
	return t.raw.Status.ContainerStatus.ContainerID
}

func (t *TaskInfo) ServiceID() string {
	if t == nil || t.raw == nil {
		return ""
	}
	return t.raw.ServiceID
}

func (t *TaskInfo) NodeID() string {
	if t == nil || t.raw == nil {
		return ""
	}
	return t.raw.NodeID
}

func (t *TaskInfo) Slot() int {
	if t == nil || t.raw == nil {
		return 0
	}
	return t.raw.Slot
}

func (t *TaskInfo) DesiredState() string {
	if t == nil || t.raw == nil {
		return ""
	}
	return string(t.raw.DesiredState)
}

// Status is the observed task state, e.g. "running".
func (t *TaskInfo) Status() string {
	if t == nil || t.raw == nil {
		return ""
	}
	return string(t.raw.Status.State)
}

func (t *TaskInfo) Image() string {
	if t == nil || t.raw == nil || t.raw.Spec.ContainerSpec == nil {
		return ""
	}
	return stripDigest(t.raw.Spec.ContainerSpec.Image)
}

func (t *TaskInfo) Env() enhanced.Dict[string] {
	if t == nil || t.raw == nil || t.raw.Spec.ContainerSpec == nil {
		return enhanced.Dict[string]{}
	}
	return parseEnv(t.raw.Spec.ContainerSpec.Env)
}
