package docker

import (
	"context"
	"fmt"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/errdefs"
)

// fakeDockerAPI implements the subset of Docker client methods used by sdkClient.
type fakeDockerAPI struct {
	mu sync.Mutex

	info       system.Info
	infoErr    error
	summaries  []container.Summary
	inspects   map[string]container.InspectResponse
	services   []swarm.Service
	tasks      map[string][]swarm.Task
	nodes      []swarm.Node
	networks   []network.Summary
	listErr    error
	restartErr error

	listOpts    container.ListOptions
	taskOpts    []swarm.TaskListOptions
	restarted   []string
	restartWait []*int
	killed      map[string]string
	updated     []swarm.ServiceSpec
	versions    []swarm.Version
	closed      bool
}

func (f *fakeDockerAPI) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	f.listOpts = options
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.summaries, nil
}

func (f *fakeDockerAPI) ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error) {
	insp, ok := f.inspects[containerID]
	if !ok {
		return container.InspectResponse{}, errdefs.NotFound(fmt.Errorf("no such container: %s", containerID))
	}
	return insp, nil
}

func (f *fakeDockerAPI) ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restartErr != nil {
		return f.restartErr
	}
	f.restarted = append(f.restarted, containerID)
	f.restartWait = append(f.restartWait, options.Timeout)
	return nil
}

func (f *fakeDockerAPI) ContainerKill(ctx context.Context, containerID, signal string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.killed == nil {
		f.killed = map[string]string{}
	}
	f.killed[containerID] = signal
	return nil
}

func (f *fakeDockerAPI) ServiceList(ctx context.Context, options swarm.ServiceListOptions) ([]swarm.Service, error) {
	return f.services, nil
}

func (f *fakeDockerAPI) ServiceInspectWithRaw(ctx context.Context, serviceID string, options swarm.ServiceInspectOptions) (swarm.Service, []byte, error) {
	for _, s := range f.services {
		if s.ID == serviceID {
			return s, nil, nil
		}
	}
	return swarm.Service{}, nil, errdefs.NotFound(fmt.Errorf("no such service: %s", serviceID))
}

func (f *fakeDockerAPI) ServiceUpdate(ctx context.Context, serviceID string, version swarm.Version, service swarm.ServiceSpec, options swarm.ServiceUpdateOptions) (swarm.ServiceUpdateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, service)
	f.versions = append(f.versions, version)
	return swarm.ServiceUpdateResponse{Warnings: []string{"image could not be pinned"}}, nil
}

func (f *fakeDockerAPI) TaskList(ctx context.Context, options swarm.TaskListOptions) ([]swarm.Task, error) {
	f.mu.Lock()
	f.taskOpts = append(f.taskOpts, options)
	f.mu.Unlock()
	return f.tasks[options.Filters.Get("service")[0]], nil
}

func (f *fakeDockerAPI) NodeList(ctx context.Context, options swarm.NodeListOptions) ([]swarm.Node, error) {
	return f.nodes, nil
}

func (f *fakeDockerAPI) NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error) {
	return f.networks, nil
}

func (f *fakeDockerAPI) Events(ctx context.Context, options events.ListOptions) (<-chan events.Message, <-chan error) {
	msgs := make(chan events.Message, 1)
	errs := make(chan error, 1)
	msgs <- events.Message{Type: events.ContainerEventType, Action: events.ActionStart}
	return msgs, errs
}

func (f *fakeDockerAPI) Info(ctx context.Context) (system.Info, error) {
	return f.info, f.infoErr
}

func (f *fakeDockerAPI) Close() error {
	f.closed = true
	return nil
}

func managerInfo() system.Info {
	return system.Info{Swarm: swarm.Info{LocalNodeState: swarm.LocalNodeStateActive, ControlAvailable: true}}
}

func inspected(id, name string) container.InspectResponse {
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{ID: id, Name: "/" + name},
		Config:            &container.Config{},
	}
}
