package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"

	"github.com/dockgen/dockgen/internal/logging"
)

const defaultStopTimeout = 10 * time.Second

// Client is the interface used by the generator, the action dispatcher and
// the watch loop for Docker operations.
type Client interface {
	// ListContainers inspects every listed container so views can read the
	// full configuration. Containers that vanish between list and inspect
	// are skipped.
	ListContainers(ctx context.Context, args filters.Args) ([]container.InspectResponse, error)
	// ListServices returns nil when the engine is not an active swarm
	// manager.
	ListServices(ctx context.Context, args filters.Args) ([]swarm.Service, error)
	ListTasksForService(ctx context.Context, svc *swarm.Service) ([]swarm.Task, error)
	ListNodes(ctx context.Context, args filters.Args) ([]swarm.Node, error)
	ListNetworks(ctx context.Context, args filters.Args) ([]network.Summary, error)
	Events(ctx context.Context, args filters.Args) (<-chan events.Message, <-chan error)

	Restart(ctx context.Context, id string) error
	Signal(ctx context.Context, id, signal string) error
	// ForceUpdateService bumps the task template's ForceUpdate counter so the
	// orchestrator replaces every task even though the service definition is unchanged.
	ForceUpdateService(ctx context.Context, svc *swarm.Service) error
	IsSwarmManager(ctx context.Context) (bool, error)
	Close() error
}

// dockerAPI is the subset of the SDK client used by sdkClient.
type dockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerKill(ctx context.Context, containerID, signal string) error
	ServiceList(ctx context.Context, options swarm.ServiceListOptions) ([]swarm.Service, error)
	ServiceInspectWithRaw(ctx context.Context, serviceID string, options swarm.ServiceInspectOptions) (swarm.Service, []byte, error)
	ServiceUpdate(ctx context.Context, serviceID string, version swarm.Version, service swarm.ServiceSpec, options swarm.ServiceUpdateOptions) (swarm.ServiceUpdateResponse, error)
	TaskList(ctx context.Context, options swarm.TaskListOptions) ([]swarm.Task, error)
	NodeList(ctx context.Context, options swarm.NodeListOptions) ([]swarm.Node, error)
	NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error)
	Events(ctx context.Context, options events.ListOptions) (<-chan events.Message, <-chan error)
	Info(ctx context.Context) (system.Info, error)
	Close() error
}

// sdkClient is the production implementation using the official Docker SDK.
type sdkClient struct {
	cli          dockerAPI
	all          bool
	skipServices bool
	stopTimeout  time.Duration
	log          *zerolog.Logger
}

// Options tune the SDK-backed client.
type Options struct {
	// Host overrides DOCKER_HOST; empty means FromEnv.
	Host string
	// All lists stopped containers as well as running ones.
	All bool
	// StopTimeout bounds how long Restart waits before killing.
	StopTimeout time.Duration
	// SkipServices makes ListServices return nothing even on a manager.
	SkipServices bool
}

// NewClient returns an SDK-backed Docker client configured from the
// environment.
func NewClient() (Client, error) {
	return NewClientWithOptions(Options{})
}

// NewClientWithOptions returns a client for opts.Host, or for the endpoint
// described by DOCKER_HOST and friends when Host is empty.
func NewClientWithOptions(opts Options) (Client, error) {
	clientOpts := []client.Opt{client.WithAPIVersionNegotiation()}
	if opts.Host != "" {
		clientOpts = append(clientOpts, client.WithHost(opts.Host))
	} else {
		clientOpts = append(clientOpts, client.FromEnv)
	}
	c, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return newSDKClient(c, opts), nil
}

func newSDKClient(api dockerAPI, opts Options) *sdkClient {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	return &sdkClient{
		cli:          api,
		all:          opts.All,
		skipServices: opts.SkipServices,
		stopTimeout:  opts.StopTimeout,
		log:          logging.Component("docker"),
	}
}

func (s *sdkClient) ListContainers(ctx context.Context, args filters.Args) ([]container.InspectResponse, error) {
	list, err := s.cli.ContainerList(ctx, container.ListOptions{All: s.all, Filters: args})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	out := make([]container.InspectResponse, 0, len(list))
	for _, c := range list {
		insp, err := s.cli.ContainerInspect(ctx, c.ID)
		if err != nil {
			if client.IsErrNotFound(err) {
				s.log.Debug().Str("container", c.ID).Msg("container vanished before inspect")
				continue
			}
			return nil, fmt.Errorf("inspect container %s: %w", c.ID, err)
		}
		out = append(out, insp)
	}
	return out, nil
}

func (s *sdkClient) ListServices(ctx context.Context, args filters.Args) ([]swarm.Service, error) {
	if s.skipServices {
		return nil, nil
	}
	manager, err := s.IsSwarmManager(ctx)
	if err != nil {
		return nil, err
	}
	if !manager {
		return nil, nil
	}
	list, err := s.cli.ServiceList(ctx, swarm.ServiceListOptions{Filters: args, Status: true})
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return list, nil
}

func (s *sdkClient) ListTasksForService(ctx context.Context, svc *swarm.Service) ([]swarm.Task, error) {
	if svc == nil || svc.ID == "" {
		return nil, nil
	}
	args := filters.NewArgs(filters.Arg("service", svc.ID))
	list, err := s.cli.TaskList(ctx, swarm.TaskListOptions{Filters: args})
	if err != nil {
		return nil, fmt.Errorf("list tasks for %s: %w", svc.ID, err)
	}
	return list, nil
}

func (s *sdkClient) ListNodes(ctx context.Context, args filters.Args) ([]swarm.Node, error) {
	manager, err := s.IsSwarmManager(ctx)
	if err != nil || !manager {
		return nil, err
	}
	list, err := s.cli.NodeList(ctx, swarm.NodeListOptions{Filters: args})
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return list, nil
}

func (s *sdkClient) ListNetworks(ctx context.Context, args filters.Args) ([]network.Summary, error) {
	list, err := s.cli.NetworkList(ctx, network.ListOptions{Filters: args})
	if err != nil {
		return nil, fmt.Errorf("list networks: %w", err)
	}
	return list, nil
}

func (s *sdkClient) Events(ctx context.Context, args filters.Args) (<-chan events.Message, <-chan error) {
	return s.cli.Events(ctx, events.ListOptions{Filters: args})
}

func (s *sdkClient) Restart(ctx context.Context, id string) error {
	secs := int(s.stopTimeout / time.Second)
	if err := s.cli.ContainerRestart(ctx, id, container.StopOptions{Timeout: &secs}); err != nil {
		return fmt.Errorf("restart container %s: %w", id, err)
	}
	s.log.Info().Str("container", id).Msg("restarted container")
	return nil
}

func (s *sdkClient) Signal(ctx context.Context, id, signal string) error {
	if err := s.cli.ContainerKill(ctx, id, signal); err != nil {
		return fmt.Errorf("signal %s to container %s: %w", signal, id, err)
	}
	s.log.Info().Str("container", id).Str("signal", signal).Msg("signalled container")
	return nil
}

func (s *sdkClient) ForceUpdateService(ctx context.Context, svc *swarm.Service) error {
	if svc == nil || svc.ID == "" {
		return fmt.Errorf("force update: service has no id")
	}
	// Re-read so the version matches what the manager holds now.
	current, _, err := s.cli.ServiceInspectWithRaw(ctx, svc.ID, swarm.ServiceInspectOptions{})
	if err != nil {
		return fmt.Errorf("inspect service %s: %w", svc.ID, err)
	}
	spec := current.Spec
	spec.TaskTemplate.ForceUpdate++
	resp, err := s.cli.ServiceUpdate(ctx, current.ID, current.Version, spec, swarm.ServiceUpdateOptions{})
	if err != nil {
		return fmt.Errorf("update service %s: %w", svc.ID, err)
	}
	for _, w := range resp.Warnings {
		s.log.Warn().Str("service", current.Spec.Name).Msg(w)
	}
	s.log.Info().Str("service", current.Spec.Name).Uint64("force_update", spec.TaskTemplate.ForceUpdate).Msg("forced service update")
	return nil
}

func (s *sdkClient) IsSwarmManager(ctx context.Context) (bool, error) {
	info, err := s.cli.Info(ctx)
	if err != nil {
		return false, fmt.Errorf("engine info: %w", err)
	}
	return info.Swarm.LocalNodeState == swarm.LocalNodeStateActive && info.Swarm.ControlAvailable, nil
}

func (s *sdkClient) Close() error {
	return s.cli.Close()
}
