package docker

import (
	"context"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dockgen/dockgen/internal/logging"
	"github.com/dockgen/dockgen/internal/resources"
)

// API turns raw engine listings into resource lists.
type API struct {
	client Client
	log    *zerolog.Logger
}

// NewAPI wraps c. log may be nil.
func NewAPI(c Client, log *zerolog.Logger) *API {
	if log == nil {
		log = logging.Component("api")
	}
	return &API{client: c, log: log}
}

// Client exposes the underlying facade for actions that need it.
func (a *API) Client() Client { return a.client }

func (a *API) Containers(ctx context.Context) (resources.ContainerList, error) {
	raw, err := a.client.ListContainers(ctx, filters.NewArgs())
	if err != nil {
		return nil, err
	}
	out := make(resources.ContainerList, 0, len(raw))
	for i := range raw {
		out = append(out, resources.NewContainer(&raw[i]))
	}
	return out, nil
}

// Services lists swarm services. Each view fetches its tasks through the
// facade with ctx whenever Tasks is read, so ctx must outlive the views.
func (a *API) Services(ctx context.Context) (resources.ServiceList, error) {
	raw, err := a.client.ListServices(ctx, filters.NewArgs())
	if err != nil {
		return nil, err
	}
	fetch := a.taskFetcher(ctx)
	out := make(resources.ServiceList, 0, len(raw))
	for i := range raw {
		out = append(out, resources.NewService(&raw[i], fetch))
	}
	return out, nil
}

func (a *API) Nodes(ctx context.Context) (resources.NodeList, error) {
	raw, err := a.client.ListNodes(ctx, filters.NewArgs())
	if err != nil {
		return nil, err
	}
	out := make(resources.NodeList, 0, len(raw))
	for i := range raw {
		out = append(out, resources.NewNode(&raw[i]))
	}
	return out, nil
}

func (a *API) Networks(ctx context.Context) (resources.NetworkList, error) {
	raw, err := a.client.ListNetworks(ctx, filters.NewArgs())
	if err != nil {
		return nil, err
	}
	out := make(resources.NetworkList, 0, len(raw))
	for i := range raw {
		out = append(out, resources.NewNetwork(&raw[i]))
	}
	return out, nil
}

// taskFetcher adapts ListTasksForService to the error-free TaskFetcher used
// by templates. Failures are logged and yield no tasks.
func (a *API) taskFetcher(ctx context.Context) resources.TaskFetcher {
	return func(svc *swarm.Service) []swarm.Task {
		tasks, err := a.client.ListTasksForService(ctx, svc)
		if err != nil {
			a.log.Warn().Err(err).Str("service", svc.Spec.Name).Msg("could not list tasks")
			return nil
		}
		return tasks
	}
}

// State is one listing of the engine.
type State struct {
	Containers resources.ContainerList
	// Services excludes replicated services scaled to zero.
	Services    resources.ServiceList
	AllServices resources.ServiceList
	Nodes       resources.NodeList
	Networks    resources.NetworkList
}

// State lists every resource kind concurrently. Services and nodes are
// empty unless the engine is an active swarm manager.
func (a *API) State(ctx context.Context) (*State, error) {
	st := &State{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Containers, err = a.Containers(gctx)
		return err
	})
	g.Go(func() error {
		// Task fetches happen after State returns, so they get ctx rather
		// than the group context, which is cancelled on Wait.
		raw, err := a.client.ListServices(gctx, filters.NewArgs())
		if err != nil {
			return err
		}
		fetch := a.taskFetcher(ctx)
		for i := range raw {
			st.AllServices = append(st.AllServices, resources.NewService(&raw[i], fetch))
		}
		return nil
	})
	g.Go(func() (err error) {
		st.Nodes, err = a.Nodes(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.Networks, err = a.Networks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	st.Services = activeServices(st.AllServices)
	return st, nil
}

func activeServices(all resources.ServiceList) resources.ServiceList {
	out := make(resources.ServiceList, 0, len(all))
	for _, s := range all {
		if svc, ok := s.Raw().(*swarm.Service); ok {
			if r := svc.Spec.Mode.Replicated; r != nil && r.Replicas != nil && *r.Replicas == 0 {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}
