package docker

import (
	"context"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replicas(n uint64) swarm.ServiceMode {
	return swarm.ServiceMode{Replicated: &swarm.ReplicatedService{Replicas: &n}}
}

func newTestAPI(f *fakeDockerAPI) *API {
	return NewAPI(newSDKClient(f, Options{}), nil)
}

func TestStateListsEveryKind(t *testing.T) {
	web := swarm.Service{ID: "s1", Spec: swarm.ServiceSpec{Annotations: swarm.Annotations{Name: "web"}, Mode: replicas(2)}}
	idle := swarm.Service{ID: "s2", Spec: swarm.ServiceSpec{Annotations: swarm.Annotations{Name: "idle"}, Mode: replicas(0)}}
	agent := swarm.Service{ID: "s3", Spec: swarm.ServiceSpec{Annotations: swarm.Annotations{Name: "agent"}, Mode: swarm.ServiceMode{Global: &swarm.GlobalService{}}}}
	f := &fakeDockerAPI{
		info:      managerInfo(),
		summaries: []container.Summary{{ID: "c1"}},
		inspects:  map[string]container.InspectResponse{"c1": inspected("c1", "proxy")},
		services:  []swarm.Service{web, idle, agent},
		tasks:     map[string][]swarm.Task{"s1": {{ID: "t1", ServiceID: "s1", Slot: 1}}},
		nodes:     []swarm.Node{{ID: "n1"}},
		networks:  []network.Summary{{ID: "net1", Name: "bridge"}},
	}

	st, err := newTestAPI(f).State(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"c1"}, st.Containers.IDs())
	assert.Equal(t, []string{"s1", "s2", "s3"}, st.AllServices.IDs())
	assert.Equal(t, []string{"s1", "s3"}, st.Services.IDs(), "services scaled to zero are dropped")
	assert.Equal(t, []string{"n1"}, st.Nodes.IDs())
	assert.Equal(t, []string{"net1"}, st.Networks.IDs())

	tasks := st.Services.Matching("web").First().Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "web.1.t1", tasks.First().Name())
}

func TestStateWithoutSwarm(t *testing.T) {
	f := &fakeDockerAPI{
		services: []swarm.Service{{ID: "ignored"}},
		nodes:    []swarm.Node{{ID: "ignored"}},
	}

	st, err := newTestAPI(f).State(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.Services)
	assert.Empty(t, st.AllServices)
	assert.Empty(t, st.Nodes)
}

func TestStateFailsWhenAListingFails(t *testing.T) {
	f := &fakeDockerAPI{listErr: assert.AnError}

	_, err := newTestAPI(f).State(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestServiceTasksAreReadOnEveryAccess(t *testing.T) {
	f := &fakeDockerAPI{
		info:     managerInfo(),
		services: []swarm.Service{{ID: "s1", Spec: swarm.ServiceSpec{Annotations: swarm.Annotations{Name: "web"}}}},
		tasks:    map[string][]swarm.Task{"s1": {{ID: "t1"}}},
	}

	services, err := newTestAPI(f).Services(context.Background())
	require.NoError(t, err)
	svc := services.First()

	assert.Len(t, svc.Tasks(), 1)
	f.tasks["s1"] = append(f.tasks["s1"], swarm.Task{ID: "t2"})
	assert.Len(t, svc.Tasks(), 2)
	assert.Len(t, f.taskOpts, 2)
}

func TestContainerNetworksMatchEngineNetworks(t *testing.T) {
	c := inspected("c1", "proxy")
	c.NetworkSettings = &container.NetworkSettings{Networks: map[string]*network.EndpointSettings{
		"front": {NetworkID: "net-front"},
	}}
	f := &fakeDockerAPI{
		summaries: []container.Summary{{ID: "c1"}},
		inspects:  map[string]container.InspectResponse{"c1": c},
		networks:  []network.Summary{{ID: "net-front", Name: "front"}, {ID: "net-back", Name: "back"}},
	}
	api := newTestAPI(f)

	containers, err := api.Containers(context.Background())
	require.NoError(t, err)
	networks, err := api.Networks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"net-front"}, networks.Matching(containers.First()).IDs())
	assert.Equal(t, []string{"net-back"}, networks.NotMatching(containers.First()).IDs())
}
