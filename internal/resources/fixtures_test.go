package resources

import (
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/swarm"
)

type ctrFixture struct {
	id     string
	name   string
	labels map[string]string
	env    []string
}

func newTestContainer(f ctrFixture) *ContainerInfo {
	return NewContainer(&container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{ID: f.id, Name: "/" + f.name},
		Config:            &container.Config{Labels: f.labels, Env: f.env},
	})
}

func testContainers(fs ...ctrFixture) ContainerList {
	out := make(ContainerList, 0, len(fs))
	for _, f := range fs {
		out = append(out, newTestContainer(f))
	}
	return out
}

func attachedContainer(networks map[string]string) *ContainerInfo {
	eps := map[string]*network.EndpointSettings{}
	for name, id := range networks {
		eps[name] = &network.EndpointSettings{NetworkID: id}
	}
	return NewContainer(&container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{ID: "c-attached", Name: "/attached"},
		NetworkSettings:   &container.NetworkSettings{Networks: eps},
	})
}

func testServices(specs ...swarm.Service) ServiceList {
	out := make(ServiceList, 0, len(specs))
	for i := range specs {
		out = append(out, NewService(&specs[i], nil))
	}
	return out
}

func namedService(id, name string, labels map[string]string) swarm.Service {
	return swarm.Service{
		ID: id,
		Spec: swarm.ServiceSpec{
			Annotations: swarm.Annotations{Name: name, Labels: labels},
		},
	}
}

type taskFixture struct {
	id          string
	containerID string
	serviceID   string
	status      string
	labels      map[string]string
}

func testTasks(fs ...taskFixture) TaskList {
	out := make(TaskList, 0, len(fs))
	for _, f := range fs {
		raw := &swarm.Task{
			ID:          f.id,
			Annotations: swarm.Annotations{Labels: f.labels},
			ServiceID:   f.serviceID,
			Status:      swarm.TaskStatus{State: swarm.TaskState(f.status)},
		}
		if f.containerID != "" {
			raw.Status.ContainerStatus = &swarm.ContainerStatus{ContainerID: f.containerID}
		}
		out = append(out, NewTask(raw, nil))
	}
	return out
}

func testNetworks(ids ...string) NetworkList {
	out := make(NetworkList, 0, len(ids))
	for _, id := range ids {
		out = append(out, NewNetwork(&network.Summary{ID: id, Name: "net-" + id}))
	}
	return out
}
