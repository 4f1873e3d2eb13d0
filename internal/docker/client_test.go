package docker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/api/types/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListContainersInspectsAndSkipsVanished(t *testing.T) {
	f := &fakeDockerAPI{
		summaries: []container.Summary{{ID: "a"}, {ID: "gone"}, {ID: "b"}},
		inspects: map[string]container.InspectResponse{
			"a": inspected("a", "alpha"),
			"b": inspected("b", "beta"),
		},
	}
	s := newSDKClient(f, Options{All: true})

	got, err := s.ListContainers(context.Background(), filters.NewArgs(filters.Arg("label", "x")))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/alpha", got[0].Name)
	assert.Equal(t, "/beta", got[1].Name)
	assert.True(t, f.listOpts.All)
	assert.True(t, f.listOpts.Filters.Contains("label"))
}

func TestListContainersWrapsListError(t *testing.T) {
	boom := errors.New("daemon down")
	s := newSDKClient(&fakeDockerAPI{listErr: boom}, Options{})

	_, err := s.ListContainers(context.Background(), filters.NewArgs())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "list containers")
}

func TestListServicesRequiresManager(t *testing.T) {
	services := []swarm.Service{{ID: "s1"}}

	worker := newSDKClient(&fakeDockerAPI{
		info:     system.Info{Swarm: swarm.Info{LocalNodeState: swarm.LocalNodeStateActive}},
		services: services,
	}, Options{})
	got, err := worker.ListServices(context.Background(), filters.NewArgs())
	require.NoError(t, err)
	assert.Empty(t, got)

	inactive := newSDKClient(&fakeDockerAPI{services: services}, Options{})
	got, err = inactive.ListServices(context.Background(), filters.NewArgs())
	require.NoError(t, err)
	assert.Empty(t, got)

	manager := newSDKClient(&fakeDockerAPI{info: managerInfo(), services: services}, Options{})
	got, err = manager.ListServices(context.Background(), filters.NewArgs())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	skipped := newSDKClient(&fakeDockerAPI{info: managerInfo(), services: services}, Options{SkipServices: true})
	got, err = skipped.ListServices(context.Background(), filters.NewArgs())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListServicesPropagatesInfoError(t *testing.T) {
	s := newSDKClient(&fakeDockerAPI{infoErr: errors.New("refused")}, Options{})

	_, err := s.ListServices(context.Background(), filters.NewArgs())
	assert.ErrorContains(t, err, "engine info")
}

func TestListTasksFiltersByService(t *testing.T) {
	f := &fakeDockerAPI{tasks: map[string][]swarm.Task{"s1": {{ID: "t1"}, {ID: "t2"}}}}
	s := newSDKClient(f, Options{})

	got, err := s.ListTasksForService(context.Background(), &swarm.Service{ID: "s1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.Len(t, f.taskOpts, 1)
	assert.Equal(t, []string{"s1"}, f.taskOpts[0].Filters.Get("service"))

	got, err = s.ListTasksForService(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRestartUsesStopTimeout(t *testing.T) {
	f := &fakeDockerAPI{}
	s := newSDKClient(f, Options{StopTimeout: 3 * time.Second})

	require.NoError(t, s.Restart(context.Background(), "c1"))
	assert.Equal(t, []string{"c1"}, f.restarted)
	require.NotNil(t, f.restartWait[0])
	assert.Equal(t, 3, *f.restartWait[0])
}

func TestRestartWrapsError(t *testing.T) {
	s := newSDKClient(&fakeDockerAPI{restartErr: errors.New("no such container")}, Options{})

	err := s.Restart(context.Background(), "c1")
	assert.ErrorContains(t, err, "restart container c1")
}

func TestSignalSendsKill(t *testing.T) {
	f := &fakeDockerAPI{}
	s := newSDKClient(f, Options{})

	require.NoError(t, s.Signal(context.Background(), "c1", "SIGHUP"))
	assert.Equal(t, "SIGHUP", f.killed["c1"])
}

func TestForceUpdateBumpsCounterOnCurrentVersion(t *testing.T) {
	current := swarm.Service{ID: "s1"}
	current.Version.Index = 42
	current.Spec.Name = "web"
	current.Spec.TaskTemplate.ForceUpdate = 4
	f := &fakeDockerAPI{services: []swarm.Service{current}}
	s := newSDKClient(f, Options{})

	stale := &swarm.Service{ID: "s1"}
	require.NoError(t, s.ForceUpdateService(context.Background(), stale))
	require.Len(t, f.updated, 1)
	assert.Equal(t, uint64(5), f.updated[0].TaskTemplate.ForceUpdate)
	assert.Equal(t, uint64(42), f.versions[0].Index)

	assert.Error(t, s.ForceUpdateService(context.Background(), &swarm.Service{}))
	assert.Error(t, s.ForceUpdateService(context.Background(), &swarm.Service{ID: "missing"}))
}

func TestIsSwarmManager(t *testing.T) {
	cases := []struct {
		name string
		info system.Info
		want bool
	}{
		{"standalone", system.Info{}, false},
		{"worker", system.Info{Swarm: swarm.Info{LocalNodeState: swarm.LocalNodeStateActive}}, false},
		{"pending manager", system.Info{Swarm: swarm.Info{LocalNodeState: swarm.LocalNodeStatePending, ControlAvailable: true}}, false},
		{"manager", managerInfo(), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newSDKClient(&fakeDockerAPI{info: tc.info}, Options{})
			got, err := s.IsSwarmManager(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEventsAndClosePassThrough(t *testing.T) {
	f := &fakeDockerAPI{}
	s := newSDKClient(f, Options{})

	msgs, _ := s.Events(context.Background(), filters.NewArgs())
	msg := <-msgs
	assert.Equal(t, "start", string(msg.Action))

	require.NoError(t, s.Close())
	assert.True(t, f.closed)
}
