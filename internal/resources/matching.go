package resources

import "strings"

// A phase is one matching strategy. Phases run in order over the whole
// list; a resource is reported at its first matching phase only.
type phase func(r Resource, t Target) bool

// basePhases apply to every kind.
var basePhases = []phase{
	exactPhase,
	shortIDPhase,
	labelTargetPhase,
	envTargetPhase,
}

// kindPhases run after basePhases for lists of that kind.
var kindPhases = map[Kind][]phase{
	KindContainer: {composeServicePhase, swarmServicePhase, stackServicePhase},
	KindService:   {stackNamePhase},
	KindTask:      {taskRefPhase, swarmServicePhase, stackServicePhase},
	KindNetwork:   {attachedNetworkPhase},
}

func phasesFor(k Kind) []phase {
	out := make([]phase, 0, len(basePhases)+len(kindPhases[k]))
	out = append(out, basePhases...)
	return append(out, kindPhases[k]...)
}

// match returns the items matching target, once each, in phase-major order.
func match[T Resource](items []T, target Target) []T {
	if target == nil {
		return nil
	}
	var out []T
	seen := make(map[any]struct{})
	for _, p := range phasesFor(kindOf[T]()) {
		for _, r := range items {
			if !p(r, target) {
				continue
			}
			id := identity(r)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// notMatch returns, in list order, the items match would not return.
func notMatch[T Resource](items []T, target Target) []T {
	matched := make(map[any]struct{})
	for _, r := range match(items, target) {
		matched[identity(r)] = struct{}{}
	}
	out := make([]T, 0, len(items))
	for _, r := range items {
		if _, ok := matched[identity(r)]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func stringTarget(t Target) (string, bool) {
	s, ok := t.(StringTarget)
	return string(s), ok
}

func exactPhase(r Resource, t Target) bool {
	s, ok := stringTarget(t)
	return ok && (r.ID() == s || r.Name() == s)
}

func shortIDPhase(r Resource, t Target) bool {
	s, ok := stringTarget(t)
	return ok && strings.HasPrefix(r.ID(), s)
}

func labelTargetPhase(r Resource, t Target) bool {
	s, ok := stringTarget(t)
	if !ok {
		return false
	}
	v, has := r.Labels()[LabelTarget]
	return has && v == s
}

func envTargetPhase(r Resource, t Target) bool {
	s, ok := stringTarget(t)
	if !ok {
		return false
	}
	e, isEnv := r.(envProvider)
	if !isEnv {
		return false
	}
	v, has := e.Env()[EnvTarget]
	return has && v == s
}

func composeServicePhase(r Resource, t Target) bool {
	s, ok := stringTarget(t)
	return ok && r.Labels()[LabelComposeService] == s
}

func swarmServicePhase(r Resource, t Target) bool {
	s, ok := stringTarget(t)
	return ok && r.Labels()[LabelSwarmService] == s
}

// stackServicePhase matches the namespace-qualified swarm service name of
// stack-deployed containers and tasks.
func stackServicePhase(r Resource, t Target) bool {
	s, ok := stringTarget(t)
	if !ok {
		return false
	}
	labels := r.Labels()
	ns := labels[LabelStackNamespace]
	return ns != "" && labels[LabelSwarmService] == ns+"_"+s
}

func stackNamePhase(r Resource, t Target) bool {
	s, ok := stringTarget(t)
	if !ok {
		return false
	}
	ns := r.Labels()[LabelStackNamespace]
	return ns != "" && r.Name() == ns+"_"+s
}

func taskRefPhase(r Resource, t Target) bool {
	s, ok := stringTarget(t)
	if !ok {
		return false
	}
	task, isTask := r.(*TaskInfo)
	return isTask && (task.ContainerID() == s || task.ServiceID() == s)
}

func attachedNetworkPhase(r Resource, t Target) bool {
	ids, ok := networkIDs(t)
	if !ok {
		return false
	}
	_, hit := ids[r.ID()]
	return hit
}
