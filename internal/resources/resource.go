// Package resources wraps raw Docker engine objects into read-only views and
// collects them into lists that can be queried with Matching/NotMatching.
//
// Views never cache: every accessor reads the raw SDK object it wraps, so a
// view held across an in-place update of that object reflects the update.
package resources

import (
	"strings"

	"github.com/dockgen/dockgen/internal/enhanced"
)

// Well-known labels and environment variables consulted while matching.
const (
	LabelTarget         = "dockgen.target"
	EnvTarget           = "DOCKGEN_TARGET"
	LabelComposeService = "com.docker.compose.service"
	LabelSwarmService   = "com.docker.swarm.service.name"
	LabelSwarmServiceID = "com.docker.swarm.service.id"
	LabelSwarmTaskID    = "com.docker.swarm.task.id"
	LabelStackNamespace = "com.docker.stack.namespace"
)

// Resource is the capability set every view exposes to the matching engine.
type Resource interface {
	ID() string
	Name() string
	Labels() enhanced.Dict[string]
	// Raw returns the wrapped SDK object, or nil when there is none. It is
	// the identity used to de-duplicate matches.
	Raw() any
}

// Kind tags a resource variant. Lists dispatch their kind-specific matching
// phases on it.
type Kind int

const (
	KindResource Kind = iota
	KindContainer
	KindService
	KindTask
	KindNode
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindService:
		return "service"
	case KindTask:
		return "task"
	case KindNode:
		return "node"
	case KindNetwork:
		return "network"
	}
	return "resource"
}

type kinded interface {
	Kind() Kind
}

// envProvider is implemented by variants that carry an environment.
type envProvider interface {
	Env() enhanced.Dict[string]
}

// kindOf derives a list's kind from its element type. Variant Kind methods
// do not dereference their receiver, so the nil zero value is safe to call.
func kindOf[T Resource]() Kind {
	var zero T
	if k, ok := any(zero).(kinded); ok {
		return k.Kind()
	}
	return KindResource
}

// identity is the de-duplication key for r.
func identity(r Resource) any {
	if raw := r.Raw(); raw != nil {
		return raw
	}
	return r
}

func labelsOf(m map[string]string) enhanced.Dict[string] {
	if m == nil {
		return enhanced.Dict[string]{}
	}
	return enhanced.Dict[string](m)
}

// parseEnv turns KEY=VALUE entries into a Dict. Entries without '=' are
// skipped; later duplicates win, as they do in the engine.
func parseEnv(entries []string) enhanced.Dict[string] {
	env := make(enhanced.Dict[string], len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}

// stripDigest drops a trailing @sha256:... from an image reference.
func stripDigest(image string) string {
	if i := strings.Index(image, "@"); i >= 0 {
		return image[:i]
	}
	return image
}
