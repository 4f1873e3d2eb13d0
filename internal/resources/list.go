package resources

import "github.com/dockgen/dockgen/internal/enhanced"

// List is an ordered collection of one resource kind. Its element type
// selects the kind-specific matching phases.
type List[T Resource] []T

type (
	ResourceList  = List[Resource]
	ContainerList = List[*ContainerInfo]
	ServiceList   = List[*ServiceInfo]
	NodeList      = List[*NodeInfo]
	NetworkList   = List[*NetworkInfo]
)

// Matching returns the resources matching target, de-duplicated by raw
// identity. target may be a string, a resource, or a Target.
func (l List[T]) Matching(target any) List[T] {
	return List[T](match([]T(l), TargetOf(target)))
}

// NotMatching returns the complement of Matching in list order.
func (l List[T]) NotMatching(target any) List[T] {
	return List[T](notMatch([]T(l), TargetOf(target)))
}

func (l List[T]) First() T      { return enhanced.List[T](l).First() }
func (l List[T]) FirstValue() T { return enhanced.List[T](l).FirstValue() }
func (l List[T]) Last() T       { return enhanced.List[T](l).Last() }
func (l List[T]) Len() int      { return len(l) }

// IDs returns the ids of all resources in list order.
func (l List[T]) IDs() []string {
	out := make([]string, 0, len(l))
	for _, r := range l {
		out = append(out, r.ID())
	}
	return out
}

// Resources widens the list to the base capability set.
func (l List[T]) Resources() ResourceList {
	out := make(ResourceList, 0, len(l))
	for _, r := range l {
		out = append(out, r)
	}
	return out
}

// TaskList is a list of tasks with an additional status filter.
type TaskList []*TaskInfo

func (l TaskList) Matching(target any) TaskList {
	return TaskList(match([]*TaskInfo(l), TargetOf(target)))
}

func (l TaskList) NotMatching(target any) TaskList {
	return TaskList(notMatch([]*TaskInfo(l), TargetOf(target)))
}

// WithStatus keeps the tasks whose status equals status exactly.
func (l TaskList) WithStatus(status string) TaskList {
	out := make(TaskList, 0, len(l))
	for _, t := range l {
		if t.Status() == status {
			out = append(out, t)
		}
	}
	return out
}

func (l TaskList) First() *TaskInfo      { return enhanced.List[*TaskInfo](l).First() }
func (l TaskList) FirstValue() *TaskInfo { return enhanced.List[*TaskInfo](l).FirstValue() }
func (l TaskList) Last() *TaskInfo       { return enhanced.List[*TaskInfo](l).Last() }
func (l TaskList) Len() int              { return len(l) }
