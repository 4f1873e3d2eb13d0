package resources

// Target identifies what a Matching call looks for. It is one of
// StringTarget, ContainerRef or IDRef; a nil Target matches nothing.
type Target interface {
	isTarget()
}

// StringTarget is a human-supplied id, short id, name, or grouping name.
type StringTarget string

// ContainerRef resolves to the networks the container is attached to.
type ContainerRef struct {
	Container *ContainerInfo
}

// IDRef resolves to a single resource id.
type IDRef string

func (StringTarget) isTarget() {}
func (ContainerRef) isTarget() {}
func (IDRef) isTarget()        {}

// TargetOf converts a template or caller argument into a Target. Strings
// become StringTarget, containers ContainerRef, and other resources IDRef.
// Anything else, including nil, has no identity and returns nil.
func TargetOf(v any) Target {
	switch t := v.(type) {
	case nil:
		return nil
	case Target:
		return t
	case string:
		return StringTarget(t)
	case *ContainerInfo:
		if t == nil {
			return nil
		}
		return ContainerRef{Container: t}
	case Resource:
		if t.Raw() == nil && t.ID() == "" {
			return nil
		}
		return IDRef(t.ID())
	}
	return nil
}

// networkIDs resolves a target into the set of network ids it refers to.
// ok is false when the target carries no usable identity.
func networkIDs(t Target) (ids map[string]struct{}, ok bool) {
	switch v := t.(type) {
	case ContainerRef:
		ids = map[string]struct{}{}
		for _, id := range v.Container.NetworkIDs() {
			ids[id] = struct{}{}
		}
		return ids, true
	case IDRef:
		return map[string]struct{}{string(v): {}}, true
	}
	return nil, false
}
