package scanout

import "sort"

// ObjectKind identifies the role of a display object in the pipe.
type ObjectKind int

const (
	// KindConnector is a physical output connector.
	KindConnector ObjectKind = iota

	// KindCRTC is the timing controller that drives scan-out.
	KindCRTC

	// KindPlane is a scanout plane feeding the timing controller.
	KindPlane
)

// String returns the object kind name.
func (k ObjectKind) String() string {
	switch k {
	case KindConnector:
		return "connector"
	case KindCRTC:
		return "crtc"
	case KindPlane:
		return "plane"
	default:
		return "unknown"
	}
}

// Object is a display object with its driver-assigned identifier and the
// table of named properties it exposes. The table is built once at
// discovery time and read-only afterwards, so resolved property
// identifiers are stable for the lifetime of the session.
type Object struct {
	id    uint32
	kind  ObjectKind
	props map[string]uint32
}

// NewObject builds a display object from a property table. The table is
// copied; later changes to props do not affect the object.
func NewObject(id uint32, kind ObjectKind, props map[string]uint32) *Object {
	copied := make(map[string]uint32, len(props))
	for name, propID := range props {
		copied[name] = propID
	}
	return &Object{id: id, kind: kind, props: copied}
}

// ID returns the object's driver-assigned identifier.
func (o *Object) ID() uint32 { return o.id }

// Kind returns the object's role in the pipe.
func (o *Object) Kind() ObjectKind { return o.kind }

// Prop resolves a property name to its driver-assigned identifier.
// The match is exact. An absent name returns a *PropertyError: the
// driver does not support what the pipeline needs, which is fatal
// configuration, not a transient condition.
func (o *Object) Prop(name string) (uint32, error) {
	id, ok := o.props[name]
	if !ok {
		return 0, &PropertyError{Kind: o.kind, ObjectID: o.id, Name: name}
	}
	return id, nil
}

// HasProp reports whether the object exposes the named property.
func (o *Object) HasProp(name string) bool {
	_, ok := o.props[name]
	return ok
}

// PropNames returns the object's property names in sorted order.
// Useful for diagnostics when a required property is missing.
func (o *Object) PropNames() []string {
	names := make([]string, 0, len(o.props))
	for name := range o.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
