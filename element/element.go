package element

import (
	"fmt"
	"strings"

	osm "github.com/omniscale/go-osm"
	"github.com/pkg/errors"
)

// ErrUnresolvedType is returned when an element is neither a node, a way nor
// a relation.
var ErrUnresolvedType = errors.New("element is neither node, way nor relation")

type Tag struct {
	Key   string
	Value string
}

func (t Tag) String() string {
	return t.Key + "=" + t.Value
}

// Tags keeps the tags in the order they were read. Keys are not required to
// be unique.
type Tags []Tag

// Map collapses the tags into an osm.Tags mapping. Duplicate keys are
// resolved by the last occurrence.
func (t Tags) Map() osm.Tags {
	m := make(osm.Tags, len(t))
	for _, tag := range t {
		m[tag.Key] = tag.Value
	}
	return m
}

func (t Tags) Strings() []string {
	s := make([]string, len(t))
	for i, tag := range t {
		s[i] = tag.String()
	}
	return s
}

func (t Tags) String() string {
	return "[" + strings.Join(t.Strings(), ", ") + "]"
}

type Bounds struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// An Element contains the identity shared by nodes, ways and relations.
// A zero ID marks a synthetic element without OSM identity. Zero metadata
// values mean unknown.
type Element struct {
	ID       int64
	Tags     Tags
	Metadata osm.Metadata
	Visible  bool
	Bounds   *Bounds
}

func (e *Element) Base() *Element {
	return e
}

func (e *Element) String() string {
	return fmt.Sprintf("<Element id=\"%d\">", e.ID)
}

// Object is implemented by *Node, *Way and *Relation. A bare *Element is an
// Object as well, but TypeOf refuses it.
type Object interface {
	Base() *Element
}

type Coord struct {
	Lat  float64
	Long float64
}

type Node struct {
	Element
	// Coord is nil if the node has no position (e.g. a deleted node).
	Coord *Coord
}

// A Way references its nodes. Nodes are not owned by the way and may be
// shared with other ways.
type Way struct {
	Element
	Nodes []*Node
}

type Member struct {
	Role   string
	Object Object
}

type Relation struct {
	Element
	Members []Member
}

// Contains returns true if a member with the type and ID of o exists.
func (r *Relation) Contains(o Object) bool {
	typ, err := TypeOf(o)
	if err != nil {
		return false
	}
	for _, m := range r.Members {
		if m.Object == nil || m.Object.Base().ID != o.Base().ID {
			continue
		}
		if mt, err := TypeOf(m.Object); err == nil && mt == typ {
			return true
		}
	}
	return false
}

type Type string

const (
	NodeType     Type = "node"
	WayType      Type = "way"
	RelationType Type = "relation"
)

// TypeOf resolves the variant of o.
func TypeOf(o Object) (Type, error) {
	switch o.(type) {
	case *Node:
		return NodeType, nil
	case *Way:
		return WayType, nil
	case *Relation:
		return RelationType, nil
	case nil:
		return "", errors.Wrap(ErrUnresolvedType, "missing element")
	}
	return "", errors.Wrapf(ErrUnresolvedType, "resolving %s", o.Base())
}

// New returns an empty element of type t.
func New(t Type) (Object, error) {
	switch t {
	case NodeType:
		return &Node{}, nil
	case WayType:
		return &Way{}, nil
	case RelationType:
		return &Relation{}, nil
	}
	return nil, errors.Wrapf(ErrUnresolvedType, "unknown type %q", string(t))
}
