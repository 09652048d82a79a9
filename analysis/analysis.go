// Package analysis computes facts about single actions: which tags were
// added, removed or modified, whether the geometry changed and which tag
// best describes the element.
package analysis

import (
	osm "github.com/omniscale/go-osm"
	"github.com/pkg/errors"

	"github.com/osmada/osmada/element"
	"github.com/osmada/osmada/pattern"
)

// TagsAsMapping collapses the tags of o. Missing elements have no tags.
func TagsAsMapping(o element.Object) osm.Tags {
	if o == nil {
		return osm.Tags{}
	}
	return o.Base().Tags.Map()
}

// IsTagAction returns true if the tags differ between old and new. Creations
// are never tag actions.
func IsTagAction(a *element.Action) bool {
	if a.Type == element.Create {
		return false
	}
	return !tagsEqual(TagsAsMapping(a.Old), TagsAsMapping(a.New))
}

func tagsEqual(a, b osm.Tags) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// IsGeometricAction returns true if the action changes the position or shape
// of the element. Creations, deletions and removals always do. Modified
// relations never do.
func IsGeometricAction(a *element.Action) (bool, error) {
	if a.Type != element.Modify {
		if _, err := element.TypeOf(a.Element()); err != nil {
			return false, err
		}
		return true, nil
	}
	typ, err := element.TypeOf(a.New)
	if err != nil {
		return false, err
	}
	oldTyp, err := element.TypeOf(a.Old)
	if err != nil {
		return false, err
	}
	if typ != oldTyp {
		return false, errors.Wrapf(element.ErrUnresolvedType,
			"%s changed from %s to %s", a, oldTyp, typ)
	}

	switch typ {
	case element.NodeType:
		return !sameCoord(a.Old.(*element.Node).Coord, a.New.(*element.Node).Coord), nil
	case element.WayType:
		return !sameNodes(a.Old.(*element.Way).Nodes, a.New.(*element.Way).Nodes), nil
	default:
		// FIXME: relation geometry is not tracked
		return false, nil
	}
}

func sameCoord(a, b *element.Coord) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameNodes(a, b []*element.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !sameCoord(a[i].Coord, b[i].Coord) {
			return false
		}
	}
	return true
}

// AddedTags returns the tags of the new element whose key is unknown to the
// old element. All tags are added on creation.
func AddedTags(a *element.Action) element.Tags {
	if a.Type == element.Create {
		return a.NewTags()
	}
	return missingKeys(a.NewTags(), TagsAsMapping(a.Old))
}

// RemovedTags returns the tags of the old element whose key is unknown to the
// new element.
func RemovedTags(a *element.Action) element.Tags {
	if a.Type == element.Create {
		return nil
	}
	return missingKeys(a.OldTags(), TagsAsMapping(a.New))
}

func missingKeys(tags element.Tags, other osm.Tags) element.Tags {
	var result element.Tags
	for _, tag := range tags {
		if _, ok := other[tag.Key]; !ok {
			result = append(result, tag)
		}
	}
	return result
}

// ModifiedTags returns the old and new versions of all tags with a changed
// value, in the tag order of the new element. oldVersions[i] and
// newVersions[i] share the same key. On creation all new tags count as
// modified and oldVersions is empty.
func ModifiedTags(a *element.Action) (oldVersions, newVersions element.Tags) {
	if a.Type == element.Create {
		return nil, a.NewTags()
	}
	old := TagsAsMapping(a.Old)
	for _, tag := range a.NewTags() {
		if v, ok := old[tag.Key]; ok && v != tag.Value {
			newVersions = append(newVersions, tag)
			oldVersions = append(oldVersions, element.Tag{Key: tag.Key, Value: v})
		}
	}
	return oldVersions, newVersions
}

// FindMainTag returns the tags matched by the first pattern of
// tagsImportance that fully matches. The old tags are searched before the
// new tags. Returns "" if nothing matches.
func FindMainTag(a *element.Action, tagsImportance []pattern.Compound) string {
	for _, tags := range []element.Tags{a.OldTags(), a.NewTags()} {
		for _, c := range tagsImportance {
			if matched, ok := c.Find(tags); ok {
				return pattern.Join(matched)
			}
		}
	}
	return ""
}
