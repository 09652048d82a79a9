package filter

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/osmada/osmada/analysis"
	"github.com/osmada/osmada/element"
	"github.com/osmada/osmada/pattern"
	"github.com/osmada/osmada/proj"
)

// IgnoreUsers drops actions made by one of users. Only the user of the new
// element is considered.
func IgnoreUsers(users []string) Filter {
	return Exclude(NewUserIn(users))
}

// IgnoreElementsOnCreate drops the creation of elements matching p.
func IgnoreElementsOnCreate(p pattern.Pattern) Filter {
	return Exclude(And(IsType(element.Create), NewTagMatches(p)))
}

// IgnoreElementsOnModify drops the modification of elements whose new
// version matches p.
func IgnoreElementsOnModify(p pattern.Pattern) Filter {
	return Exclude(And(IsType(element.Modify), NewTagMatches(p)))
}

// IgnoreKeys drops actions that only change tags with an ignored key.
// Geometric actions and actions without tag changes (e.g. membership
// changes) are kept. Keys are compared case-insensitively.
func IgnoreKeys(reports analysis.Reports, ignoredKeys []string) Filter {
	ignored := func(key string) bool {
		for _, k := range ignoredKeys {
			if strings.EqualFold(k, key) {
				return true
			}
		}
		return false
	}

	return Func(func(actions []*element.Action) ([]*element.Action, error) {
		result := make([]*element.Action, 0, len(actions))
		for _, a := range actions {
			r, err := reports.Report(a)
			if err != nil {
				return nil, errors.Wrap(err, "ignoring keys")
			}
			if r.IsGeometricAction || !r.IsTagAction {
				result = append(result, a)
				continue
			}
			for _, tag := range r.Tags() {
				if !ignored(tag.Key) {
					result = append(result, a)
					break
				}
			}
		}
		return result, nil
	})
}

// SmallMove matches node modifications moving the node by more than zero
// but less than minDistance (in EPSG:3857 units).
func SmallMove(minDistance float64) Predicate {
	return func(a *element.Action) bool {
		if a.Type != element.Modify {
			return false
		}
		before, ok := a.Old.(*element.Node)
		if !ok {
			return false
		}
		after, ok := a.New.(*element.Node)
		if !ok {
			return false
		}
		dist, ok := proj.NodeDistance(before, after)
		return ok && dist > 0 && dist < minDistance
	}
}

// IgnoreSmallMoves drops node modifications moving the node by less than
// minDistance. Unmoved nodes and other elements are kept.
func IgnoreSmallMoves(minDistance float64) Filter {
	return Exclude(SmallMove(minDistance))
}
