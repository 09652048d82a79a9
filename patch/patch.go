// Package patch fixes known data quality issues of imported diffs. Patchers
// modify the actions they work on.
package patch

import (
	"time"

	"github.com/osmada/osmada/element"
	"github.com/osmada/osmada/log"
)

type Patcher interface {
	Name() string
	// Patch fixes the actions of diff in place and returns the number of
	// patched actions.
	Patch(diff *element.Diff) (int, error)
}

// FixRemoveOperationMetadata fixes the metadata of remove actions.
//
// adiff files carry the metadata of the last modification of the removed
// element, while the removal was done by the changeset that modified the
// relation. The relation is searched among the relations modified within
// the same diff. If exactly one of them contained the element, its new
// changeset, timestamp and user are copied. Otherwise the metadata is
// cleared rather than keeping misleading values.
type FixRemoveOperationMetadata struct{}

func (FixRemoveOperationMetadata) Name() string {
	return "FixRemoveOperationMetadata"
}

func (p FixRemoveOperationMetadata) Patch(diff *element.Diff) (int, error) {
	patched := 0
	for _, a := range diff.Actions {
		if a.Type != element.Remove || a.New == nil {
			continue
		}
		meta := &a.New.Base().Metadata
		if rel := previouslyOwningRelation(diff, a); rel != nil {
			relMeta := rel.New.Base().Metadata
			meta.Changeset = relMeta.Changeset
			meta.Timestamp = relMeta.Timestamp
			meta.UserName = relMeta.UserName
			patched++
		} else {
			log.Printf("[debug] no unique relation found for %s, clearing metadata", a)
			meta.Changeset = 0
			meta.Timestamp = time.Time{}
			meta.UserName = ""
		}
	}
	return patched, nil
}

// previouslyOwningRelation returns the only relation action of diff whose
// old relation contains the removed element.
func previouslyOwningRelation(diff *element.Diff, remove *element.Action) *element.Action {
	var found *element.Action
	for _, a := range diff.Actions {
		rel, ok := a.Old.(*element.Relation)
		if !ok || a.New == nil || !rel.Contains(remove.Old) {
			continue
		}
		if found != nil {
			return nil
		}
		found = a
	}
	return found
}
