package element

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type ActionType string

const (
	Create ActionType = "create"
	Modify ActionType = "modify"
	Delete ActionType = "delete"
	// Remove is a removal from a relation. adiff files mark it as delete with
	// a visible new element.
	Remove ActionType = "remove"
)

// An Action is a single change of an element. Old is nil for Create, New
// may be nil for Delete and Remove.
type Action struct {
	Type ActionType
	Old  Object
	New  Object
}

func (a *Action) Validate() error {
	switch a.Type {
	case Create:
		if a.Old != nil || a.New == nil {
			return errors.Errorf("create action requires only a new element")
		}
	case Modify:
		if a.Old == nil || a.New == nil {
			return errors.Errorf("modify action requires old and new elements")
		}
	case Delete:
		if a.Old == nil {
			return errors.Errorf("delete action requires an old element")
		}
	case Remove:
		if a.Old == nil || a.New == nil {
			return errors.Errorf("remove action requires old and new elements")
		}
	default:
		return errors.Errorf("unknown action type %q", string(a.Type))
	}
	return nil
}

// Element returns the new element, or the old one if there is no new
// element.
func (a *Action) Element() Object {
	if a.New != nil {
		return a.New
	}
	return a.Old
}

func (a *Action) OldTags() Tags {
	if a.Old == nil {
		return nil
	}
	return a.Old.Base().Tags
}

func (a *Action) NewTags() Tags {
	if a.New == nil {
		return nil
	}
	return a.New.Base().Tags
}

func (a *Action) String() string {
	var id int64
	if e := a.Element(); e != nil {
		id = e.Base().ID
	}
	return fmt.Sprintf("<Action %s id=%d>", a.Type, id)
}

// A Diff holds all actions of one imported file.
type Diff struct {
	ID         uuid.UUID
	ImportDate time.Time
	Source     string
	Actions    []*Action
}

func NewDiff(source string, actions []*Action) *Diff {
	return &Diff{
		ID:         uuid.New(),
		ImportDate: time.Now().UTC(),
		Source:     source,
		Actions:    actions,
	}
}

func (d *Diff) String() string {
	return fmt.Sprintf("<Diff %s (%d actions)>", d.ID, len(d.Actions))
}
