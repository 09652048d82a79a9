// Package filter narrows collections of actions.
//
// Filters are stateless. They never modify their input and return the
// surviving actions in their original order. Most filters are built from a
// Predicate with Keep or Exclude, predicates compose with And, Or and Not.
package filter

import (
	"github.com/osmada/osmada/element"
	"github.com/osmada/osmada/pattern"
)

type Filter interface {
	Filter(actions []*element.Action) ([]*element.Action, error)
}

// Func adapts a function to the Filter interface.
type Func func(actions []*element.Action) ([]*element.Action, error)

func (f Func) Filter(actions []*element.Action) ([]*element.Action, error) {
	return f(actions)
}

type Predicate func(a *element.Action) bool

func And(ps ...Predicate) Predicate {
	return func(a *element.Action) bool {
		for _, p := range ps {
			if !p(a) {
				return false
			}
		}
		return true
	}
}

func Or(ps ...Predicate) Predicate {
	return func(a *element.Action) bool {
		for _, p := range ps {
			if p(a) {
				return true
			}
		}
		return false
	}
}

func Not(p Predicate) Predicate {
	return func(a *element.Action) bool {
		return !p(a)
	}
}

func apply(actions []*element.Action, keep Predicate) []*element.Action {
	result := make([]*element.Action, 0, len(actions))
	for _, a := range actions {
		if keep(a) {
			result = append(result, a)
		}
	}
	return result
}

// Keep returns a filter that keeps all actions matching p.
func Keep(p Predicate) Filter {
	return Func(func(actions []*element.Action) ([]*element.Action, error) {
		return apply(actions, p), nil
	})
}

// Exclude returns a filter that drops all actions matching p.
func Exclude(p Predicate) Filter {
	return Keep(Not(p))
}

// Chain applies filters in order, each one receiving the survivors of the
// previous one.
type Chain []Filter

func (c Chain) Filter(actions []*element.Action) ([]*element.Action, error) {
	var err error
	for _, f := range c {
		actions, err = f.Filter(actions)
		if err != nil {
			return nil, err
		}
	}
	return actions, nil
}

func IsType(types ...element.ActionType) Predicate {
	return func(a *element.Action) bool {
		for _, t := range types {
			if a.Type == t {
				return true
			}
		}
		return false
	}
}

// NewUserIn matches actions whose new element was edited by one of users.
func NewUserIn(users []string) Predicate {
	set := make(map[string]struct{}, len(users))
	for _, u := range users {
		set[u] = struct{}{}
	}
	return func(a *element.Action) bool {
		if a.New == nil {
			return false
		}
		_, ok := set[a.New.Base().Metadata.UserName]
		return ok
	}
}

// NewTagMatches matches actions whose new element has a tag matching p.
func NewTagMatches(p pattern.Pattern) Predicate {
	return func(a *element.Action) bool {
		_, ok := p.First(a.NewTags())
		return ok
	}
}
