// Package pattern parses and evaluates tag patterns.
//
// An atomic pattern is either "key=value" or "key=*". A compound pattern is a
// comma separated list of atomic patterns ("railway=station,operator=*")
// that matches a tag list only if every atomic pattern matches at least one
// tag of the list.
package pattern

import (
	"fmt"
	"sort"
	"strings"

	"github.com/osmada/osmada/element"
)

const Any = "*"

type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid tag pattern %q: %s", e.Pattern, e.Reason)
}

type Pattern struct {
	Key string
	// Value is Any for patterns matching every value of Key.
	Value string
}

func (p Pattern) String() string {
	return p.Key + "=" + p.Value
}

// Parse parses a single key=value or key=* pattern.
func Parse(s string) (Pattern, error) {
	if strings.Count(s, "=") != 1 {
		return Pattern{}, &InvalidPatternError{s, "expected exactly one '='"}
	}
	parts := strings.SplitN(s, "=", 2)
	if parts[0] == "" {
		return Pattern{}, &InvalidPatternError{s, "empty key"}
	}
	if parts[1] == "" {
		return Pattern{}, &InvalidPatternError{s, "empty value, use * to match any value"}
	}
	return Pattern{Key: parts[0], Value: parts[1]}, nil
}

func (p Pattern) Match(tag element.Tag) bool {
	if tag.Key != p.Key {
		return false
	}
	return p.Value == Any || tag.Value == p.Value
}

// First returns the first tag matching p.
func (p Pattern) First(tags element.Tags) (element.Tag, bool) {
	for _, tag := range tags {
		if p.Match(tag) {
			return tag, true
		}
	}
	return element.Tag{}, false
}

// SplitCompound returns the atomic patterns of s in order. It does not
// validate them.
func SplitCompound(s string) []string {
	return strings.Split(s, ",")
}

type Compound []Pattern

func ParseCompound(s string) (Compound, error) {
	var c Compound
	for _, atom := range SplitCompound(s) {
		p, err := Parse(atom)
		if err != nil {
			return nil, err
		}
		c = append(c, p)
	}
	return c, nil
}

func (c Compound) String() string {
	parts := make([]string, len(c))
	for i, p := range c {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

// MatchAll returns true if each atomic pattern matches at least one tag.
// Tags are not consumed, one tag may satisfy several patterns.
func (c Compound) MatchAll(tags element.Tags) bool {
	for _, p := range c {
		if _, ok := p.First(tags); !ok {
			return false
		}
	}
	return true
}

// Find returns the first matching tag for each atomic pattern, in pattern
// order. ok is false if any pattern is unmatched or c is empty.
func (c Compound) Find(tags element.Tags) (matched element.Tags, ok bool) {
	if len(c) == 0 {
		return nil, false
	}
	for _, p := range c {
		tag, found := p.First(tags)
		if !found {
			return nil, false
		}
		matched = append(matched, tag)
	}
	return matched, true
}

// Join renders tags as comma separated key=value pairs, sorted by key.
func Join(tags element.Tags) string {
	sorted := make(element.Tags, len(tags))
	copy(sorted, tags)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return strings.Join(sorted.Strings(), ",")
}
