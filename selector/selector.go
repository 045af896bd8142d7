// Package selector defines selector groups: named element locators grouped by kind.
package selector

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the locator language of a selector string.
type Kind string

const (
	XPath           Kind = "xpath"
	Class           Kind = "class"
	ID              Kind = "id"
	CSS             Kind = "css"
	Name            Kind = "name"
	AccessibilityID Kind = "accessibilityId"
)

// Kinds lists every supported kind in the order groups are resolved.
var Kinds = []Kind{XPath, Class, ID, CSS, Name, AccessibilityID}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Group maps a selector kind to an ordered list of selectors. A nil or empty Group is a valid no-op.
type Group map[Kind][]string

// Selector is a single (kind, value) pair from a [Group].
type Selector struct {
	Kind  Kind
	Value string
}

// Key identifies the selector on recorded bounding boxes, e.g. “xpath://button[@id='ok']”.
func (s Selector) Key() string {
	return string(s.Kind) + ":" + s.Value
}

// Empty reports whether the group resolves to no selectors; blank strings & unknown kinds don't count.
func (g Group) Empty() bool {
	return len(g.Selectors()) == 0
}

// Selectors flattens the group in [Kinds] order, preserving the order within each kind.
// Blank selector strings and unknown kinds are dropped.
func (g Group) Selectors() []Selector {
	var out []Selector
	for _, kind := range Kinds {
		for _, v := range g[kind] {
			if strings.TrimSpace(v) == "" {
				continue
			}
			out = append(out, Selector{Kind: kind, Value: v})
		}
	}
	return out
}

// Parse decodes a JSON selector group such as `{"css": [".ad"], "xpath": ["//footer"]}`.
// An empty string yields an empty group.
func Parse(s string) (Group, error) {
	if strings.TrimSpace(s) == "" {
		return Group{}, nil
	}
	var raw map[string][]string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("invalid selector group: %w", err)
	}
	g := make(Group, len(raw))
	for k, values := range raw {
		kind := Kind(k)
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown selector kind %q", k)
		}
		g[kind] = values
	}
	return g, nil
}
