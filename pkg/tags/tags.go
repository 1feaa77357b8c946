// Package tags computes the active tag set for one operation and
// provides the activation predicate shared by every taggable entity.
package tags

import (
	"sort"
	"strings"

	"github.com/arthur-debert/refold/pkg/errors"
)

// NegationPrefix marks a requested tag for removal from the active set.
const NegationPrefix = "!"

// CheckName validates a declared tag name. Names starting with the
// negation prefix could never be requested positively, and "default" is
// reserved for future default-set syntax.
func CheckName(name string) error {
	if strings.HasPrefix(name, NegationPrefix) {
		return errors.Newf(errors.ErrTagInvalid,
			"tag %q may not start with %q", name, NegationPrefix)
	}
	if strings.EqualFold(strings.TrimSpace(name), "default") {
		return errors.Newf(errors.ErrTagInvalid,
			"tag name %q is reserved", name)
	}
	return nil
}

// ActiveSet computes the active tag set from the manifest's default tags
// and the caller's request. Requested tags split into positive and
// negative ('!'-prefixed) groups; requesting a tag in both forms is an
// error. The result is (defaults ∪ positive) \ negative, sorted.
func ActiveSet(defaults, requested []string) ([]string, error) {
	positive := make(map[string]bool)
	negative := make(map[string]bool)
	for _, tag := range requested {
		if name, ok := strings.CutPrefix(tag, NegationPrefix); ok {
			negative[name] = true
		} else {
			positive[tag] = true
		}
	}
	for name := range negative {
		if positive[name] {
			return nil, errors.Newf(errors.ErrTagConflict,
				"tag %q is requested both positively and negatively", name)
		}
	}

	activeSet := make(map[string]bool)
	for _, tag := range defaults {
		activeSet[tag] = true
	}
	for tag := range positive {
		activeSet[tag] = true
	}
	for tag := range negative {
		delete(activeSet, tag)
	}

	active := make([]string, 0, len(activeSet))
	for tag := range activeSet {
		active = append(active, tag)
	}
	sort.Strings(active)
	return active, nil
}

// IsActive is the activation predicate: an entity with no tags is always
// active, otherwise it is active iff it shares a tag with the active set.
func IsActive(entityTags, active []string) bool {
	if len(entityTags) == 0 {
		return true
	}
	for _, tag := range entityTags {
		for _, a := range active {
			if tag == a {
				return true
			}
		}
	}
	return false
}

// CheckDeclared verifies that every active tag is part of the manifest's
// declared tag universe. Referencing an undeclared tag is almost always
// a typo, so it is rejected instead of silently matching nothing.
func CheckDeclared(active, universe []string) error {
	declared := make(map[string]bool, len(universe))
	for _, tag := range universe {
		declared[tag] = true
	}
	for _, tag := range active {
		if !declared[tag] {
			return errors.Newf(errors.ErrTagUndeclared,
				"the tag %q is not defined in the manifest", tag).WithDetail("tag", tag)
		}
	}
	return nil
}

// Union merges tag lists into one deduplicated, sorted list.
func Union(lists ...[]string) []string {
	seen := make(map[string]bool)
	var union []string
	for _, list := range lists {
		for _, tag := range list {
			if !seen[tag] {
				seen[tag] = true
				union = append(union, tag)
			}
		}
	}
	sort.Strings(union)
	return union
}
