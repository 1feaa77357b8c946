// Package variables implements {{name}} placeholder substitution and
// the fixed-point resolution of variables that reference other
// variables.
package variables

import (
	"regexp"
	"strings"

	"github.com/arthur-debert/refold/pkg/errors"
)

// ReservedPrefix is the namespace used for provenance variables injected
// while loading a manifest. User-declared variables may not use it.
const ReservedPrefix = "SELF_"

// resolveIterationLimit bounds fixed-point resolution. The bound is
// generous on purpose: it tolerates values whose substitution order is
// not statically obvious instead of attempting a topological sort.
const resolveIterationLimit = 1000

var placeholderRe = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Names returns the set of variable names referenced by value as
// {{name}} placeholders, in order of first occurrence.
func Names(value string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range placeholderRe.FindAllStringSubmatch(value, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}

// Substitute replaces every {{name}} occurrence in value with replacement.
func Substitute(value, name, replacement string) string {
	return strings.ReplaceAll(value, "{{"+name+"}}", replacement)
}

// Expand substitutes every placeholder in value using vars. A placeholder
// whose name has no binding is an error naming the missing key.
func Expand(value string, vars map[string]string) (string, error) {
	for _, name := range Names(value) {
		replacement, ok := vars[name]
		if !ok {
			return "", errors.Newf(errors.ErrVariableMissing,
				"required variable %q is not defined", name)
		}
		value = Substitute(value, name, replacement)
	}
	return value, nil
}

// CheckName validates a user-declared variable name. The SELF_ namespace
// is reserved for provenance injection, and names starting with the tag
// negation prefix would be unreferencable from a tag request.
func CheckName(name string) error {
	if strings.HasPrefix(name, ReservedPrefix) {
		return errors.Newf(errors.ErrVariableReserved,
			"variable %q collides with the reserved %s namespace", name, ReservedPrefix)
	}
	if strings.HasPrefix(name, "!") {
		return errors.Newf(errors.ErrVariableReserved,
			"variable %q may not start with '!'", name)
	}
	return nil
}

// Resolve computes the fixed point of a variable map whose values may
// themselves contain {{name}} placeholders. Each pass promotes every
// variable whose referenced names are already resolved; resolution fails
// if a pass makes no progress before all variables are covered, which
// detects both cycles and irreducible forward references.
func Resolve(vars map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(vars))
	previousCount := 0
	for i := 0; i < resolveIterationLimit; i++ {
		for name, value := range vars {
			if len(Names(value)) == 0 {
				resolved[name] = value
				continue
			}
			filled, err := Expand(value, resolved)
			if err != nil {
				continue
			}
			resolved[name] = filled
		}
		if len(resolved) == len(vars) {
			return resolved, nil
		}
		if len(resolved) == previousCount {
			return nil, errors.New(errors.ErrVariableCycle,
				"variables reference each other cyclically or reference undefined variables")
		}
		previousCount = len(resolved)
	}
	return nil, errors.New(errors.ErrVariableCycle,
		"variables reference each other cyclically or reference undefined variables")
}
