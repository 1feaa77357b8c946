package manifest

import (
	"github.com/arthur-debert/refold/pkg/errors"
)

// InclusionRecursionLimit bounds the depth of the inclusion tree. Hitting
// the limit means an inclusion cycle or a pathologically deep tree;
// either way resolution stops instead of looping.
const InclusionRecursionLimit = 10

// CheckRecursion walks the inclusion tree breadth-first from the root
// reference and fails if manifests are still being included past the
// recursion limit. The walk loads every manifest it visits, so a passing
// check also warms the loader cache for the resolution that follows.
func CheckRecursion(ref string, loader *Loader) error {
	frontier := []string{ref}
	for depth := 0; depth < InclusionRecursionLimit; depth++ {
		var next []string
		seen := make(map[string]bool)
		for _, current := range frontier {
			m, err := loader.Load(current, depth == 0, "")
			if err != nil {
				return err
			}
			for _, inc := range m.Inclusions {
				if seen[inc.Config] {
					continue
				}
				seen[inc.Config] = true
				next = append(next, inc.Config)
			}
		}
		if len(next) == 0 {
			return nil
		}
		frontier = next
	}
	return errors.Newf(errors.ErrRecursionLimit,
		"inclusions nest deeper than %d levels, assuming a cycle", InclusionRecursionLimit)
}
