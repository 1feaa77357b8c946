package manifest

import (
	"fmt"
)

// HardenedViolations reports everything that keeps the manifest tree
// from being fully reproducible: files without a hash pin, directory
// scans (whose listing depends on external state) and inclusions
// without a pinned manifest hash. An empty result means every byte the
// manifest can produce is pinned.
func (m *Manifest) HardenedViolations(loader *Loader) ([]string, error) {
	var violations []string
	for _, f := range m.Files {
		if f.Hash == "" {
			violations = append(violations, fmt.Sprintf("file %s has no hash pin", f.Path))
		}
	}
	for _, d := range m.Directories {
		violations = append(violations, fmt.Sprintf(
			"directory %s depends on an external listing and cannot be pinned", d.Path))
	}
	for _, inc := range m.Inclusions {
		if inc.Hash == "" {
			violations = append(violations, fmt.Sprintf(
				"inclusion %s has no manifest hash pin", inc.Config))
			continue
		}
		child, err := loader.Load(inc.Config, false, inc.Hash)
		if err != nil {
			return nil, err
		}
		childViolations, err := child.HardenedViolations(loader)
		if err != nil {
			return nil, err
		}
		for _, v := range childViolations {
			violations = append(violations, fmt.Sprintf("%s: %s", inc.Config, v))
		}
	}
	return violations, nil
}
