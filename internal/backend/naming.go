package backend

import (
	"regexp"
	"strings"
	"time"
)

// --- Identifier rules ---

const maxNameLen = 64

// specIDTimeLayout is the timestamp prefix of a spec ID.
const specIDTimeLayout = "20060102_150405"

var (
	projectNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	featurePattern     = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	specIDPattern      = regexp.MustCompile(`^\d{8}_\d{6}_[a-z][a-z0-9_]*$`)
)

// reservedNames are forbidden as project names because they collide with
// layout entries or tooling files under the foundry root.
var reservedNames = map[string]bool{
	"spec":       true,
	"specs":      true,
	"tasks":      true,
	"notes":      true,
	"vision":     true,
	"tech-stack": true,
	"summary":    true,
	"config":     true,
	"journal":    true,
}

// ValidateProjectName checks the project naming rules: lowercase kebab
// case starting with a letter, at most 64 characters, not reserved.
func ValidateProjectName(name string) error {
	if name == "" {
		return InvalidInputf("validate_name", "project name is empty")
	}
	if len(name) > maxNameLen {
		return InvalidInputf("validate_name", "project name %q exceeds %d characters", name, maxNameLen)
	}
	if !projectNamePattern.MatchString(name) {
		return InvalidInputf("validate_name", "project name %q must match ^[a-z][a-z0-9-]*$ (lowercase, digits, hyphens, leading letter)", name)
	}
	if reservedNames[name] {
		return InvalidInputf("validate_name", "project name %q is reserved", name)
	}
	return nil
}

// ValidateFeature checks the feature slug rules: lowercase snake case
// starting with a letter, at most 64 characters.
func ValidateFeature(feature string) error {
	if feature == "" {
		return InvalidInputf("validate_feature", "feature name is empty")
	}
	if len(feature) > maxNameLen {
		return InvalidInputf("validate_feature", "feature name %q exceeds %d characters", feature, maxNameLen)
	}
	if !featurePattern.MatchString(feature) {
		return InvalidInputf("validate_feature", "feature name %q must match ^[a-z][a-z0-9_]*$ (lowercase, digits, underscores, leading letter)", feature)
	}
	return nil
}

// ValidateSpecID checks the YYYYMMDD_HHMMSS_<feature> shape.
func ValidateSpecID(id string) error {
	if !specIDPattern.MatchString(id) {
		return InvalidInputf("validate_spec_id", "spec id %q must look like YYYYMMDD_HHMMSS_<feature>", id)
	}
	if _, ok := SpecTime(id); !ok {
		return InvalidInputf("validate_spec_id", "spec id %q has an invalid timestamp", id)
	}
	return nil
}

// NewSpecID mints a spec ID from a creation time and feature slug.
func NewSpecID(t time.Time, feature string) string {
	return t.Format(specIDTimeLayout) + "_" + feature
}

// FeatureOf extracts the feature slug from a spec ID. Returns the input
// unchanged if it is too short to carry the timestamp prefix.
func FeatureOf(specID string) string {
	if len(specID) <= len(specIDTimeLayout)+1 {
		return specID
	}
	return specID[len(specIDTimeLayout)+1:]
}

// SpecTime parses the timestamp prefix of a spec ID. IDs are minted in
// UTC, so parsing uses UTC too.
func SpecTime(specID string) (time.Time, bool) {
	if len(specID) < len(specIDTimeLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(specIDTimeLayout, specID[:len(specIDTimeLayout)], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LooksLikeSpecID reports whether a directory or document name has the
// spec ID shape. Enumeration uses this to skip stray entries.
func LooksLikeSpecID(name string) bool {
	return specIDPattern.MatchString(name) && !strings.HasSuffix(name, "_")
}

// NearestNames returns up to three names sharing a prefix with the missing
// one, enough to catch typos in the tail of a name. Not-found errors carry
// the result as candidates.
func NearestNames(target string, names []string) []string {
	var out []string
	for _, n := range names {
		if sharesPrefix(n, target) {
			out = append(out, n)
			if len(out) == 3 {
				break
			}
		}
	}
	return out
}

// sharesPrefix reports whether a and b agree on at least their first three
// characters.
func sharesPrefix(a, b string) bool {
	n := 3
	if len(a) < n || len(b) < n {
		n = min(len(a), len(b))
	}
	if n == 0 {
		return false
	}
	return strings.EqualFold(a[:n], b[:n])
}
