package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Name errors
var (
	ErrInvalidName = errors.New("invalid resource name")
)

// Separator joins the segments of a dotted name.
const Separator = "."

// Lineage returns name's ancestor chain starting at the root and ending at
// name itself, e.g. "a.b.c" -> ["a", "a.b", "a.b.c"]. An empty name or a
// name with an empty segment fails with ErrInvalidName.
func Lineage(name string) ([]string, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidName)
	}

	segments := strings.Split(name, Separator)
	lineage := make([]string, 0, len(segments))
	ancestor := ""
	for _, segment := range segments {
		if segment == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidName, name)
		}
		if ancestor == "" {
			ancestor = segment
		} else {
			ancestor = ancestor + Separator + segment
		}
		lineage = append(lineage, ancestor)
	}
	return lineage, nil
}

// Root returns the first segment of a dotted name, the unit of mutual
// exclusion for substitution scopes.
func Root(name string) (string, error) {
	lineage, err := Lineage(name)
	if err != nil {
		return "", err
	}
	return lineage[0], nil
}

// Descendants returns every key currently present in reg that is root
// itself or nested under it. The match is separator-aware: "ab" is not a
// descendant of "a". The result is a point-in-time view of the registry's
// keys; the registry may mutate concurrently, so callers must not assume
// the result stays valid.
func Descendants(reg Registry, root string) []string {
	prefix := root + Separator
	var names []string
	for _, key := range reg.Keys() {
		if key == root || strings.HasPrefix(key, prefix) {
			names = append(names, key)
		}
	}
	sort.Strings(names)
	return names
}

// Evict removes each of the given names from reg. Absent names are
// skipped, so Evict is idempotent.
func Evict(reg Registry, names []string) {
	for _, name := range names {
		reg.Delete(name)
	}
}
