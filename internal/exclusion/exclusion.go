// Package exclusion holds the set of snapshot names protected from deletion.
package exclusion

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
)

// Set is an immutable membership set of exact snapshot names.
// Entries are never parsed: a malformed or exotic name is protected just the same.
// A nil *Set is empty.
type Set struct {
	names map[string]struct{}
}

// Empty returns a set with no members.
func Empty() *Set {
	return &Set{names: map[string]struct{}{}}
}

// FromLines builds a set from one entry per line. Surrounding whitespace is
// trimmed; blank lines and lines starting with '#' are skipped.
func FromLines(lines []string) *Set {
	s := Empty()
	for _, line := range lines {
		entry := strings.TrimSpace(line)
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		s.names[entry] = struct{}{}
	}
	return s
}

// Load reads an exclusion file. An empty path yields an empty set.
func Load(path string) (*Set, error) {
	if path == "" {
		return Empty(), nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand exclude file path %s: %w", path, err)
	}

	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("open exclude file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read exclude file %s: %w", expanded, err)
	}
	return FromLines(lines), nil
}

// Contains reports exact membership.
func (s *Set) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.names[name]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the members in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
