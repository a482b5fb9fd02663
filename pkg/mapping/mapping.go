// Package mapping translates scanner candidates into archive-relative
// target paths per domain. It is a pure function of its inputs: no
// filesystem access, no mutation of the scanner's output.
package mapping

import (
	"path"
	"sort"
	"strings"

	"github.com/oetiker/mkp-builder/pkg/errors"
	"github.com/oetiker/mkp-builder/pkg/layout"
	"github.com/oetiker/mkp-builder/pkg/scan"
)

// Entry is one file of the package: where it comes from and where it lands
// inside its domain's interior tar.
type Entry struct {
	Source     string
	Target     string
	Executable bool
}

// Policy holds the mapping decisions that are configuration rather than
// convention.
type Policy struct {
	// AddonsFlatLayout additionally maps every addon file to its
	// un-prefixed relative path. The MKP format documentation shows both
	// the flat and the package-scoped layout, so this is an explicit
	// switch instead of guessed intent.
	AddonsFlatLayout bool
}

// SourceFileSet is the mapped file set of one build, keyed by domain.
// Built once, never mutated after.
type SourceFileSet struct {
	byDomain map[layout.Domain][]Entry
}

// Entries returns the domain's entries sorted by target path.
func (s *SourceFileSet) Entries(d layout.Domain) []Entry {
	return s.byDomain[d]
}

// Targets returns the domain's target paths sorted lexicographically.
func (s *SourceFileSet) Targets(d layout.Domain) []string {
	entries := s.byDomain[d]
	targets := make([]string, len(entries))
	for i, e := range entries {
		targets[i] = e.Target
	}
	return targets
}

// Len returns the total number of entries across all domains.
func (s *SourceFileSet) Len() int {
	n := 0
	for _, entries := range s.byDomain {
		n += len(entries)
	}
	return n
}

// Map applies the domain rewrite rules to the scanner's candidates.
func Map(candidates []scan.Candidate, l layout.Layout, packageName string, policy Policy) (*SourceFileSet, error) {
	set := &SourceFileSet{byDomain: map[layout.Domain][]Entry{}}
	seen := map[layout.Domain]map[string]string{}
	for _, d := range layout.Domains() {
		set.byDomain[d] = []Entry{}
		seen[d] = map[string]string{}
	}

	add := func(domain layout.Domain, source, target string, executable bool) error {
		if escapesDomain(target) {
			return errors.Newf(errors.ErrInternal, "target %q escapes its domain root", target).
				WithDetail("source", source)
		}
		if prev, ok := seen[domain][target]; ok {
			return errors.Newf(errors.ErrTargetCollision,
				"both %s and %s map to %q in %s", prev, source, target, domain).
				WithDetail("target", target)
		}
		seen[domain][target] = source
		set.byDomain[domain] = append(set.byDomain[domain], Entry{
			Source:     source,
			Target:     target,
			Executable: executable,
		})
		return nil
	}

	for _, c := range candidates {
		switch c.Domain {
		case layout.DomainAgents:
			if err := add(c.Domain, c.Source, path.Join(l.Agents.TargetPrefix, c.Rel), c.Executable); err != nil {
				return nil, err
			}
		case layout.DomainAddons:
			if err := add(c.Domain, c.Source, path.Join(packageName, c.Rel), c.Executable); err != nil {
				return nil, err
			}
			if policy.AddonsFlatLayout {
				if err := add(c.Domain, c.Source, c.Rel, c.Executable); err != nil {
					return nil, err
				}
			}
		case layout.DomainLib:
			// The scanner already emits the fixed, alias-resolved target.
			if err := add(c.Domain, c.Source, c.Rel, c.Executable); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Newf(errors.ErrInternal, "unknown domain %q", c.Domain)
		}
	}

	for _, d := range layout.Domains() {
		entries := set.byDomain[d]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Target < entries[j].Target })
	}

	return set, nil
}

// escapesDomain reports whether a target path would leave its domain root.
func escapesDomain(target string) bool {
	clean := path.Clean(target)
	return clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) || clean == "."
}
