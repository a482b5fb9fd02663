// Package scan enumerates the source files of a CheckMK plugin project for
// each of the three MKP archive domains. It walks the fixed-convention
// roots described by a layout table, drops Python bytecode caches, and
// refuses to continue when the legacy lib alias directory and the real lib
// directory exist as two independent trees.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/oetiker/mkp-builder/pkg/errors"
	"github.com/oetiker/mkp-builder/pkg/layout"
	"github.com/oetiker/mkp-builder/pkg/logging"
)

// Candidate is one source file enumerated for a domain, before path mapping.
type Candidate struct {
	// Source is the absolute path of the file in the project tree.
	Source string

	// Domain is the archive domain the file belongs to.
	Domain layout.Domain

	// Rel is the file's slash-separated path relative to its domain root.
	Rel string

	// Executable records the owner-executable bit of the source file.
	Executable bool
}

// Scanner walks a project tree according to a layout table.
type Scanner struct {
	layout layout.Layout
}

// New returns a Scanner using the given convention table.
func New(l layout.Layout) *Scanner {
	return &Scanner{layout: l}
}

// Scan enumerates all candidates for the given project root and package
// name. Missing domain roots are not errors and contribute zero files.
// The result is sorted by domain and relative path.
func (s *Scanner) Scan(projectRoot, packageName string) ([]Candidate, error) {
	logger := logging.GetLogger("scan")

	if err := s.checkLibConflict(projectRoot); err != nil {
		return nil, err
	}

	var candidates []Candidate

	agents, err := s.walkDomain(filepath.Join(projectRoot, filepath.FromSlash(s.layout.Agents.Root)), layout.DomainAgents)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, agents...)

	addons, err := s.walkDomain(filepath.Join(projectRoot, filepath.FromSlash(s.layout.AddonRoot(packageName))), layout.DomainAddons)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, addons...)

	lib, err := s.findLibFile(projectRoot, packageName)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, lib...)

	domainOrder := map[layout.Domain]int{}
	for i, d := range layout.Domains() {
		domainOrder[d] = i
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Domain != candidates[j].Domain {
			return domainOrder[candidates[i].Domain] < domainOrder[candidates[j].Domain]
		}
		return candidates[i].Rel < candidates[j].Rel
	})

	logger.Info().Int("count", len(candidates)).Msg("Source tree scanned")
	return candidates, nil
}

// walkDomain collects every regular file below root, pruning bytecode
// cache directories. A missing root yields no candidates.
func (s *Scanner) walkDomain(root string, domain layout.Domain) ([]Candidate, error) {
	logger := logging.GetLogger("scan")

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("root", root).Str("domain", string(domain)).Msg("Domain root missing, skipping")
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot access %s", root).
			WithDetail("path", root)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrInvalidInput, "%s is not a directory", root).
			WithDetail("path", root)
	}

	var candidates []Candidate
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", path).
				WithDetail("path", path)
		}
		if d.IsDir() {
			if d.Name() == layout.PycacheDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", path).
				WithDetail("path", path)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "relative path computation failed")
		}

		candidates = append(candidates, Candidate{
			Source:     path,
			Domain:     domain,
			Rel:        filepath.ToSlash(rel),
			Executable: fi.Mode()&0o111 != 0,
		})
		logger.Trace().Str("path", path).Str("domain", string(domain)).Msg("Found candidate")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// findLibFile locates the single optional bakery plugin file. It prefers
// the real lib directory and falls back to the alias directory, so legacy
// trees that only carry the alias name still package correctly.
func (s *Scanner) findLibFile(projectRoot, packageName string) ([]Candidate, error) {
	l := s.layout
	file := l.LibFile(packageName)
	bakery := filepath.FromSlash(l.Lib.BakeryDir)

	roots := []string{
		filepath.Join(projectRoot, filepath.FromSlash(l.Lib.RealDir)),
		filepath.Join(projectRoot, filepath.FromSlash(l.Lib.AliasDir)),
	}

	for _, dir := range roots {
		path := filepath.Join(dir, bakery, file)
		fi, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot access %s", path).
				WithDetail("path", path)
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		// Rel always carries the real directory name, regardless of which
		// path the file was discovered through.
		rel := l.LibRealName() + "/" + l.Lib.BakeryDir + "/" + file
		return []Candidate{{
			Source:     path,
			Domain:     layout.DomainLib,
			Rel:        rel,
			Executable: fi.Mode()&0o111 != 0,
		}}, nil
	}
	return nil, nil
}

// checkLibConflict fails when the alias directory and the real lib
// directory both exist but are not views of the same tree. Silently
// preferring one of them risks packaging a stale or incomplete plugin.
func (s *Scanner) checkLibConflict(projectRoot string) error {
	aliasPath := filepath.Join(projectRoot, filepath.FromSlash(s.layout.Lib.AliasDir))
	realPath := filepath.Join(projectRoot, filepath.FromSlash(s.layout.Lib.RealDir))

	aliasInfo, err := os.Stat(aliasPath)
	if err != nil || !aliasInfo.IsDir() {
		return nil
	}
	realInfo, err := os.Stat(realPath)
	if err != nil || !realInfo.IsDir() {
		return nil
	}

	// Canonicalize both and compare identity rather than special-casing
	// the symlink mechanism; this works on filesystems without symlinks.
	aliasCanon, err := filepath.EvalSymlinks(aliasPath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot resolve %s", aliasPath)
	}
	realCanon, err := filepath.EvalSymlinks(realPath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot resolve %s", realPath)
	}

	if aliasCanon != realCanon {
		return errors.Newf(errors.ErrSourceConflict,
			"%s and %s both exist as independent directories; make one a symlink to the other",
			s.layout.Lib.AliasDir, s.layout.Lib.RealDir).
			WithDetail("alias", aliasPath).
			WithDetail("real", realPath)
	}
	return nil
}
