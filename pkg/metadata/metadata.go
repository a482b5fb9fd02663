// Package metadata derives the MKP "info" record from a resolved build
// configuration and the mapped file set, and serializes it twice: once as
// a Python dict literal (the classic "info" member) and once as pretty
// JSON ("info.json"). Both renderings decode to the same data.
package metadata

import (
	"bytes"
	"encoding/json"

	"github.com/oetiker/mkp-builder/pkg/config"
	"github.com/oetiker/mkp-builder/pkg/errors"
	"github.com/oetiker/mkp-builder/pkg/layout"
	"github.com/oetiker/mkp-builder/pkg/mapping"
)

// FileLists carries the per-domain target paths, in the archive's domain
// order. The listed paths are exactly the paths written into the interior
// tars.
type FileLists struct {
	Agents []string `json:"agents"`
	Addons []string `json:"cmk_addons_plugins"`
	Lib    []string `json:"lib"`
}

// PackageMetadata is the info record of one package.
type PackageMetadata struct {
	Author             string
	Description        string
	DownloadURL        string
	Files              FileLists
	Name               string
	Title              string
	Version            string
	VersionMinRequired string
	VersionPackaged    string
	// VersionUsableUntil renders as None/null when nil.
	VersionUsableUntil *string
}

// FromBuild assembles the metadata record for a build.
func FromBuild(cfg *config.BuildConfig, set *mapping.SourceFileSet) *PackageMetadata {
	return &PackageMetadata{
		Author:             cfg.Author,
		Description:        cfg.Description,
		DownloadURL:        cfg.DownloadURL,
		Files: FileLists{
			Agents: set.Targets(layout.DomainAgents),
			Addons: set.Targets(layout.DomainAddons),
			Lib:    set.Targets(layout.DomainLib),
		},
		Name:               cfg.Name,
		Title:              cfg.Title,
		Version:            cfg.Version,
		VersionMinRequired: cfg.VersionMinRequired,
		VersionPackaged:    cfg.VersionPackaged,
		VersionUsableUntil: cfg.VersionUsableUntil,
	}
}

// jsonRecord fixes the key order of the JSON rendering. Field order is the
// sorted key order the dict-literal rendering uses as well.
type jsonRecord struct {
	Author             string    `json:"author"`
	Description        string    `json:"description"`
	DownloadURL        string    `json:"download_url"`
	Files              FileLists `json:"files"`
	Name               string    `json:"name"`
	Title              string    `json:"title"`
	Version            string    `json:"version"`
	VersionMinRequired string    `json:"version.min_required"`
	VersionPackaged    string    `json:"version.packaged"`
	VersionUsableUntil *string   `json:"version.usable_until"`
}

// RenderJSON produces the info.json member: 2-space indented, stable key
// order, null for an absent usable-until version.
func (m *PackageMetadata) RenderJSON() ([]byte, error) {
	rec := jsonRecord{
		Author:             m.Author,
		Description:        m.Description,
		DownloadURL:        m.DownloadURL,
		Files:              m.Files,
		Name:               m.Name,
		Title:              m.Title,
		Version:            m.Version,
		VersionMinRequired: m.VersionMinRequired,
		VersionPackaged:    m.VersionPackaged,
		VersionUsableUntil: m.VersionUsableUntil,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot encode info.json")
	}
	return buf.Bytes(), nil
}
