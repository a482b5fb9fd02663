// Package layout defines the fixed directory-name conventions that map a
// CheckMK plugin project tree onto the MKP archive domains. The conventions
// are data, not code: they live in an embedded TOML table so tests can load
// an alternate table pointing at fixtures.
package layout

import (
	_ "embed"
	"io"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/oetiker/mkp-builder/pkg/errors"
)

// Domain identifies one of the three file categories an MKP transports.
type Domain string

const (
	// DomainAgents holds agent-side scripts, rooted at "plugins/" in the archive
	DomainAgents Domain = "agents"

	// DomainAddons holds web-UI addon code, package-name scoped
	DomainAddons Domain = "cmk_addons_plugins"

	// DomainLib holds core library extensions (bakery plugins)
	DomainLib Domain = "lib"
)

// Domains returns all domains in their archive member order.
func Domains() []Domain {
	return []Domain{DomainAgents, DomainAddons, DomainLib}
}

// PycacheDirName is the Python bytecode cache directory excluded from every domain
const PycacheDirName = "__pycache__"

// namePlaceholder is expanded to the package name in path templates
const namePlaceholder = "{name}"

// AgentRules describes where agent scripts live and how they are prefixed
// inside agents.tar.
type AgentRules struct {
	Root         string `toml:"root"`
	TargetPrefix string `toml:"target_prefix"`
}

// AddonRules describes the package-name-scoped addon root.
type AddonRules struct {
	Root string `toml:"root"`
}

// LibRules describes the library root, the bakery plugin location, and the
// legacy alias directory that conventionally symlinks to the real library
// directory. BakeryDir is relative to RealDir (and equally to AliasDir).
type LibRules struct {
	Root      string `toml:"root"`
	AliasDir  string `toml:"alias_dir"`
	RealDir   string `toml:"real_dir"`
	BakeryDir string `toml:"bakery_dir"`
	File      string `toml:"file"`
}

// Layout is the complete convention table passed into scanner and mapper.
type Layout struct {
	Agents AgentRules `toml:"agents"`
	Addons AddonRules `toml:"addons"`
	Lib    LibRules   `toml:"lib"`
}

//go:embed embedded/layout.toml
var defaultLayoutTOML []byte

var (
	defaultLayout     Layout
	defaultLayoutOnce sync.Once
)

// Default returns the built-in CheckMK 2.3 convention table.
func Default() Layout {
	defaultLayoutOnce.Do(func() {
		if err := toml.Unmarshal(defaultLayoutTOML, &defaultLayout); err != nil {
			// The embedded table ships with the binary; failing to decode
			// it is a build defect, not a runtime condition.
			panic("layout: embedded convention table is invalid: " + err.Error())
		}
	})
	return defaultLayout
}

// Parse decodes a convention table from r. Used by tests to redirect the
// conventions at fixture trees.
func Parse(r io.Reader) (Layout, error) {
	var l Layout
	data, err := io.ReadAll(r)
	if err != nil {
		return Layout{}, errors.Wrap(err, errors.ErrFileAccess, "cannot read layout table")
	}
	if err := toml.Unmarshal(data, &l); err != nil {
		return Layout{}, errors.Wrap(err, errors.ErrConfigParse, "cannot decode layout table")
	}
	return l, nil
}

// Expand substitutes the package name into a path template.
func Expand(template, packageName string) string {
	return strings.ReplaceAll(template, namePlaceholder, packageName)
}

// AddonRoot returns the addon root for the given package name.
func (l Layout) AddonRoot(packageName string) string {
	return Expand(l.Addons.Root, packageName)
}

// LibFile returns the bakery plugin file name for the given package name.
func (l Layout) LibFile(packageName string) string {
	return Expand(l.Lib.File, packageName)
}

// LibRealName returns the archive-side name of the library directory: the
// real (non-alias) directory made relative to the lib root. Archive targets
// always carry this name, never the alias name.
func (l Layout) LibRealName() string {
	return strings.TrimPrefix(l.Lib.RealDir, l.Lib.Root+"/")
}
