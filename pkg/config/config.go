// Package config resolves the build configuration for an MKP package from
// three layers: built-in defaults, the project's .mkp-builder.ini, and
// explicit overrides supplied by the command line. Precedence, highest
// first: override, INI value, default.
//
// Overrides use pointer fields so that "explicitly empty" and "not
// provided" remain distinct states: an override pointing at an empty
// string still wins over the INI value.
package config

import (
	"regexp"
	"sync"

	koanftoml "github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/v2"

	"github.com/oetiker/mkp-builder/pkg/errors"
)

// ConfigFileName is the project configuration file discovered in the work directory
const ConfigFileName = ".mkp-builder.ini"

// versionPattern is the accepted MAJOR.MINOR.PATCH package version prefix
var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+`)

// BuildConfig is the fully resolved, immutable configuration of one build.
// Name and Version are guaranteed non-empty; the remaining identity fields
// may be empty when no layer provided them.
type BuildConfig struct {
	Name        string
	Title       string
	Author      string
	Description string
	DownloadURL string

	Version            string
	VersionMinRequired string
	VersionPackaged    string
	// VersionUsableUntil is nil when no layer provided a value; it is the
	// only version field rendered as null in the package metadata.
	VersionUsableUntil *string

	OutputDir        string
	ValidatePython   bool
	AddonsFlatLayout bool
	Verbose          bool
}

// OutputFileName returns the archive file name, <name>-<version>.mkp.
func (c *BuildConfig) OutputFileName() string {
	return c.Name + "-" + c.Version + ".mkp"
}

// Overrides carries explicit per-key values from the front-end. A nil field
// means "not provided"; a pointer to the zero value means "explicitly set
// to empty", which is a different state and is not replaced by INI values.
type Overrides struct {
	Name        *string
	Title       *string
	Author      *string
	Description *string
	DownloadURL *string

	Version            *string
	VersionMinRequired *string
	VersionPackaged    *string
	VersionUsableUntil *string

	OutputDir        *string
	ValidatePython   *bool
	AddonsFlatLayout *bool
	Verbose          *bool
}

// defaults is the typed view of the embedded defaults layer
type defaults struct {
	versionMinRequired string
	versionPackaged    string
	validatePython     bool
	outputDir          string
	verbose            bool
	addonsFlatLayout   bool
}

var (
	builtinDefaults     defaults
	builtinDefaultsOnce sync.Once
)

// loadDefaults decodes the embedded defaults.toml through koanf.
func loadDefaults() defaults {
	builtinDefaultsOnce.Do(func() {
		k := koanf.New(".")
		if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, koanftoml.Parser()); err != nil {
			panic("config: embedded defaults are invalid: " + err.Error())
		}
		builtinDefaults = defaults{
			versionMinRequired: k.String("package.version_min_required"),
			versionPackaged:    k.String("package.version_packaged"),
			validatePython:     k.Bool("build.validate_python"),
			outputDir:          k.String("build.output_dir"),
			verbose:            k.Bool("build.verbose"),
			addonsFlatLayout:   k.Bool("build.addons_flat_layout"),
		}
	})
	return builtinDefaults
}

// merge picks the highest-precedence value for one string key.
func merge(override, iniValue *string, fallback string) string {
	if override != nil {
		return *override
	}
	if iniValue != nil {
		return *iniValue
	}
	return fallback
}

// mergeBool picks the highest-precedence value for one boolean key.
func mergeBool(override, iniValue *bool, fallback bool) bool {
	if override != nil {
		return *override
	}
	if iniValue != nil {
		return *iniValue
	}
	return fallback
}

// mergeOptional merges a key with no default; the result stays nil when no
// layer provided a value or the winning value is empty.
func mergeOptional(override, iniValue *string) *string {
	var v *string
	switch {
	case override != nil:
		v = override
	case iniValue != nil:
		v = iniValue
	}
	if v == nil || *v == "" {
		return nil
	}
	s := *v
	return &s
}

// validate enforces the invariants that must hold before archive building
// starts: name and version present, version in MAJOR.MINOR.PATCH form.
func (c *BuildConfig) validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrConfigInvalid,
			"package name could not be determined, set it in "+ConfigFileName+" or pass --name")
	}
	if c.Version == "" {
		return errors.New(errors.ErrConfigInvalid,
			"package version is required, pass --pkg-version")
	}
	if !versionPattern.MatchString(c.Version) {
		return errors.Newf(errors.ErrConfigInvalid,
			"invalid version format %q, expected MAJOR.MINOR.PATCH (e.g. 1.2.3)", c.Version).
			WithDetail("version", c.Version)
	}
	return nil
}
