package config

import (
	"github.com/oetiker/mkp-builder/pkg/logging"
)

// ResolveOptions are the inputs to config resolution.
type ResolveOptions struct {
	// WorkDir is the project root; .mkp-builder.ini is discovered here
	// when ConfigFile is empty.
	WorkDir string

	// ConfigFile is an explicit config file path. When set, the file must
	// exist and parse.
	ConfigFile string

	// Overrides are the explicit per-key values from the front-end.
	Overrides Overrides
}

// Resolve merges defaults, the INI file, and overrides into one immutable
// BuildConfig. Pure merge apart from reading the config file; it never
// touches the source tree.
func Resolve(opts ResolveOptions) (*BuildConfig, error) {
	logger := logging.GetLogger("config")

	path, err := findConfigFile(opts.WorkDir, opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	var fileValues Overrides
	if path != "" {
		logger.Info().Str("path", path).Msg("Loading configuration")
		fileValues, err = loadINI(path)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn().Msg("No configuration file found")
	}

	def := loadDefaults()
	ov := opts.Overrides

	cfg := &BuildConfig{
		Name:        merge(ov.Name, fileValues.Name, ""),
		Author:      merge(ov.Author, fileValues.Author, ""),
		Description: merge(ov.Description, fileValues.Description, ""),
		DownloadURL: merge(ov.DownloadURL, fileValues.DownloadURL, ""),

		Version:            merge(ov.Version, nil, ""),
		VersionMinRequired: merge(ov.VersionMinRequired, fileValues.VersionMinRequired, def.versionMinRequired),
		VersionPackaged:    merge(ov.VersionPackaged, fileValues.VersionPackaged, def.versionPackaged),
		VersionUsableUntil: mergeOptional(ov.VersionUsableUntil, fileValues.VersionUsableUntil),

		OutputDir:        merge(ov.OutputDir, nil, def.outputDir),
		ValidatePython:   mergeBool(ov.ValidatePython, fileValues.ValidatePython, def.validatePython),
		AddonsFlatLayout: mergeBool(ov.AddonsFlatLayout, fileValues.AddonsFlatLayout, def.addonsFlatLayout),
		Verbose:          mergeBool(ov.Verbose, nil, def.verbose),
	}

	// Title falls back to the package name rather than staying empty.
	cfg.Title = merge(ov.Title, fileValues.Title, cfg.Name)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("name", cfg.Name).
		Str("version", cfg.Version).
		Str("title", cfg.Title).
		Bool("validatePython", cfg.ValidatePython).
		Msg("Configuration resolved")

	return cfg, nil
}
