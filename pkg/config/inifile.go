package config

import (
	"os"
	"path/filepath"

	ini "gopkg.in/ini.v1"

	"github.com/oetiker/mkp-builder/pkg/errors"
	"github.com/oetiker/mkp-builder/pkg/logging"
)

// packageSection is the single recognized section of the INI file
const packageSection = "package"

// loadINI reads the [package] section of an .mkp-builder.ini file into the
// pointer-per-key shape. Keys absent from the file stay nil. Multi-line
// values continue via indentation, configparser style.
func loadINI(path string) (Overrides, error) {
	logger := logging.GetLogger("config")

	var values Overrides

	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
	}, path)
	if err != nil {
		return values, errors.Wrapf(err, errors.ErrConfigParse,
			"cannot parse config file %s", path).WithDetail("path", path)
	}

	sec, err := cfg.GetSection(packageSection)
	if err != nil {
		logger.Warn().Str("path", path).Msg("No [package] section found in config file")
		return values, nil
	}

	strKey := func(name string) *string {
		if !sec.HasKey(name) {
			return nil
		}
		v := sec.Key(name).String()
		return &v
	}

	values.Name = strKey("name")
	values.Title = strKey("title")
	values.Author = strKey("author")
	values.Description = strKey("description")
	values.DownloadURL = strKey("download_url")
	values.VersionMinRequired = strKey("version.min_required")
	values.VersionPackaged = strKey("version.packaged")
	values.VersionUsableUntil = strKey("version.usable_until")

	for _, boolKey := range []struct {
		name string
		dst  **bool
	}{
		{"validate_python", &values.ValidatePython},
		{"addons_flat_layout", &values.AddonsFlatLayout},
	} {
		if !sec.HasKey(boolKey.name) {
			continue
		}
		b, err := sec.Key(boolKey.name).Bool()
		if err != nil {
			return Overrides{}, errors.Wrapf(err, errors.ErrConfigParse,
				"invalid boolean for %s in %s", boolKey.name, path).
				WithDetail("key", boolKey.name)
		}
		*boolKey.dst = &b
	}

	logger.Debug().Str("path", path).Msg("Loaded configuration file")
	return values, nil
}

// findConfigFile returns the config file to use: the explicit path when
// given (which must then exist), otherwise .mkp-builder.ini in the work
// directory when present, otherwise empty.
func findConfigFile(workDir, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.Wrapf(err, errors.ErrNotFound,
				"config file %s not found", explicit).WithDetail("path", explicit)
		}
		return explicit, nil
	}

	candidate := filepath.Join(workDir, ConfigFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", nil
}
