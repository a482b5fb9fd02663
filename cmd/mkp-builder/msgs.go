package main

// Short messages (one-liners)
const (
	MsgRootShort = "Build CheckMK extension packages (MKP) from a source tree"
	MsgRootLong  = `mkp-builder packages a CheckMK plugin source tree into an MKP archive.

It scans the conventional locations for agent scripts, addon plugins and
bakery libraries, validates the python sources, and writes a reproducible
<name>-<version>.mkp file.

Configuration comes from a .mkp-builder.ini file in the working directory,
overridable per key on the command line. See 'mkp-builder help config'
and 'mkp-builder help format' for details.`

	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"
	MsgManShort        = "Generate man page"

	// Flag descriptions
	MsgFlagVerbose          = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig           = "Config file (default: .mkp-builder.ini in the working directory)"
	MsgFlagPkgVersion       = "Package version (MAJOR.MINOR.PATCH)"
	MsgFlagName             = "Package name (overrides config)"
	MsgFlagTitle            = "Package title (overrides config, defaults to name)"
	MsgFlagAuthor           = "Package author (overrides config)"
	MsgFlagDescription      = "Package description (overrides config)"
	MsgFlagDownloadURL      = "Package download URL (overrides config)"
	MsgFlagVersionMin       = "Minimum required CheckMK version (overrides config)"
	MsgFlagVersionPackaged  = "CheckMK version used for packaging (overrides config)"
	MsgFlagVersionUsable    = "Last CheckMK version the package works with (overrides config)"
	MsgFlagOutputDir        = "Directory the .mkp file is written to"
	MsgFlagValidate         = "Check python sources with py_compile before packaging"
	MsgFlagAddonsFlat       = "Additionally map addon files without the package prefix"
	MsgFlagJUnitReport      = "Write validation results as JUnit XML to this path"
	MsgFlagGithubActionMode = "Emit package-file/package-name/package-size action outputs"
	MsgFlagNoColor          = "Disable styled terminal output"
)
