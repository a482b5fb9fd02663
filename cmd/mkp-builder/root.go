package main

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	"github.com/spf13/pflag"

	"github.com/oetiker/mkp-builder/internal/version"
	"github.com/oetiker/mkp-builder/pkg/build"
	"github.com/oetiker/mkp-builder/pkg/cobrax/topics"
	"github.com/oetiker/mkp-builder/pkg/config"
	"github.com/oetiker/mkp-builder/pkg/logging"
	"github.com/oetiker/mkp-builder/pkg/output"
)

//go:embed docs
var docsFS embed.FS

// buildFlags holds the raw command line values. Only flags the user
// actually set become overrides, so an explicitly empty value clears a
// config key while an untouched flag leaves it alone.
type buildFlags struct {
	configFile string

	pkgVersion         string
	name               string
	title              string
	author             string
	description        string
	downloadURL        string
	versionMinRequired string
	versionPackaged    string
	versionUsableUntil string

	outputDir        string
	validate         bool
	addonsFlatLayout bool
	junitReport      string
	githubActionMode bool
	noColor          bool
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	initTemplateFormatting()

	var (
		verbosity int
		flags     buildFlags
	)

	rootCmd := &cobra.Command{
		Use:     "mkp-builder",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		Args:    cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, &flags, verbosity)
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", MsgFlagVerbose)

	f := rootCmd.Flags()
	f.StringVar(&flags.configFile, "config", "", MsgFlagConfig)
	f.StringVar(&flags.pkgVersion, "pkg-version", "", MsgFlagPkgVersion)
	f.StringVar(&flags.name, "name", "", MsgFlagName)
	f.StringVar(&flags.title, "title", "", MsgFlagTitle)
	f.StringVar(&flags.author, "author", "", MsgFlagAuthor)
	f.StringVar(&flags.description, "description", "", MsgFlagDescription)
	f.StringVar(&flags.downloadURL, "download-url", "", MsgFlagDownloadURL)
	f.StringVar(&flags.versionMinRequired, "version-min-required", "", MsgFlagVersionMin)
	f.StringVar(&flags.versionPackaged, "version-packaged", "", MsgFlagVersionPackaged)
	f.StringVar(&flags.versionUsableUntil, "version-usable-until", "", MsgFlagVersionUsable)
	f.StringVar(&flags.outputDir, "output-dir", "", MsgFlagOutputDir)
	f.BoolVar(&flags.validate, "validate", true, MsgFlagValidate)
	f.BoolVar(&flags.addonsFlatLayout, "addons-flat-layout", false, MsgFlagAddonsFlat)
	f.StringVar(&flags.junitReport, "junit-report", "", MsgFlagJUnitReport)
	f.BoolVar(&flags.githubActionMode, "github-action-mode", false, MsgFlagGithubActionMode)
	f.BoolVar(&flags.noColor, "no-color", false, MsgFlagNoColor)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newManCmd(rootCmd))

	installHelpTopics(rootCmd)

	return rootCmd
}

// installHelpTopics wires the embedded documentation into the help system.
func installHelpTopics(rootCmd *cobra.Command) {
	docs, err := fs.Sub(docsFS, "docs")
	if err != nil {
		return
	}
	manager, err := topics.New(docs, topics.Options{
		Renderer: topics.NewGlamourRenderer(),
	})
	if err != nil {
		return
	}
	manager.Install(rootCmd)
}

// overridesFromFlags maps the flags the user actually set to config
// overrides.
func overridesFromFlags(fs *pflag.FlagSet, flags *buildFlags) config.Overrides {
	var o config.Overrides

	setStr := func(name string, dst **string, val string) {
		if fs.Changed(name) {
			v := val
			*dst = &v
		}
	}
	setBool := func(name string, dst **bool, val bool) {
		if fs.Changed(name) {
			v := val
			*dst = &v
		}
	}

	setStr("pkg-version", &o.Version, flags.pkgVersion)
	setStr("name", &o.Name, flags.name)
	setStr("title", &o.Title, flags.title)
	setStr("author", &o.Author, flags.author)
	setStr("description", &o.Description, flags.description)
	setStr("download-url", &o.DownloadURL, flags.downloadURL)
	setStr("version-min-required", &o.VersionMinRequired, flags.versionMinRequired)
	setStr("version-packaged", &o.VersionPackaged, flags.versionPackaged)
	setStr("version-usable-until", &o.VersionUsableUntil, flags.versionUsableUntil)
	setStr("output-dir", &o.OutputDir, flags.outputDir)
	setBool("validate", &o.ValidatePython, flags.validate)
	setBool("addons-flat-layout", &o.AddonsFlatLayout, flags.addonsFlatLayout)

	return o
}

func runBuild(cmd *cobra.Command, flags *buildFlags, verbosity int) error {
	logger := logging.GetLogger("cmd")

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	res, err := build.Run(cmd.Context(), build.Options{
		WorkDir:     workDir,
		ConfigFile:  flags.configFile,
		Overrides:   overridesFromFlags(cmd.Flags(), flags),
		JUnitReport: flags.junitReport,
	})
	if err != nil {
		return err
	}

	logger.Debug().Str("path", res.Path).Msg("Build finished")

	noColor := flags.noColor || output.DetectNoColor(os.Stdout)
	renderer, err := output.NewRenderer(cmd.OutOrStdout(), noColor)
	if err != nil {
		return err
	}
	if err := renderer.RenderResult(output.ResultView{
		Path:      res.Path,
		Name:      res.Name,
		Version:   res.Version,
		Size:      build.HumanSize(res.Size),
		FileCount: res.FileCount(),
		Agents:    res.Files.Agents,
		Addons:    res.Files.Addons,
		Lib:       res.Files.Lib,
	}); err != nil {
		return err
	}

	if verbosity > 0 {
		listArchiveMembers(renderer, res)
	}

	if flags.githubActionMode {
		return writeActionOutputs(cmd.OutOrStdout(), res)
	}
	return nil
}

// listArchiveMembers prints every packaged file grouped by archive part.
func listArchiveMembers(renderer *output.Renderer, res *build.Result) {
	for _, group := range []struct {
		part  string
		files []string
	}{
		{"agents", res.Files.Agents},
		{"cmk_addons_plugins", res.Files.Addons},
		{"lib", res.Files.Lib},
	} {
		for _, file := range group.files {
			_ = renderer.RenderMessage("Muted", fmt.Sprintf("  %s/%s", group.part, file))
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: MsgVersionShort,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("mkp-builder version %s\n", version.Version)
			cmd.Printf("  commit: %s\n", version.Commit)
			cmd.Printf("  built:  %s\n", version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

func newManCmd(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "man [dir]",
		Short: MsgManShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			header := &doc.GenManHeader{
				Title:   "MKP-BUILDER",
				Section: "1",
			}
			return doc.GenManTree(rootCmd, header, dir)
		},
	}
}
