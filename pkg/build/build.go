// Package build runs the MKP packaging pipeline: resolve configuration,
// scan the source tree, map paths, generate metadata, validate, and write
// the archive. Stages run strictly in sequence; each hands immutable data
// to the next.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oetiker/mkp-builder/pkg/archive"
	"github.com/oetiker/mkp-builder/pkg/config"
	"github.com/oetiker/mkp-builder/pkg/layout"
	"github.com/oetiker/mkp-builder/pkg/logging"
	"github.com/oetiker/mkp-builder/pkg/mapping"
	"github.com/oetiker/mkp-builder/pkg/metadata"
	"github.com/oetiker/mkp-builder/pkg/report"
	"github.com/oetiker/mkp-builder/pkg/scan"
	"github.com/oetiker/mkp-builder/pkg/validate"
)

// Options are the inputs of one build.
type Options struct {
	// WorkDir is the project root. Relative output directories resolve
	// against it.
	WorkDir string

	// ConfigFile is an explicit config file path; autodiscovery when empty.
	ConfigFile string

	// Overrides are the explicit per-key configuration values.
	Overrides config.Overrides

	// Layout overrides the convention table; layout.Default() when nil.
	Layout *layout.Layout

	// Checker overrides the syntax checker; the python3 CommandChecker
	// when nil.
	Checker validate.Checker

	// JUnitReport, when set, is where the validation results are written
	// as JUnit XML.
	JUnitReport string
}

// Result describes a successful build.
type Result struct {
	Path    string
	Size    int64
	Name    string
	Version string
	Files   metadata.FileLists
}

// FileCount returns the total number of packaged files.
func (r *Result) FileCount() int {
	return len(r.Files.Agents) + len(r.Files.Addons) + len(r.Files.Lib)
}

// Run executes the pipeline. On any error no output file exists at the
// final destination.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.GetLogger("build")

	cfg, err := config.Resolve(config.ResolveOptions{
		WorkDir:    opts.WorkDir,
		ConfigFile: opts.ConfigFile,
		Overrides:  opts.Overrides,
	})
	if err != nil {
		return nil, err
	}

	l := layout.Default()
	if opts.Layout != nil {
		l = *opts.Layout
	}

	candidates, err := scan.New(l).Scan(opts.WorkDir, cfg.Name)
	if err != nil {
		return nil, err
	}

	set, err := mapping.Map(candidates, l, cfg.Name, mapping.Policy{
		AddonsFlatLayout: cfg.AddonsFlatLayout,
	})
	if err != nil {
		return nil, err
	}

	meta := metadata.FromBuild(cfg, set)

	if cfg.ValidatePython {
		checker := opts.Checker
		if checker == nil {
			checker = &validate.CommandChecker{}
		}
		results, verr := validate.PreBuild(ctx, set, checker)
		if opts.JUnitReport != "" {
			if rerr := report.WriteJUnit(opts.JUnitReport, results); rerr != nil && verr == nil {
				return nil, rerr
			}
		}
		if verr != nil {
			return nil, verr
		}
	} else {
		logger.Info().Msg("Skipping python validation")
	}

	infoJSON, err := meta.RenderJSON()
	if err != nil {
		return nil, err
	}

	outDir := cfg.OutputDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(opts.WorkDir, outDir)
	}

	path, size, err := archive.Write(outDir, cfg.OutputFileName(), meta.RenderInfo(), infoJSON, set)
	if err != nil {
		return nil, err
	}

	if err := validate.PostBuild(path); err != nil {
		// A structurally broken archive must not survive as a deliverable.
		_ = os.Remove(path)
		return nil, err
	}

	logger.Info().Str("path", path).Str("size", HumanSize(size)).Msg("MKP package created")
	return &Result{
		Path:    path,
		Size:    size,
		Name:    cfg.Name,
		Version: cfg.Version,
		Files:   meta.Files,
	}, nil
}

// HumanSize formats a byte count the way the result summary reports it.
func HumanSize(n int64) string {
	for _, unit := range []string{"B", "K", "M", "G"} {
		if n < 1024 {
			return fmt.Sprintf("%d%s", n, unit)
		}
		n /= 1024
	}
	return fmt.Sprintf("%dT", n)
}
