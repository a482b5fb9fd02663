// Package validate implements the two safety nets around archive building:
// a pre-build syntax check of the Python sources destined for the addon and
// lib domains, and a post-build structural check of the written archive.
package validate

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"path"
	"regexp"
	"strconv"

	"github.com/oetiker/mkp-builder/pkg/errors"
	"github.com/oetiker/mkp-builder/pkg/layout"
	"github.com/oetiker/mkp-builder/pkg/logging"
	"github.com/oetiker/mkp-builder/pkg/mapping"
)

// ScriptExtension is the recognized extension for syntax-checked sources
const ScriptExtension = ".py"

// DefaultPython is the interpreter used when none is configured
const DefaultPython = "python3"

// Checker verifies that one source file is syntactically valid.
type Checker interface {
	Check(ctx context.Context, path string) error
}

// FileResult records the outcome of one pre-build check, for reporting.
type FileResult struct {
	Path    string
	Err     error
	Line    int
	Message string
}

// lineRe extracts the failing line from the interpreter's traceback
var lineRe = regexp.MustCompile(`line (\d+)`)

// CommandChecker compiles files with an external Python interpreter.
type CommandChecker struct {
	// Python is the interpreter binary; DefaultPython when empty.
	Python string
}

// Check runs the interpreter's compiler against the file. A non-zero exit
// becomes a PYTHON_SYNTAX error carrying the file and, when the traceback
// names one, the line number.
func (c *CommandChecker) Check(ctx context.Context, file string) error {
	python := c.Python
	if python == "" {
		python = DefaultPython
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, python, "-m", "py_compile", file)
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !stderrors.As(err, &exitErr) {
		return errors.Wrapf(err, errors.ErrFileAccess,
			"cannot run syntax checker %s", python)
	}

	verr := errors.Newf(errors.ErrPythonSyntax,
		"python syntax error in %s", file).
		WithDetail("file", file).
		WithDetail("stderr", stderr.String())
	if m := lineRe.FindStringSubmatch(stderr.String()); m != nil {
		line, _ := strconv.Atoi(m[1])
		verr = verr.WithDetail("line", line)
	}
	return verr
}

// PreBuild checks every addon and lib source with a recognized script
// extension, aborting on the first failure. It runs before any archive
// bytes are written. The returned results cover every checked file, also
// on success, so callers can report them.
func PreBuild(ctx context.Context, set *mapping.SourceFileSet, checker Checker) ([]FileResult, error) {
	logger := logging.GetLogger("validate")

	var results []FileResult
	for _, d := range []layout.Domain{layout.DomainAddons, layout.DomainLib} {
		for _, e := range set.Entries(d) {
			if path.Ext(e.Target) != ScriptExtension {
				continue
			}
			logger.Debug().Str("path", e.Source).Msg("Validating")
			err := checker.Check(ctx, e.Source)
			res := FileResult{Path: e.Source, Err: err}
			if err != nil {
				details := errors.GetErrorDetails(err)
				if line, ok := details["line"].(int); ok {
					res.Line = line
				}
				res.Message = err.Error()
				results = append(results, res)
				return results, err
			}
			results = append(results, res)
		}
	}

	logger.Info().Int("checked", len(results)).Msg("All python files validated")
	return results, nil
}
