package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/oetiker/mkp-builder/pkg/build"
	"github.com/oetiker/mkp-builder/pkg/errors"
)

// githubOutputEnv names the file GitHub Actions collects step outputs from.
const githubOutputEnv = "GITHUB_OUTPUT"

// writeActionOutputs emits the build result as GitHub Actions step outputs.
// When GITHUB_OUTPUT is set the key=value lines are appended there,
// otherwise they go to stdout so the mode is usable outside a workflow.
func writeActionOutputs(stdout io.Writer, res *build.Result) error {
	outputs := [][2]string{
		{"package-file", filepath.Base(res.Path)},
		{"package-name", res.Name},
		{"package-size", strconv.FormatInt(res.Size, 10)},
	}

	if path := os.Getenv(githubOutputEnv); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "failed to open %s file", githubOutputEnv)
		}
		defer func() { _ = f.Close() }()
		stdout = f
	}

	for _, kv := range outputs {
		if _, err := fmt.Fprintf(stdout, "%s=%s\n", kv[0], kv[1]); err != nil {
			return errors.Wrap(err, errors.ErrFileWrite, "failed to write action output")
		}
	}
	return nil
}
