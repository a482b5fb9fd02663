// Test Type: Integration Test
// Description: Command wiring, flag override mapping, and a full build
// through the command line surface

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oetiker/mkp-builder/pkg/build"
	"github.com/oetiker/mkp-builder/pkg/testutil"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestRootCmdHasExpectedCommands(t *testing.T) {
	root := NewRootCmd()

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"version", "completion", "man", "help"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestRootCmdFlagSurface(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{
		"config", "pkg-version", "name", "title", "author", "description",
		"download-url", "version-min-required", "version-packaged",
		"version-usable-until", "output-dir", "validate",
		"addons-flat-layout", "junit-report", "github-action-mode", "no-color",
	} {
		assert.NotNil(t, root.Flags().Lookup(name), "missing flag %q", name)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
}

func TestOverridesOnlyForChangedFlags(t *testing.T) {
	root := NewRootCmd()
	require.NoError(t, root.Flags().Parse([]string{
		"--pkg-version", "1.2.3",
		"--description", "",
	}))

	var flags buildFlags
	flags.pkgVersion, _ = root.Flags().GetString("pkg-version")
	flags.description, _ = root.Flags().GetString("description")

	o := overridesFromFlags(root.Flags(), &flags)
	require.NotNil(t, o.Version)
	assert.Equal(t, "1.2.3", *o.Version)
	require.NotNil(t, o.Description, "explicitly empty flag still overrides")
	assert.Equal(t, "", *o.Description)
	assert.Nil(t, o.Name, "untouched flag stays unset")
	assert.Nil(t, o.ValidatePython, "untouched bool flag stays unset")
}

func TestRunBuildEndToEnd(t *testing.T) {
	p := testutil.NewProject(t)
	p.WriteExecutable("local/share/check_mk/agents/plugins/foo", "#!/bin/sh\n")
	p.WriteConfig("[package]\nname = foo\n")
	chdir(t, p.Root)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	// --validate=false keeps python3 out of the test environment loop
	root.SetArgs([]string{"--pkg-version", "1.0.0", "--validate=false", "--no-color"})
	require.NoError(t, root.Execute())

	assert.FileExists(t, filepath.Join(p.Root, "foo-1.0.0.mkp"))
	assert.Contains(t, out.String(), "MKP package created")
	assert.Contains(t, out.String(), "foo-1.0.0.mkp")
}

func TestRunBuildMissingVersionFails(t *testing.T) {
	p := testutil.NewProject(t)
	p.WriteConfig("[package]\nname = foo\n")
	chdir(t, p.Root)

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--validate=false"})

	assert.Error(t, root.Execute())
}

func TestWriteActionOutputsToStdout(t *testing.T) {
	t.Setenv("GITHUB_OUTPUT", "")

	var buf bytes.Buffer
	res := &build.Result{Path: "/tmp/out/foo-1.0.0.mkp", Name: "foo", Size: 1234}
	require.NoError(t, writeActionOutputs(&buf, res))

	assert.Equal(t, "package-file=foo-1.0.0.mkp\npackage-name=foo\npackage-size=1234\n", buf.String())
}

func TestWriteActionOutputsToGithubFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "github_output")
	t.Setenv("GITHUB_OUTPUT", path)

	var buf bytes.Buffer
	res := &build.Result{Path: "foo-1.0.0.mkp", Name: "foo", Size: 7}
	require.NoError(t, writeActionOutputs(&buf, res))

	assert.Empty(t, buf.String(), "nothing goes to stdout when GITHUB_OUTPUT is set")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "package-file=foo-1.0.0.mkp\n")
	assert.Contains(t, string(data), "package-size=7\n")
}
