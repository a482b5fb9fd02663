// Test Type: Integration Test
// Description: End-to-end pipeline tests covering packaging scenarios,
// determinism, and no-output-on-failure guarantees

package build_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/oetiker/mkp-builder/pkg/build"
	"github.com/oetiker/mkp-builder/pkg/config"
	"github.com/oetiker/mkp-builder/pkg/errors"
	"github.com/oetiker/mkp-builder/pkg/testutil"
	"github.com/oetiker/mkp-builder/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// okChecker approves every file without consulting an interpreter.
type okChecker struct{}

func (okChecker) Check(context.Context, string) error { return nil }

// failChecker rejects a single path.
type failChecker struct{ bad string }

func (f failChecker) Check(_ context.Context, path string) error {
	if path == f.bad {
		return errors.Newf(errors.ErrPythonSyntax, "python syntax error in %s", path).
			WithDetail("file", path).WithDetail("line", 2)
	}
	return nil
}

func TestBuildAgentOnlyPackage(t *testing.T) {
	p := testutil.NewProject(t)
	p.WriteExecutable("local/share/check_mk/agents/plugins/foo", "#!/bin/sh\necho hi\n")

	res, err := build.Run(context.Background(), build.Options{
		WorkDir: p.Root,
		Overrides: config.Overrides{
			Name:    strPtr("foo"),
			Version: strPtr("1.0.0"),
		},
		Checker: okChecker{},
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(p.Root, "foo-1.0.0.mkp"), res.Path)
	assert.Equal(t, "foo", res.Name)
	assert.Equal(t, []string{"plugins/foo"}, res.Files.Agents)
	assert.Equal(t, 1, res.FileCount())

	order, members := testutil.ReadMKP(t, res.Path)
	assert.Equal(t, []string{"info", "info.json", "agents.tar", "cmk_addons_plugins.tar", "lib.tar"}, order)

	agents := testutil.ReadTar(t, members["agents.tar"])
	require.Contains(t, agents, "plugins/foo")
	assert.Equal(t, int64(0o755), agents["plugins/foo"].Mode)
	assert.Empty(t, testutil.ReadTar(t, members["cmk_addons_plugins.tar"]))
	assert.Empty(t, testutil.ReadTar(t, members["lib.tar"]))

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(members["info.json"], &info))
	files := info["files"].(map[string]interface{})
	assert.Equal(t, []interface{}{"plugins/foo"}, files["agents"])
}

func TestBuildExcludesBytecodeCache(t *testing.T) {
	p := testutil.NewProject(t)
	p.WriteFile("local/lib/python3/cmk_addons/plugins/foo/agent_based/foo.py", "x = 1\n")
	p.WriteFile("local/lib/python3/cmk_addons/plugins/foo/agent_based/__pycache__/foo.cpython-312.pyc", "\x00\x01")

	res, err := build.Run(context.Background(), build.Options{
		WorkDir: p.Root,
		Overrides: config.Overrides{
			Name:    strPtr("foo"),
			Version: strPtr("1.0.0"),
		},
		Checker: okChecker{},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"foo/agent_based/foo.py"}, res.Files.Addons)

	_, members := testutil.ReadMKP(t, res.Path)
	addons := testutil.ReadTar(t, members["cmk_addons_plugins.tar"])
	assert.Len(t, addons, 1)
	assert.Contains(t, addons, "foo/agent_based/foo.py")
}

func TestBuildMultilineDescription(t *testing.T) {
	p := testutil.NewProject(t)
	p.WriteConfig(`[package]
name = foo
description = Monitors the frobnicator
    including its sub-frobnicators
    and the reticulation unit
`)
	p.WriteFile("local/share/check_mk/agents/plugins/foo", "#!/bin/sh\n")

	res, err := build.Run(context.Background(), build.Options{
		WorkDir:   p.Root,
		Overrides: config.Overrides{Version: strPtr("1.0.0")},
		Checker:   okChecker{},
	})
	require.NoError(t, err)

	_, members := testutil.ReadMKP(t, res.Path)

	want := "Monitors the frobnicator\nincluding its sub-frobnicators\nand the reticulation unit"

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(members["info.json"], &info))
	assert.Equal(t, want, info["description"], "info.json keeps embedded newlines")

	assert.Contains(t, string(members["info"]),
		`'description': 'Monitors the frobnicator\nincluding its sub-frobnicators\nand the reticulation unit'`,
		"info keeps embedded newlines in escaped form")
}

func TestBuildDeterminism(t *testing.T) {
	p := testutil.NewProject(t)
	p.WriteExecutable("local/share/check_mk/agents/plugins/foo", "#!/bin/sh\n")
	p.WriteFile("local/lib/python3/cmk_addons/plugins/foo/graphing/foo.py", "x = 1\n")
	p.WriteFile("local/lib/python3/cmk/base/cee/plugins/bakery/foo.py", "y = 2\n")

	opts := func(outDir string) build.Options {
		return build.Options{
			WorkDir: p.Root,
			Overrides: config.Overrides{
				Name:      strPtr("foo"),
				Version:   strPtr("1.0.0"),
				OutputDir: strPtr(outDir),
			},
			Checker: okChecker{},
		}
	}

	res1, err := build.Run(context.Background(), opts(t.TempDir()))
	require.NoError(t, err)
	res2, err := build.Run(context.Background(), opts(t.TempDir()))
	require.NoError(t, err)

	data1, err := os.ReadFile(res1.Path)
	require.NoError(t, err)
	data2, err := os.ReadFile(res2.Path)
	require.NoError(t, err)
	assert.Equal(t, data1, data2, "rebuilds are byte-identical")
}

func TestBuildMetadataMatchesArchiveExactly(t *testing.T) {
	p := testutil.NewProject(t)
	p.WriteExecutable("local/share/check_mk/agents/plugins/foo", "#!/bin/sh\n")
	p.WriteFile("local/share/check_mk/agents/plugins/conf/foo.cfg", "x\n")
	p.WriteFile("local/lib/python3/cmk_addons/plugins/foo/rulesets/foo.py", "x = 1\n")
	p.WriteFile("local/lib/python3/cmk/base/cee/plugins/bakery/foo.py", "y = 2\n")

	res, err := build.Run(context.Background(), build.Options{
		WorkDir: p.Root,
		Overrides: config.Overrides{
			Name:    strPtr("foo"),
			Version: strPtr("1.0.0"),
		},
		Checker: okChecker{},
	})
	require.NoError(t, err)

	_, members := testutil.ReadMKP(t, res.Path)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(members["info.json"], &info))
	files := info["files"].(map[string]interface{})

	for domain, member := range map[string]string{
		"agents":             "agents.tar",
		"cmk_addons_plugins": "cmk_addons_plugins.tar",
		"lib":                "lib.tar",
	} {
		listed := files[domain].([]interface{})
		packed := testutil.ReadTar(t, members[member])
		assert.Len(t, packed, len(listed), "%s listing and archive agree in size", domain)
		for _, target := range listed {
			assert.Contains(t, packed, target.(string),
				"%s listing entry %v present in archive", domain, target)
		}
	}
}

func TestBuildConflictWritesNoOutput(t *testing.T) {
	p := testutil.NewProject(t)
	p.WriteFile("local/lib/python3/cmk/base/cee/plugins/bakery/foo.py", "x = 1\n")
	p.WriteFile("local/lib/check_mk/base/cee/plugins/bakery/foo.py", "x = 1\n")

	_, err := build.Run(context.Background(), build.Options{
		WorkDir: p.Root,
		Overrides: config.Overrides{
			Name:    strPtr("foo"),
			Version: strPtr("1.0.0"),
		},
		Checker: okChecker{},
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSourceConflict))

	assert.NoFileExists(t, filepath.Join(p.Root, "foo-1.0.0.mkp"))
}

func TestBuildSyntaxErrorWritesNoOutput(t *testing.T) {
	p := testutil.NewProject(t)
	bad := p.WriteFile("local/lib/python3/cmk_addons/plugins/foo/agent_based/foo.py", "def broken(:\n")

	_, err := build.Run(context.Background(), build.Options{
		WorkDir: p.Root,
		Overrides: config.Overrides{
			Name:    strPtr("foo"),
			Version: strPtr("1.0.0"),
		},
		Checker: failChecker{bad: bad},
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPythonSyntax))

	entries, readErr := os.ReadDir(p.Root)
	require.NoError(t, readErr)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".mkp", "no partial output remains")
	}
}

func TestBuildValidationDisabledSkipsChecker(t *testing.T) {
	p := testutil.NewProject(t)
	bad := p.WriteFile("local/lib/python3/cmk_addons/plugins/foo/agent_based/foo.py", "def broken(:\n")

	res, err := build.Run(context.Background(), build.Options{
		WorkDir: p.Root,
		Overrides: config.Overrides{
			Name:           strPtr("foo"),
			Version:        strPtr("1.0.0"),
			ValidatePython: boolPtr(false),
		},
		Checker: failChecker{bad: bad},
	})
	require.NoError(t, err, "disabled validation never invokes the checker")
	assert.FileExists(t, res.Path)
}

func TestBuildAddonsFlatLayoutPolicy(t *testing.T) {
	p := testutil.NewProject(t)
	p.WriteFile("local/lib/python3/cmk_addons/plugins/foo/agent_based/foo.py", "x = 1\n")

	res, err := build.Run(context.Background(), build.Options{
		WorkDir: p.Root,
		Overrides: config.Overrides{
			Name:             strPtr("foo"),
			Version:          strPtr("1.0.0"),
			AddonsFlatLayout: boolPtr(true),
		},
		Checker: okChecker{},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"agent_based/foo.py", "foo/agent_based/foo.py"}, res.Files.Addons)
}

func TestBuildWritesJUnitReport(t *testing.T) {
	p := testutil.NewProject(t)
	p.WriteFile("local/lib/python3/cmk_addons/plugins/foo/agent_based/foo.py", "x = 1\n")
	reportPath := filepath.Join(t.TempDir(), "validation.xml")

	_, err := build.Run(context.Background(), build.Options{
		WorkDir: p.Root,
		Overrides: config.Overrides{
			Name:    strPtr("foo"),
			Version: strPtr("1.0.0"),
		},
		Checker:     okChecker{},
		JUnitReport: reportPath,
	})
	require.NoError(t, err)
	assert.FileExists(t, reportPath)
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{2048, "2K"},
		{5 * 1024 * 1024, "5M"},
		{3 * 1024 * 1024 * 1024, "3G"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, build.HumanSize(tt.in))
	}
}

var _ validate.Checker = okChecker{}
