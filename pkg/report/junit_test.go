// Test Type: Unit Test
// Description: Tests for the report package - JUnit XML shape for passing
// and failing validation runs

package report_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	"github.com/oetiker/mkp-builder/pkg/errors"
	"github.com/oetiker/mkp-builder/pkg/report"
	"github.com/oetiker/mkp-builder/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJUnitAllPassing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")

	err := report.WriteJUnit(path, []validate.FileResult{
		{Path: "/p/addons/a.py"},
		{Path: "/p/lib/foo.py"},
	})
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(path))

	suite := doc.SelectElement("testsuite")
	require.NotNil(t, suite)
	assert.Equal(t, "2", suite.SelectAttrValue("tests", ""))
	assert.Equal(t, "0", suite.SelectAttrValue("failures", ""))
	assert.Len(t, suite.SelectElements("testcase"), 2)
}

func TestWriteJUnitWithFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")

	verr := errors.Newf(errors.ErrPythonSyntax, "python syntax error in %s", "/p/addons/bad.py")
	err := report.WriteJUnit(path, []validate.FileResult{
		{Path: "/p/addons/good.py"},
		{Path: "/p/addons/bad.py", Err: verr, Line: 7},
	})
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(path))

	suite := doc.SelectElement("testsuite")
	require.NotNil(t, suite)
	assert.Equal(t, "1", suite.SelectAttrValue("failures", ""))

	cases := suite.SelectElements("testcase")
	require.Len(t, cases, 2)
	failure := cases[1].SelectElement("failure")
	require.NotNil(t, failure)
	assert.Contains(t, failure.SelectAttrValue("message", ""), "PYTHON_SYNTAX")
	assert.Equal(t, "7", failure.SelectAttrValue("line", ""))
}

func TestWriteJUnitUnwritablePath(t *testing.T) {
	err := report.WriteJUnit(filepath.Join(t.TempDir(), "missing", "report.xml"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileWrite))
	_, statErr := os.Stat(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, os.IsNotExist(statErr))
}
