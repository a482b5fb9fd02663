// Package report renders validation results for CI consumption.
package report

import (
	"strconv"

	"github.com/beevik/etree"

	"github.com/oetiker/mkp-builder/pkg/errors"
	"github.com/oetiker/mkp-builder/pkg/logging"
	"github.com/oetiker/mkp-builder/pkg/validate"
)

// suiteName labels the testsuite in CI result views
const suiteName = "python-syntax"

// WriteJUnit writes the pre-build validation results as a JUnit XML file,
// one testcase per checked source file.
func WriteJUnit(path string, results []validate.FileResult) error {
	logger := logging.GetLogger("report")

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suite := doc.CreateElement("testsuite")
	suite.CreateAttr("name", suiteName)
	suite.CreateAttr("tests", strconv.Itoa(len(results)))

	failures := 0
	for _, r := range results {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("classname", suiteName)
		tc.CreateAttr("name", r.Path)
		if r.Err == nil {
			continue
		}
		failures++
		failure := tc.CreateElement("failure")
		failure.CreateAttr("message", r.Err.Error())
		if r.Line > 0 {
			failure.CreateAttr("line", strconv.Itoa(r.Line))
		}
	}
	suite.CreateAttr("failures", strconv.Itoa(failures))

	doc.Indent(2)
	if err := doc.WriteToFile(path); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write report %s", path)
	}

	logger.Info().Str("path", path).Int("tests", len(results)).Int("failures", failures).
		Msg("Validation report written")
	return nil
}
