package validate

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/oetiker/mkp-builder/pkg/archive"
	"github.com/oetiker/mkp-builder/pkg/errors"
	"github.com/oetiker/mkp-builder/pkg/logging"
)

// PostBuild reopens a written archive and verifies it structurally: the
// outer tar contains exactly the five expected members in order, and each
// interior tar is independently readable to the end. Any mismatch is an
// internal invariant violation, not a user error.
func PostBuild(path string) error {
	logger := logging.GetLogger("validate")

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot reopen archive %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, errors.ErrArchiveIntegrity,
			"archive %s is not a gzip stream", path)
	}
	defer func() { _ = gz.Close() }()

	var names []string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, errors.ErrArchiveIntegrity,
				"cannot read outer tar of %s", path)
		}
		names = append(names, hdr.Name)

		if strings.HasSuffix(hdr.Name, ".tar") {
			data, err := io.ReadAll(tr)
			if err != nil {
				return errors.Wrapf(err, errors.ErrArchiveIntegrity,
					"cannot read member %s", hdr.Name)
			}
			if err := readInterior(data); err != nil {
				return errors.Wrapf(err, errors.ErrArchiveIntegrity,
					"interior tar %s is not readable", hdr.Name)
			}
		}
	}

	expected := archive.Members()
	if !equalNames(names, expected) {
		return errors.Newf(errors.ErrArchiveIntegrity,
			"archive members %v do not match expected %v", names, expected).
			WithDetail("path", path)
	}

	logger.Debug().Str("path", path).Msg("Archive structure verified")
	return nil
}

// readInterior iterates an interior tar to EOF to prove it is well-formed.
func readInterior(data []byte) error {
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		_, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			return err
		}
	}
}

func equalNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
