// Package archive assembles the MKP container: one uncompressed tar per
// domain, wrapped together with the two metadata renderings in a
// gzip-compressed outer tar. Output is deterministic: identical inputs
// produce byte-identical archives.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oetiker/mkp-builder/pkg/errors"
	"github.com/oetiker/mkp-builder/pkg/layout"
	"github.com/oetiker/mkp-builder/pkg/logging"
	"github.com/oetiker/mkp-builder/pkg/mapping"
)

// Outer archive member names, in their fixed order
const (
	InfoMember     = "info"
	InfoJSONMember = "info.json"
)

// TarMemberName returns the outer member name of a domain's interior tar.
func TarMemberName(d layout.Domain) string {
	return string(d) + ".tar"
}

// Members returns the five outer member names in their required order.
// Every conforming archive contains exactly these, even when a domain
// carries no files.
func Members() []string {
	names := []string{InfoMember, InfoJSONMember}
	for _, d := range layout.Domains() {
		names = append(names, TarMemberName(d))
	}
	return names
}

// Header normalization values. Entry ordering plus fixed header fields is
// what makes rebuilds byte-identical.
var epoch = time.Unix(0, 0)

const (
	regularMode    = 0o644
	executableMode = 0o755
)

// Write builds the complete archive and moves it to
// <outputDir>/<fileName> atomically. On any failure no partial file
// remains at the destination. It returns the final path and size.
func Write(outputDir, fileName string, info, infoJSON []byte, set *mapping.SourceFileSet) (string, int64, error) {
	logger := logging.GetLogger("archive")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", 0, errors.Wrapf(err, errors.ErrFileCreate,
			"cannot create output directory %s", outputDir)
	}

	interiors := make(map[layout.Domain][]byte, len(layout.Domains()))
	for _, d := range layout.Domains() {
		data, err := interiorTar(set.Entries(d))
		if err != nil {
			return "", 0, err
		}
		interiors[d] = data
		logger.Debug().Str("member", TarMemberName(d)).
			Int("files", len(set.Entries(d))).
			Int("bytes", len(data)).
			Msg("Interior tar built")
	}

	tmp, err := os.CreateTemp(outputDir, ".mkp-*")
	if err != nil {
		return "", 0, errors.Wrap(err, errors.ErrFileCreate, "cannot create temporary archive")
	}
	tmpPath := tmp.Name()
	defer func() {
		// Best effort; after a successful rename the path is gone.
		_ = os.Remove(tmpPath)
	}()

	if err := writeOuter(tmp, info, infoJSON, interiors); err != nil {
		_ = tmp.Close()
		return "", 0, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", 0, errors.Wrap(err, errors.ErrFileWrite, "cannot flush archive")
	}
	if err := tmp.Close(); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrFileWrite, "cannot close archive")
	}

	finalPath := filepath.Join(outputDir, fileName)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", 0, errors.Wrapf(err, errors.ErrFileWrite, "cannot move archive to %s", finalPath)
	}

	fi, err := os.Stat(finalPath)
	if err != nil {
		return "", 0, errors.Wrap(err, errors.ErrFileAccess, "cannot stat archive")
	}

	logger.Info().Str("path", finalPath).Int64("size", fi.Size()).Msg("Archive written")
	return finalPath, fi.Size(), nil
}

// writeOuter streams the five members through gzip at maximum compression.
func writeOuter(w io.Writer, info, infoJSON []byte, interiors map[layout.Domain][]byte) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot initialize gzip writer")
	}
	tw := tar.NewWriter(gz)

	members := []struct {
		name string
		data []byte
	}{
		{InfoMember, info},
		{InfoJSONMember, infoJSON},
	}
	for _, d := range layout.Domains() {
		members = append(members, struct {
			name string
			data []byte
		}{TarMemberName(d), interiors[d]})
	}

	for _, m := range members {
		if err := writeMember(tw, m.name, m.data, regularMode); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "cannot finalize outer tar")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "cannot finalize gzip stream")
	}
	return nil
}

// interiorTar packs the mapped entries of one domain. Entries arrive
// sorted by target path; an empty domain still yields a valid empty tar.
func interiorTar(entries []mapping.Entry) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for _, e := range entries {
		content, err := os.ReadFile(e.Source)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", e.Source).
				WithDetail("target", e.Target)
		}
		mode := int64(regularMode)
		if e.Executable {
			mode = executableMode
		}
		if err := writeMember(tw, e.Target, content, mode); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrFileWrite, "cannot finalize interior tar")
	}
	return buf.Bytes(), nil
}

// writeMember emits one normalized tar entry.
func writeMember(tw *tar.Writer, name string, data []byte, mode int64) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    mode,
		Size:    int64(len(data)),
		ModTime: epoch,
		Format:  tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write header for %s", name)
	}
	if _, err := tw.Write(data); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write data for %s", name)
	}
	return nil
}
