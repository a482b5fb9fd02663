package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TarEntry is one file read back out of a tar stream.
type TarEntry struct {
	Content []byte
	Mode    int64
}

// ReadMKP opens an .mkp file and returns its outer members in order,
// alongside a name-indexed view of their contents.
func ReadMKP(t *testing.T, path string) ([]string, map[string][]byte) {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer func() { require.NoError(t, gz.Close()) }()

	var order []string
	members := map[string][]byte{}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		order = append(order, hdr.Name)
		members[hdr.Name] = data
	}
	return order, members
}

// ReadTar decodes an interior (uncompressed) tar and returns its entries
// keyed by name.
func ReadTar(t *testing.T, data []byte) map[string]TarEntry {
	t.Helper()

	entries := map[string]TarEntry{}
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[hdr.Name] = TarEntry{Content: content, Mode: hdr.Mode}
	}
	return entries
}
