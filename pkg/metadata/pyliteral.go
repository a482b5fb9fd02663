package metadata

import (
	"fmt"
	"strings"
)

// RenderInfo produces the classic "info" member: the same record as a
// Python dict literal, sorted keys, one key per line. The output parses
// with ast.literal_eval.
func (m *PackageMetadata) RenderInfo() []byte {
	var b strings.Builder

	b.WriteString("{")
	writeKey(&b, "author", pyStr(m.Author), true)
	writeKey(&b, "description", pyStr(m.Description), false)
	writeKey(&b, "download_url", pyStr(m.DownloadURL), false)

	b.WriteString(" 'files': {'agents': " + pyList(m.Files.Agents) + ",\n")
	b.WriteString("           'cmk_addons_plugins': " + pyList(m.Files.Addons) + ",\n")
	b.WriteString("           'lib': " + pyList(m.Files.Lib) + "},\n")

	writeKey(&b, "name", pyStr(m.Name), false)
	writeKey(&b, "title", pyStr(m.Title), false)
	writeKey(&b, "version", pyStr(m.Version), false)
	writeKey(&b, "version.min_required", pyStr(m.VersionMinRequired), false)
	writeKey(&b, "version.packaged", pyStr(m.VersionPackaged), false)

	usable := "None"
	if m.VersionUsableUntil != nil {
		usable = pyStr(*m.VersionUsableUntil)
	}
	b.WriteString(" 'version.usable_until': " + usable + "}\n")

	return []byte(b.String())
}

// writeKey emits one "'key': value,\n" line; the first line omits the
// leading alignment space since it follows the opening brace.
func writeKey(b *strings.Builder, key, value string, first bool) {
	if !first {
		b.WriteString(" ")
	}
	b.WriteString(pyStr(key))
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString(",\n")
}

// pyList renders a list of strings as a Python list literal.
func pyList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = pyStr(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// pyStr renders a string as a single-quoted Python literal. Embedded
// newlines are escaped, so multi-line descriptions survive a round trip.
func pyStr(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(fmt.Sprintf(`\x%02x`, r))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}
