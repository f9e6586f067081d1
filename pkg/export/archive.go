package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"
)

// ArchiveEntry is one file placed in a ZIP bundle.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// BuildZip packs entries into a single archive. Duplicate names get a numeric
// suffix so no statement overwrites another.
func BuildZip(entries []ArchiveEntry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]int, len(entries))
	modified := time.Now()

	for _, entry := range entries {
		name := uniqueName(entry.Name, seen)
		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func uniqueName(name string, seen map[string]int) string {
	if name == "" {
		name = "file"
	}
	if seen[name] == 0 {
		seen[name] = 1
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := seen[name] + 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", base, n, ext)
		if seen[candidate] == 0 {
			seen[name] = n
			seen[candidate] = 1
			return candidate
		}
	}
}
