// Package zip bundles library images for batch downloads.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
)

type Asset struct {
	Filename string
	Data     []byte
}

// ArchiveAssets packs the assets into a flat zip. Duplicate filenames get a
// numeric suffix so none are silently dropped.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	used := map[string]struct{}{}
	for _, asset := range assets {
		name := path.Base(asset.Filename)
		if name == "" || name == "." || name == "/" {
			continue
		}
		if _, taken := used[name]; taken {
			ext := path.Ext(name)
			stem := name[:len(name)-len(ext)]
			for n := 1; ; n++ {
				candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
				if _, taken := used[candidate]; !taken {
					name = candidate
					break
				}
			}
		}
		used[name] = struct{}{}

		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("zip: create entry %s: %w", name, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("zip: write entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close archive: %w", err)
	}
	return buf.Bytes(), nil
}
