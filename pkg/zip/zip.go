package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

// Asset is one file to place into an archive.
type Asset struct {
	Filename string
	Path     string
	Modified time.Time
}

// Opener opens the bytes behind an asset path.
type Opener func(path string) (io.ReadCloser, error)

// WriteArchive streams assets into w as a zip archive. Media is already
// compressed, so entries are stored rather than deflated. Duplicate file
// names get a numeric suffix.
func WriteArchive(w io.Writer, assets []Asset, open Opener) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(assets))
	for _, asset := range assets {
		name := asset.Filename
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%d_%s", n, name)
		}
		seen[asset.Filename]++

		hdr := &zip.FileHeader{Name: name, Method: zip.Store}
		if !asset.Modified.IsZero() {
			hdr.Modified = asset.Modified
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", name, err)
		}
		if err := copyAsset(fw, asset.Path, open); err != nil {
			return fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	return zw.Close()
}

func copyAsset(w io.Writer, path string, open Opener) error {
	rc, err := open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = rc.Close()
	}()
	_, err = io.Copy(w, rc)
	return err
}
