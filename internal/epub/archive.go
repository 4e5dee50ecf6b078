// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// MimeType is the exact content of the leading mimetype entry.
const MimeType = "application/epub+zip"

// Entry is one file inside the container archive.
type Entry struct {
	Name string
	Data []byte

	// Store writes the entry uncompressed.
	Store bool
}

// WriteArchive writes entries to dest as a zip container. A stored mimetype
// entry is always written first; any mimetype entry in entries is ignored.
// The archive is built in a temporary file next to dest and renamed into
// place only after it is complete, so dest is never left half written.
func WriteArchive(ctx context.Context, fs afero.Fs, dest string, entries []Entry) (int64, error) {
	dir := filepath.Dir(dest)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return 0, types.ResourceWriteError("creating "+dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return 0, types.ResourceWriteError("creating temp file", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			fs.Remove(tmpName)
		}
	}()

	zw := zip.NewWriter(tmp)
	all := append([]Entry{{Name: "mimetype", Data: []byte(MimeType), Store: true}}, entries...)
	for i, e := range all {
		if i > 0 && e.Name == "mimetype" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		method := zip.Deflate
		if e.Store {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: method})
		if err != nil {
			return 0, types.ResourceWriteError("adding "+e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return 0, types.ResourceWriteError("writing "+e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, types.ResourceWriteError("finishing archive", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, types.ResourceWriteError("closing temp file", err)
	}

	if err := fs.Rename(tmpName, dest); err != nil {
		return 0, types.ResourceWriteError(fmt.Sprintf("renaming to %s", dest), err)
	}
	committed = true

	info, err := fs.Stat(dest)
	if err != nil {
		return 0, types.ResourceWriteError("stat "+dest, err)
	}
	return info.Size(), nil
}

// ReadArchive returns every entry of the container at path, in archive order.
func ReadArchive(fs afero.Fs, path string) ([]Entry, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	var out []Entry
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		out = append(out, Entry{Name: f.Name, Data: body, Store: f.Method == zip.Store})
	}
	return out, nil
}
