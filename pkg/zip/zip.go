package zip

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// ErrDuplicateName is returned when two assets share an archive path.
var ErrDuplicateName = errors.New("zip: duplicate entry name")

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
	Modified time.Time
}

// ArchiveAssets builds an in-memory archive holding one entry per asset.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := Write(buf, assets); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the archive to w. Already-compressed image formats are
// stored as-is; everything else is deflated.
func Write(w io.Writer, assets []Asset) error {
	seen := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		name := entryName(asset.Filename)
		if name == "" {
			return fmt.Errorf("zip: empty entry name")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		seen[name] = struct{}{}
	}

	zw := zip.NewWriter(w)
	for _, asset := range assets {
		header := &zip.FileHeader{
			Name:   entryName(asset.Filename),
			Method: methodFor(asset.MIME),
		}
		if !asset.Modified.IsZero() {
			header.Modified = asset.Modified
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("zip: create %s: %w", header.Name, err)
		}
		if _, err := fw.Write(asset.Data); err != nil {
			_ = zw.Close()
			return fmt.Errorf("zip: write %s: %w", header.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zip: finalize: %w", err)
	}
	return nil
}

func methodFor(mime string) uint16 {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/png", "image/webp", "image/gif":
		return zip.Store
	default:
		return zip.Deflate
	}
}

func entryName(filename string) string {
	return strings.TrimLeft(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"), "/")
}
