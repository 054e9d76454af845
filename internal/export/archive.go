// Package export turns completed items into downloadable files.
package export

import (
	"fmt"
	"path"
	"strings"

	"studio/internal/domain"
	"studio/pkg/zip"
)

const (
	ArchiveName   = "tiktok-shop-images.zip"
	ArchiveFolder = "tiktok-shop-optimized"
)

// BaseName strips directories and the final extension from filename.
func BaseName(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" {
		return "image"
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}

// ResultFilename names the n-th (1-based) completed result inside the archive.
func ResultFilename(item domain.Item, n int) string {
	ext := ".png"
	if item.Result != nil {
		ext = item.Result.Extension()
	}
	return fmt.Sprintf("optimized-%s-%d%s", BaseName(item.Filename), n, ext)
}

// DownloadFilename names a single result downloaded on its own.
func DownloadFilename(item domain.Item) string {
	ext := ".png"
	if item.Result != nil {
		ext = item.Result.Extension()
	}
	return "optimized-" + BaseName(item.Filename) + ext
}

// Bundle lists one archive entry per done item, numbered in order.
func Bundle(items []domain.Item) []zip.Asset {
	assets := make([]zip.Asset, 0, len(items))
	for _, it := range items {
		if it.Status != domain.StatusDone || it.Result == nil || it.Result.Empty() {
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: ArchiveFolder + "/" + ResultFilename(it, len(assets)+1),
			MIME:     it.Result.MIME,
			Data:     it.Result.Data,
			Modified: it.UpdatedAt,
		})
	}
	return assets
}

// Archive packages every done item, or returns domain.ErrNoResults.
func Archive(items []domain.Item) ([]byte, error) {
	assets := Bundle(items)
	if len(assets) == 0 {
		return nil, domain.ErrNoResults
	}
	return zip.ArchiveAssets(assets)
}
