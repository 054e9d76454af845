package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"studio/internal/domain"
)

func doneItem(filename, mime, payload string) domain.Item {
	return domain.Item{
		Filename:  filename,
		Status:    domain.StatusDone,
		Result:    &domain.Image{MIME: mime, Data: []byte(payload)},
		UpdatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"lipstick.png":       "lipstick",
		"photo.final.jpeg":   "photo.final",
		".hidden":            ".hidden",
		"noext":              "noext",
		"dir/sub/shoe.webp":  "shoe",
		`C:\\Users\\bag.jpg`: "bag",
		"":                   "image",
	}
	for in, want := range cases {
		if got := BaseName(in); got != want {
			t.Fatalf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBundleNamesAreUnique(t *testing.T) {
	items := []domain.Item{
		doneItem("same.png", "image/png", "one"),
		{Filename: "pending.png", Status: domain.StatusIdle},
		doneItem("same.png", "image/jpeg", "two"),
		{Filename: "broken.png", Status: domain.StatusError, Error: "boom"},
		doneItem("other.webp", "image/webp", "three"),
	}
	assets := Bundle(items)
	want := []string{
		"tiktok-shop-optimized/optimized-same-1.png",
		"tiktok-shop-optimized/optimized-same-2.jpg",
		"tiktok-shop-optimized/optimized-other-3.webp",
	}
	if len(assets) != len(want) {
		t.Fatalf("expected %d assets, got %d", len(want), len(assets))
	}
	for i, a := range assets {
		if a.Filename != want[i] {
			t.Fatalf("asset %d: got %s want %s", i, a.Filename, want[i])
		}
	}
}

func TestArchiveContainsOnlyDoneResults(t *testing.T) {
	data, err := Archive([]domain.Item{
		doneItem("a.png", "image/png", "alpha"),
		{Filename: "b.png", Status: domain.StatusProcessing},
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "tiktok-shop-optimized/optimized-a-1.png" {
		t.Fatalf("unexpected entries %+v", zr.File)
	}
}

func TestArchiveWithoutResults(t *testing.T) {
	if _, err := Archive([]domain.Item{{Status: domain.StatusIdle}}); !errors.Is(err, domain.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestDownloadFilename(t *testing.T) {
	if got := DownloadFilename(doneItem("mug.PNG", "image/jpeg", "x")); got != "optimized-mug.jpg" {
		t.Fatalf("unexpected name %s", got)
	}
}
