package domain

import "strings"

// Image is a raster payload together with its media type.
type Image struct {
	MIME string
	Data []byte
}

// Empty reports whether the image carries no bytes.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// Size returns the payload length in bytes.
func (i Image) Size() int64 {
	return int64(len(i.Data))
}

// Clone returns a deep copy so callers cannot alias store-owned bytes.
func (i Image) Clone() Image {
	if i.Data == nil {
		return Image{MIME: i.MIME}
	}
	return Image{MIME: i.MIME, Data: append([]byte(nil), i.Data...)}
}

// Extension maps the media type onto a file extension including the dot.
func (i Image) Extension() string {
	return ExtensionForMIME(i.MIME)
}

// ExtensionForMIME returns the canonical extension for an image media type,
// falling back to ".png" for unknown types.
func ExtensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
