package media

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"studio/internal/domain"
)

// Encoded is the transport form of an image: a media type and base64 text.
type Encoded struct {
	MIME string
	Data string
}

// Encode converts img into its text form.
func Encode(img domain.Image) Encoded {
	return Encoded{
		MIME: DetectMIME(img.Data, img.MIME),
		Data: base64.StdEncoding.EncodeToString(img.Data),
	}
}

// Decode is the inverse of Encode. Either the whole payload decodes or an
// error is returned.
func Decode(e Encoded) (domain.Image, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(e.Data))
	if err != nil {
		return domain.Image{}, fmt.Errorf("media: decode base64: %w", err)
	}
	if len(data) == 0 {
		return domain.Image{}, fmt.Errorf("media: decode base64: empty payload")
	}
	return domain.Image{MIME: DetectMIME(data, e.MIME), Data: data}, nil
}

// DetectMIME prefers a declared image/* type and falls back to sniffing.
func DetectMIME(data []byte, declared string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if strings.HasPrefix(declared, "image/") {
		if declared == "image/jpg" {
			return "image/jpeg"
		}
		return declared
	}
	if len(data) > 0 {
		if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}
	return "image/png"
}

// IsImage reports whether the payload or its declared type is an image.
func IsImage(data []byte, declared string) bool {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if strings.HasPrefix(declared, "image/") {
		return true
	}
	if len(data) == 0 {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}
