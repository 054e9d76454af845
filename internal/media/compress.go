package media

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"studio/internal/domain"
)

const (
	DefaultThreshold    int64 = 1 << 20
	DefaultMaxDimension       = 1536
	DefaultQuality            = 80
)

// Compressor bounds the payload submitted to the optimization capability.
type Compressor struct {
	Threshold    int64
	MaxDimension int
	Quality      int
	Logger       zerolog.Logger
}

// NewCompressor applies defaults to non-positive settings.
func NewCompressor(threshold int64, maxDimension, quality int, logger zerolog.Logger) *Compressor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Compressor{Threshold: threshold, MaxDimension: maxDimension, Quality: quality, Logger: logger}
}

// Compress downsizes img with the configured dimension and quality.
func (c *Compressor) Compress(ctx context.Context, img domain.Image) (domain.Image, error) {
	return c.CompressWith(ctx, img, c.MaxDimension, c.Quality)
}

// CompressWith returns img untouched when it is below the threshold.
// Otherwise it decodes, shrinks the longer side to maxDimension and
// re-encodes as JPEG at quality.
func (c *Compressor) CompressWith(ctx context.Context, img domain.Image, maxDimension, quality int) (domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return domain.Image{}, err
	}
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if img.Size() < threshold {
		return img, nil
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return domain.Image{}, fmt.Errorf("compress: decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Image{}, err
	}

	b := decoded.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxDimension)
	var out image.Image = decoded
	if w != b.Dx() || h != b.Dy() {
		out = imaging.Resize(decoded, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return domain.Image{}, fmt.Errorf("compress: encode jpeg: %w", err)
	}

	c.Logger.Debug().
		Str("from", humanize.IBytes(uint64(img.Size()))).
		Str("to", humanize.IBytes(uint64(buf.Len()))).
		Int("width", w).
		Int("height", h).
		Msg("media: compressed image")

	return domain.Image{MIME: "image/jpeg", Data: buf.Bytes()}, nil
}

// FitWithin scales w x h so the longer side is at most max, keeping the
// aspect ratio. It never upscales.
func FitWithin(w, h, max int) (int, int) {
	if w <= 0 || h <= 0 || max <= 0 {
		return w, h
	}
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		nh := int(float64(h)*float64(max)/float64(w) + 0.5)
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := int(float64(w)*float64(max)/float64(h) + 0.5)
	if nw < 1 {
		nw = 1
	}
	return nw, max
}
