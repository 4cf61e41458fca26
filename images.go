package parango

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/parangodev/parango/content"
	"github.com/parangodev/parango/markdown"
)

// ImagePrefix is the URL prefix optimized entry images are served under.
const ImagePrefix = "/_images"

const (
	maxImageWidth = 1200
	jpegQuality   = 80
)

func (a *App) imagesDir() string {
	return filepath.Join(a.Config.DataDir, "images")
}

// processImage decodes an image from src, shrinks it to maxImageWidth when
// wider, and encodes it as JPEG.
func processImage(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// optimizeImages writes an optimized copy of every relative image the
// entries reference, skipping copies newer than their source. Formats the
// decoder cannot read are copied as is. Failures are
// logged and leave the image missing. It returns the number of images
// written.
func (a *App) optimizeImages(entries []content.Entry) int {
	written := 0
	for _, e := range entries {
		base := path.Join(ImagePrefix, string(e.Collection), e.Slug)
		for _, rel := range e.Images {
			src := filepath.Join(filepath.Dir(e.SourcePath), filepath.FromSlash(rel))
			urlPath := markdown.OptimizedPath(base, rel)
			dst := filepath.Join(a.imagesDir(), filepath.FromSlash(urlPath[len(ImagePrefix):]))

			convert := optimizeImage
			if !markdown.Optimizable(rel) {
				convert = copyImage
			}
			ok, err := convert(src, dst)
			if err != nil {
				a.Echo.Logger.Warnf("image %s (%s): %v", rel, e.SourcePath, err)
				continue
			}
			if ok {
				written++
			}
		}
	}
	return written
}

// upToDate reports whether dst exists and is not older than src.
func upToDate(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	dstInfo, err := os.Stat(dst)
	return err == nil && !dstInfo.ModTime().Before(srcInfo.ModTime()), nil
}

// optimizeImage converts src into dst. It reports false without error when
// dst is already up to date.
func optimizeImage(src, dst string) (bool, error) {
	if fresh, err := upToDate(src, dst); err != nil || fresh {
		return false, err
	}

	f, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer f.Close()

	data, err := processImage(f)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, fmt.Errorf("create images dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return false, fmt.Errorf("write image: %w", err)
	}
	return true, nil
}

func copyImage(src, dst string) (bool, error) {
	if fresh, err := upToDate(src, dst); err != nil || fresh {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, fmt.Errorf("create images dir: %w", err)
	}
	if err := copyFile(src, dst); err != nil {
		return false, fmt.Errorf("copy image: %w", err)
	}
	return true, nil
}
