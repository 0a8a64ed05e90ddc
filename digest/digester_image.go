package digest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/png"

	"github.com/gen2brain/heic"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/config"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/vendors"
)

const (
	thumbnailMaxWidth = 400
	thumbnailQuality  = 80
)

// ImagePreviewDigester renders a local JPEG thumbnail for images. Unlike the
// other phase-1 digesters it needs no external service.
type ImagePreviewDigester struct{}

func (d *ImagePreviewDigester) Name() string        { return "image-preview" }
func (d *ImagePreviewDigester) Label() string       { return "Image Preview" }
func (d *ImagePreviewDigester) Description() string { return "Generate a thumbnail for images" }
func (d *ImagePreviewDigester) OutputNames() []string {
	return []string{"image-preview"}
}

func (d *ImagePreviewDigester) CanDigest(_ context.Context, file *db.FileRecord, _ []db.Digest) (bool, error) {
	return !file.IsFolder && isImage(file), nil
}

func (d *ImagePreviewDigester) Digest(_ context.Context, file *db.FileRecord, _ []db.Digest) ([]Output, error) {
	thumbnail, err := generateImageThumbnail(file.Path, mimeType(file))
	if err != nil {
		return nil, err
	}

	blobName := "thumbnail.jpg"
	return []Output{{
		Name:         "image-preview",
		Status:       db.DigestStatusCompleted,
		BlobName:     &blobName,
		BlobData:     thumbnail,
		IsScreenshot: true,
	}}, nil
}

// generateImageThumbnail decodes an image file, resizes it to
// thumbnailMaxWidth, and encodes the result as JPEG.
func generateImageThumbnail(filePath, mime string) ([]byte, error) {
	fullPath := filepath.Join(config.Get().GetDataRoot(), filePath)

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	var img image.Image

	// HEIC/HEIF needs a dedicated decoder (not registered with image.Decode)
	if mime == "image/heic" || mime == "image/heif" {
		img, err = heic.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode heic: %w", err)
		}
	} else {
		// JPEG, PNG, GIF, WebP and anything else with a registered decoder.
		// GIF decodes to the first frame automatically via image.Decode.
		img, _, err = image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode image (%s): %w", mime, err)
		}
	}

	thumb := resizeToMaxWidth(img, thumbnailMaxWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}

// resizeToMaxWidth scales an image so its width is at most maxWidth pixels,
// preserving aspect ratio. Smaller images are returned as-is.
func resizeToMaxWidth(src image.Image, maxWidth int) image.Image {
	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	if srcW <= maxWidth {
		return src
	}

	newW := maxWidth
	newH := srcH * maxWidth / srcW

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

// ImageOCRDigester extracts text from images
type ImageOCRDigester struct{}

func (d *ImageOCRDigester) Name() string        { return "image-ocr" }
func (d *ImageOCRDigester) Label() string       { return "Image OCR" }
func (d *ImageOCRDigester) Description() string { return "Extract text from images using OCR" }
func (d *ImageOCRDigester) OutputNames() []string {
	return []string{"image-ocr"}
}

func (d *ImageOCRDigester) CanDigest(_ context.Context, file *db.FileRecord, _ []db.Digest) (bool, error) {
	return !file.IsFolder && isImage(file), nil
}

func (d *ImageOCRDigester) Digest(ctx context.Context, file *db.FileRecord, _ []db.Digest) ([]Output, error) {
	haid := vendors.GetHAIDClient()
	text, err := haid.ImageOCR(ctx, file.Path)
	if err != nil {
		return nil, err
	}

	return []Output{completedOutput("image-ocr", text)}, nil
}
