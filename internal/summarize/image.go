package summarize

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/MrSnakeDoc/mindmark/internal/model"
	"github.com/MrSnakeDoc/mindmark/internal/utils"
)

const (
	jpegQuality = 85

	// maxImageBytes caps a screenshot fetched over http(s).
	maxImageBytes = 32 << 20
)

// loadImage resolves a data URI or http(s) URL into raw bytes.
func (s *Summarizer) loadImage(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("%w: screenshot has no image", model.ErrOperation)
	}

	if strings.HasPrefix(src, "data:") {
		return decodeDataURI(src)
	}

	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: unsupported image source", model.ErrOperation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOperation, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch image: %v", model.ErrOperation, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch image: status %d", model.ErrOperation, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %v", model.ErrOperation, err)
	}
	return data, nil
}

func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URI", model.ErrOperation)
	}
	if !strings.HasSuffix(meta, ";base64") {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed data URI: %v", model.ErrOperation, err)
		}
		return []byte(unescaped), nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some producers drop the padding.
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return nil, fmt.Errorf("%w: invalid base64 image: %v", model.ErrOperation, err)
		}
	}
	return data, nil
}

// prepareImage decodes raw and scales it to fit within maxDim. Images that
// are already small enough and in a format the model accepts are passed
// through untouched; everything else is re-encoded as JPEG.
func prepareImage(raw []byte, maxDim int) (model.Image, error) {
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return model.Image{}, fmt.Errorf("%w: decode screenshot: %v", model.ErrOperation, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	fits := maxDim <= 0 || (w <= maxDim && h <= maxDim)

	if fits && (format == "png" || format == "jpeg") {
		return model.Image{MIME: "image/" + format, Data: raw}, nil
	}

	if !fits {
		scale := float64(maxDim) / float64(max(w, h))
		w = max(int(float64(w)*scale), 1)
		h = max(int(float64(h)*scale), 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return model.Image{}, fmt.Errorf("%w: encode screenshot: %v", model.ErrOperation, err)
	}
	return model.Image{MIME: "image/jpeg", Data: buf.Bytes()}, nil
}
