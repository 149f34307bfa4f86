// Package imageenc loads image files for attachment to a generation request.
package imageenc

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fakeyudi/codeweave/internal/provider"
)

// MaxSize is the largest image Encode accepts.
const MaxSize = 5 << 20

// ErrNotImage is wrapped when the file content is not an image.
var ErrNotImage = errors.New("not an image")

// Encode reads path, detects its media type from the content and returns it
// base64 encoded. Every error is prefixed with "failed to load image".
func Encode(path string) (provider.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return provider.Image{}, fmt.Errorf("failed to load image: %w", err)
	}
	if len(data) > MaxSize {
		return provider.Image{}, fmt.Errorf("failed to load image: %s is %d bytes, limit is %d", path, len(data), MaxSize)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return provider.Image{}, fmt.Errorf("failed to load image: %s is %s: %w", path, mt.String(), ErrNotImage)
	}
	return provider.Image{
		Data:      base64.StdEncoding.EncodeToString(data),
		MediaType: mediaType(mt),
	}, nil
}

// mediaType strips parameters such as "; charset=utf-8".
func mediaType(mt *mimetype.MIME) string {
	s, _, _ := strings.Cut(mt.String(), ";")
	return s
}

// Encoder adapts Encode to the session's image encoder interface.
type Encoder struct{}

func (Encoder) Encode(path string) (provider.Image, error) { return Encode(path) }
