package heatmap

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoScreenshot = errors.New("no reference screenshot for document")

// ScreenshotSource provides the reference screenshot of a document. Capturing
// screenshots happens elsewhere.
type ScreenshotSource interface {
	Screenshot(documentID string) (image.Image, error)
}

// DirScreenshots reads <Dir>/<documentID>.png (or .jpg).
type DirScreenshots struct {
	Dir string
}

func (d DirScreenshots) Screenshot(documentID string) (image.Image, error) {
	if d.Dir == "" {
		return nil, ErrNoScreenshot
	}
	if documentID == "" || strings.ContainsAny(documentID, `/\`) || strings.Contains(documentID, "..") {
		return nil, fmt.Errorf("invalid document id %q", documentID)
	}

	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		f, err := os.Open(filepath.Join(d.Dir, documentID+ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open screenshot: %w", err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode screenshot: %w", err)
		}
		return img, nil
	}
	return nil, ErrNoScreenshot
}
