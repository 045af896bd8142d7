package capture

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"chimbori.dev/scrollshot/core"
	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
)

// Artifact describes one persisted screenshot chunk.
type Artifact struct {
	Index       int    `json:"index"`
	Path        string `json:"path"`
	Size        int    `json:"size"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	PHash       string `json:"phash,omitempty"`
	PreviewPath string `json:"previewPath,omitempty"`
}

// ArtifactWriter persists screenshot chunks as <dir>/<name>/<name>_<index>.png.
type ArtifactWriter struct {
	Dir          string
	Name         string
	Previews     bool
	PreviewWidth int
	Compress     bool
	Logger       *slog.Logger
}

// ChunkPath returns the PNG path for the chunk at index.
func (w ArtifactWriter) ChunkPath(index int) string {
	return filepath.Join(w.Dir, w.Name, fmt.Sprintf("%s_%d.png", w.Name, index))
}

// PreviewPath returns the WebP preview path for the chunk at index.
func (w ArtifactWriter) PreviewPath(index int) string {
	return filepath.Join(w.Dir, w.Name, fmt.Sprintf("%s_%d.webp", w.Name, index))
}

// Write stores png as chunk index, overwriting any earlier file. Only a failure to write the PNG itself
// is returned; dimension, hash & preview failures are logged and leave those fields empty.
func (w ArtifactWriter) Write(index int, png []byte) (Artifact, error) {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if w.Compress {
		if compressed, err := core.CompressPNG(png); err != nil {
			logger.Warn("PNG compression failed", tint.Err(err), "index", index)
		} else if len(compressed) < len(png) {
			png = compressed
		}
	}

	path := w.ChunkPath(index)
	if err := core.WriteFile(path, png); err != nil {
		return Artifact{}, fmt.Errorf("%w: %s: %w", ErrScreenshotIO, path, err)
	}
	artifact := Artifact{Index: index, Path: path, Size: len(png)}

	img, err := core.DecodeImage(png)
	if err != nil {
		logger.Warn("failed to decode screenshot", tint.Err(err), "path", path)
		return artifact, nil
	}
	artifact.Width = img.Bounds().Dx()
	artifact.Height = img.Bounds().Dy()

	if hash, err := core.PerceptualHash(img); err != nil {
		logger.Warn("failed to hash screenshot", tint.Err(err), "path", path)
	} else {
		artifact.PHash = hash
	}

	if w.Previews {
		previewPath := w.PreviewPath(index)
		if webp, err := core.EncodeWebPPreview(img, w.PreviewWidth); err != nil {
			logger.Warn("failed to encode preview", tint.Err(err), "path", path)
		} else if err := core.WriteFile(previewPath, webp); err != nil {
			logger.Warn("failed to write preview", tint.Err(err), "path", previewPath)
		} else {
			artifact.PreviewPath = previewPath
		}
	}

	logger.Debug("screenshot saved",
		"path", path,
		"size", humanize.Bytes(uint64(len(png))),
		"width", artifact.Width,
		"height", artifact.Height)
	return artifact, nil
}
