package prep

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// convertHEICtoPNG converts a HEIC/HEIF file to PNG using the chosen converter.
// converter: "heif-convert" | "magick" | "sips"
//
// With a cacheDir the output is keyed by the source content hash and reused
// across runs; cleanup is then a no-op. Without one the PNG lands in a temp
// dir that cleanup removes.
//
// Returns (outPath, warnings, cleanup, err).
func convertHEICtoPNG(ctx context.Context, r Runner, converter, cacheDir, in string) (string, []string, func(), error) {
	cleanup := func() {}
	var out string

	if cacheDir != "" {
		hash, err := hashContents(in)
		if err != nil {
			return "", nil, cleanup, err
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, cleanup, fmt.Errorf("create artifact cache: %w", err)
		}
		out = filepath.Join(cacheDir, "heic-"+hash+".png")
		if _, err := os.Stat(out); err == nil {
			return out, nil, cleanup, nil
		}
	} else {
		tmpDir, err := os.MkdirTemp("", "ide-heic-*")
		if err != nil {
			return "", nil, cleanup, err
		}
		cleanup = func() { _ = os.RemoveAll(tmpDir) }
		out = filepath.Join(tmpDir, "page.png")
	}

	switch converter {
	case "heif-convert":
		if _, errb, err := r.Run(ctx, "heif-convert", in, out); err != nil {
			return "", []string{string(errb)}, cleanup, fmt.Errorf("heif-convert failed: %w", err)
		}
	case "magick":
		if _, errb, err := r.Run(ctx, "magick", in, out); err != nil {
			return "", []string{string(errb)}, cleanup, fmt.Errorf("magick convert failed: %w", err)
		}
	case "sips":
		if _, errb, err := r.Run(ctx, "sips", "-s", "format", "png", in, "--out", out); err != nil {
			return "", []string{string(errb)}, cleanup, fmt.Errorf("sips convert failed: %w", err)
		}
	default:
		return "", nil, cleanup, fmt.Errorf("HEIC not supported: set prep.Config.HeicConverter to one of: heif-convert | magick | sips")
	}

	if _, statErr := os.Stat(out); statErr != nil {
		return "", nil, cleanup, fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}
	return out, nil, cleanup, nil
}

func hashContents(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
