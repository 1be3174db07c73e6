package prep

import (
	"context"
	"fmt"
	"os"
)

// enhance runs the fixed image cleanup chain on a single page:
// grayscale -> gaussian denoise -> local adaptive threshold -> deskew.
// The order matters; deskew operates on the binarized image.
func (p *Preprocessor) enhance(ctx context.Context, in, out string) ([]string, error) {
	args := []string{
		in,
		"-colorspace", "Gray",
		"-gaussian-blur", "0x1",
		"-lat", "15x15-4%",
		"-deskew", "40%",
		"+repage",
		out,
	}
	if _, errb, err := p.runner.Run(ctx, p.cfg.Magick, args...); err != nil {
		return []string{string(errb)}, fmt.Errorf("magick enhance: %w", err)
	}
	if _, statErr := os.Stat(out); statErr != nil {
		return nil, fmt.Errorf("enhance produced no output: %v", statErr)
	}
	return nil, nil
}
