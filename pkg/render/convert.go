package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/matzehuels/kinetic/pkg/errors"
)

// rsvgBinary is the converter used for raster and PDF output.
var rsvgBinary = "rsvg-convert"

// ToPDF converts an SVG diagram to PDF.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return convertSVG(ctx, svg, "pdf")
}

// ToPNG converts an SVG diagram to PNG. A scale of zero or less renders at
// the SVG's own size.
func ToPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}
	return convertSVG(ctx, svg, "png", "--zoom", fmt.Sprintf("%.2f", scale))
}

func convertSVG(ctx context.Context, svg []byte, format string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(rsvgBinary)
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"%s export needs %s (brew install librsvg, or apt install librsvg2-bin)", format, rsvgBinary)
	}

	cmd := exec.CommandContext(ctx, path, append([]string{"--format", format}, args...)...)
	cmd.Stdin = bytes.NewReader(svg)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "%s: %s", rsvgBinary, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
