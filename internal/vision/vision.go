// Package vision defines the external capability interfaces the
// detection pipeline delegates to. Pixel-level edge/contour work and
// character recognition live in a sidecar service; the core only
// consumes their results.
package vision

import (
	"context"

	"challan-service/internal/domain/challan"
)

// Frame is one raw image captured from a camera, JPEG-encoded.
type Frame struct {
	Width  int
	Height int
	Data   []byte
}

// Camera produces frames for a capture session.
type Camera interface {
	// Probe verifies the camera is accessible. A failing probe is
	// fatal to starting a session.
	Probe(ctx context.Context) error
	// Capture grabs one frame.
	Capture(ctx context.Context) (Frame, error)
}

// Vision extracts vehicle candidate regions from a frame
// (grayscale -> blur -> edge map -> contours, opaque internals).
type Vision interface {
	ExtractRegions(ctx context.Context, frame Frame) ([]challan.Region, error)
}

// OCR recognizes text within a region of a frame. Best-effort: the
// returned text may be empty or garbage and must be validated by the
// caller.
type OCR interface {
	RecognizeText(ctx context.Context, frame Frame, region challan.Region) (text string, confidence float64, err error)
}
