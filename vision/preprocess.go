package vision

import (
	"image"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/pipeline"
)

type preprocessor struct {
	size image.Point
}

// NewPreprocessor resizes frames to width x height with bilinear
// interpolation and converts them from BGR to RGB.
func NewPreprocessor(width, height int) pipeline.Preprocessor {
	return &preprocessor{size: image.Pt(width, height)}
}

func (p *preprocessor) Prepare(frame pipeline.Frame) (pipeline.Frame, error) {
	src, err := matOf(frame)
	if err != nil {
		return nil, err
	}

	resized := gocv.NewMat()
	defer resized.Close()
	if err := gocv.Resize(src, &resized, p.size, 0, 0, gocv.InterpolationLinear); err != nil {
		return nil, xerrors.Errorf("resize to %dx%d: %w", p.size.X, p.size.Y, err)
	}

	rgb := gocv.NewMat()
	if err := gocv.CvtColor(resized, &rgb, gocv.ColorBGRToRGB); err != nil {
		rgb.Close()
		return nil, xerrors.Errorf("convert bgr to rgb: %w", err)
	}
	return &Frame{Mat: rgb}, nil
}
