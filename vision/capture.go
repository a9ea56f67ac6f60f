// Package vision adapts gocv captures, image transforms and DNN models to
// the pipeline interfaces.
package vision

import (
	"fmt"
	"io"
	"log/slog"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/pipeline"
	"github.com/khaledhikmat/vs-yolo/service/lgr"
)

// Frame owns one gocv.Mat.
type Frame struct {
	Mat gocv.Mat
}

func (f *Frame) Close() error {
	return f.Mat.Close()
}

func matOf(frame pipeline.Frame) (gocv.Mat, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return gocv.Mat{}, xerrors.Errorf("unsupported frame type %T", frame)
	}
	if f.Mat.Empty() {
		return gocv.Mat{}, xerrors.New("empty frame")
	}
	return f.Mat, nil
}

type capture struct {
	name string
	vc   *gocv.VideoCapture
}

// OpenCapture opens a video file path or a camera index. A capture that
// fails to open is returned closed rather than as an error so callers can
// tell an unusable source from a broken library.
func OpenCapture(target interface{}) (pipeline.VideoSource, error) {
	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		lgr.Logger.Warn("error opening video capture",
			slog.String("target", fmt.Sprint(target)),
			slog.Any("error", err),
		)
		return &capture{name: fmt.Sprint(target)}, nil
	}

	return &capture{
		name: fmt.Sprint(target),
		vc:   vc,
	}, nil
}

func (c *capture) IsOpened() bool {
	return c.vc != nil && c.vc.IsOpened()
}

func (c *capture) FPS() (float64, error) {
	if !c.IsOpened() {
		return 0, xerrors.Errorf("query fps of %s: capture is not opened", c.name)
	}
	return c.vc.Get(gocv.VideoCaptureFPS), nil
}

// Read returns io.EOF when the capture yields no frame.
func (c *capture) Read() (pipeline.Frame, error) {
	if !c.IsOpened() {
		return nil, io.EOF
	}

	img := gocv.NewMat()
	if ok := c.vc.Read(&img); !ok || img.Empty() {
		img.Close() // Crucial to close the image to avoid memory leaks
		return nil, io.EOF
	}
	return &Frame{Mat: img}, nil
}

func (c *capture) Close() error {
	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	return err
}
