package vision

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-yolo/service/config"
)

type otherFrame struct{}

func (otherFrame) Close() error { return nil }

func TestOpenCaptureMissingFile(t *testing.T) {
	src, err := OpenCapture(filepath.Join(t.TempDir(), "missing.mp4"))
	require.NoError(t, err)
	defer src.Close()

	assert.False(t, src.IsOpened())
	_, err = src.FPS()
	assert.Error(t, err)
	_, err = src.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPreprocessorResizesAndConverts(t *testing.T) {
	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	img.SetTo(gocv.NewScalar(255, 0, 0, 0)) // blue in BGR
	in := &Frame{Mat: img}
	defer in.Close()

	out, err := NewPreprocessor(320, 320).Prepare(in)
	require.NoError(t, err)
	defer out.Close()

	mat := out.(*Frame).Mat
	assert.Equal(t, 320, mat.Cols())
	assert.Equal(t, 320, mat.Rows())

	// blue moves to the last channel after conversion
	pix := mat.GetVecbAt(10, 10)
	assert.Equal(t, uint8(0), pix[0])
	assert.Equal(t, uint8(255), pix[2])
}

func TestPreprocessorRejectsForeignFrames(t *testing.T) {
	_, err := NewPreprocessor(640, 640).Prepare(otherFrame{})
	assert.Error(t, err)

	empty := &Frame{Mat: gocv.NewMat()}
	defer empty.Close()
	_, err = NewPreprocessor(640, 640).Prepare(empty)
	assert.Error(t, err)
}

func TestLoadYolo5MissingModel(t *testing.T) {
	_, err := LoadYolo5(config.DetectorParameters{
		ModelPath:   filepath.Join(t.TempDir(), "yolov5s.onnx"),
		InputWidth:  640,
		InputHeight: 640,
	})
	assert.Error(t, err)
}
