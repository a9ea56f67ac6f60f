package vision

import (
	"image"
	"log/slog"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/model"
	"github.com/khaledhikmat/vs-yolo/pipeline"
	"github.com/khaledhikmat/vs-yolo/service/config"
	"github.com/khaledhikmat/vs-yolo/service/lgr"
	"github.com/khaledhikmat/vs-yolo/yolo"
)

type y5Detector struct {
	net    gocv.Net
	size   image.Point
	labels []string
}

// LoadYolo5 reads a YOLOv5 ONNX model and runs it on the CPU.
func LoadYolo5(params config.DetectorParameters) (pipeline.Detector, error) {
	if _, err := os.Stat(params.ModelPath); err != nil {
		return nil, xerrors.Errorf("no yolo5 model at %s: %w", params.ModelPath, err)
	}

	labels, err := yolo.LoadLabels(params.LabelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(params.ModelPath, "")
	if net.Empty() {
		return nil, xerrors.Errorf("error reading yolo5 model %s", params.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, xerrors.Errorf("error setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, xerrors.Errorf("error setting target: %w", err)
	}

	lgr.Logger.Info("yolo5 detector loaded",
		slog.String("model", params.ModelPath),
		slog.Int("labels", len(labels)),
		slog.String("openCV", gocv.Version()),
	)

	return &y5Detector{
		net:    net,
		size:   image.Pt(params.InputWidth, params.InputHeight),
		labels: labels,
	}, nil
}

// Detect expects a frame already resized to the model input and in RGB
// order, so the blob is built without swapping channels.
func (d *y5Detector) Detect(frame pipeline.Frame, confThreshold, iouThreshold float32) (model.ImageDetections, error) {
	img, err := matOf(frame)
	if err != nil {
		return model.ImageDetections{}, err
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.size, gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 || dims[2] <= 5 {
		return model.ImageDetections{}, xerrors.Errorf("unexpected yolo5 output dims %v", dims)
	}

	reshaped := output.Reshape(1, dims[1])
	defer reshaped.Close()
	if reshaped.Empty() || reshaped.Rows() == 0 {
		return model.ImageDetections{}, xerrors.Errorf("reshape yolo5 output %v failed", dims)
	}

	rows := make([][]float32, 0, reshaped.Rows())
	for i := 0; i < reshaped.Rows(); i++ {
		row := reshaped.RowRange(i, i+1)
		data, err := row.DataPtrFloat32()
		if err != nil {
			row.Close()
			return model.ImageDetections{}, xerrors.Errorf("read yolo5 row %d: %w", i, err)
		}
		// data aliases the row, so copy it before closing
		rows = append(rows, append([]float32(nil), data...))
		row.Close()
	}

	cands := yolo.Candidates(rows, confThreshold, img.Cols(), img.Rows())

	res := model.ImageDetections{
		ImageWidth:  img.Cols(),
		ImageHeight: img.Rows(),
		Detections:  []model.Detection{},
	}
	if len(cands) == 0 {
		return res, nil
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		b := c.BoundingBox
		boxes[i] = image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
		scores[i] = c.Confidence
	}

	keep := gocv.NMSBoxes(boxes, scores, confThreshold, iouThreshold)
	res.Detections = yolo.Select(cands, keep, d.labels)
	return res, nil
}

func (d *y5Detector) Close() error {
	return d.net.Close()
}
