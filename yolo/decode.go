// Package yolo decodes raw YOLOv5 output rows into detections.
package yolo

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/model"
)

// rowPrefix is cx, cy, w, h and objectness, followed by one score per class.
const rowPrefix = 5

// Candidate is a box that passed the confidence threshold but has not been
// through non-max suppression yet.
type Candidate struct {
	ClassIndex  int
	Confidence  float32
	BoundingBox model.BoundingBox
}

// Candidates keeps the rows whose objectness times best class score reaches
// confThreshold. Row coordinates are in model input pixels; boxes are clipped
// to width x height.
func Candidates(rows [][]float32, confThreshold float32, width, height int) []Candidate {
	cands := []Candidate{}
	for _, row := range rows {
		if len(row) <= rowPrefix {
			continue
		}

		objectness := row[4]
		if objectness < confThreshold {
			continue
		}

		classID := -1
		classScore := float32(0)
		for j, score := range row[rowPrefix:] {
			if classID == -1 || score > classScore {
				classID = j
				classScore = score
			}
		}

		conf := objectness * classScore
		if conf < confThreshold {
			continue
		}

		cands = append(cands, Candidate{
			ClassIndex:  classID,
			Confidence:  conf,
			BoundingBox: clip(row[0], row[1], row[2], row[3], width, height),
		})
	}
	return cands
}

func clip(cx, cy, w, h float32, width, height int) model.BoundingBox {
	x0 := clamp(int(cx-w/2), 0, width)
	y0 := clamp(int(cy-h/2), 0, height)
	x1 := clamp(int(cx+w/2), 0, width)
	y1 := clamp(int(cy+h/2), 0, height)
	return model.BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

// Select turns the candidates kept by non-max suppression into detections,
// highest confidence first. Indexes outside cands are ignored.
func Select(cands []Candidate, keep []int, labels []string) []model.Detection {
	dets := make([]model.Detection, 0, len(keep))
	for _, idx := range keep {
		if idx < 0 || idx >= len(cands) {
			continue
		}
		c := cands[idx]
		det := model.Detection{
			ClassIndex:  c.ClassIndex,
			Confidence:  c.Confidence,
			BoundingBox: c.BoundingBox,
		}
		if c.ClassIndex < len(labels) {
			det.Label = labels[c.ClassIndex]
		}
		dets = append(dets, det)
	}

	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})
	return dets
}

// LoadLabels reads class names, one per line, in class index order. An empty
// path means no labels.
func LoadLabels(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("open labels %s: %w", path, err)
	}
	defer f.Close()

	labels := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Errorf("read labels %s: %w", path, err)
	}

	// trailing blank lines do not name classes
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	return labels, nil
}
