package model

import (
	"encoding/json"
	"os"

	"golang.org/x/xerrors"
)

// ResultSequence holds detector results in processing order. It is only ever
// appended to.
type ResultSequence struct {
	items []ImageDetections
}

func (s *ResultSequence) Append(r ImageDetections) {
	if r.Detections == nil {
		r.Detections = []Detection{}
	}
	s.items = append(s.items, r)
}

func (s *ResultSequence) Len() int {
	return len(s.items)
}

// Items returns a copy of the accumulated results.
func (s *ResultSequence) Items() []ImageDetections {
	out := make([]ImageDetections, len(s.items))
	copy(out, s.items)
	return out
}

// DetectionCount is the total number of detections across all frames.
func (s *ResultSequence) DetectionCount() int {
	n := 0
	for _, r := range s.items {
		n += len(r.Detections)
	}
	return n
}

// WriteJSON writes the sequence as an indented JSON array, replacing any
// existing file at path.
func (s *ResultSequence) WriteJSON(path string) error {
	items := s.items
	if items == nil {
		items = []ImageDetections{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return xerrors.Errorf("marshal results: %w", err)
	}

	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return xerrors.Errorf("write results to %s: %w", path, err)
	}

	return nil
}
