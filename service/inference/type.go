package inference

// IService decides which captured frames reach the detector.
type IService interface {
	// CanSkipFrame reports whether the frame with the given 0-based index
	// should be read and dropped instead of processed.
	CanSkipFrame(frames int) bool
	Stride() int
}
