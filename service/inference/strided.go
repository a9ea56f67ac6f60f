package inference

import "math"

type stridedService struct {
	stride int
}

// NewStrided processes frames 0, stride, 2*stride, ... and skips the rest.
// A stride below 1 is treated as 1.
func NewStrided(stride int) IService {
	if stride < 1 {
		stride = 1
	}
	return &stridedService{
		stride: stride,
	}
}

func (svc *stridedService) CanSkipFrame(frames int) bool {
	return frames%svc.stride != 0
}

func (svc *stridedService) Stride() int {
	return svc.stride
}

// StrideFromFPS samples roughly one frame per second of source video.
// Sources that report no usable rate (cameras often report 0) sample every
// frame.
func StrideFromFPS(fps float64) int {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 {
		return 1
	}
	framesToSkip := int(math.Round(fps)) - 1
	if framesToSkip < 0 {
		framesToSkip = 0
	}
	return framesToSkip + 1
}
