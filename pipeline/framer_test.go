package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vs-yolo/model"
	"github.com/khaledhikmat/vs-yolo/service/inference"
)

// fakeClock advances by one source frame period per read.
type fakeClock struct {
	start time.Time
	fps   int
	reads int
}

func (c *fakeClock) now() time.Time {
	return c.start.Add(time.Duration(c.reads) * time.Second / time.Duration(c.fps))
}

type fakeFrame struct {
	index    int
	prepared bool
	closed   bool
}

func (f *fakeFrame) Close() error {
	f.closed = true
	return nil
}

type fakeSource struct {
	total   int // negative means endless
	closed  bool
	readErr error
	errAt   int
	clock   *fakeClock
	frames  []*fakeFrame
}

func (s *fakeSource) IsOpened() bool        { return !s.closed }
func (s *fakeSource) FPS() (float64, error) { return 30, nil }
func (s *fakeSource) Close() error          { s.closed = true; return nil }

func (s *fakeSource) read() int {
	return len(s.frames)
}

func (s *fakeSource) allClosed() bool {
	for _, f := range s.frames {
		if !f.closed {
			return false
		}
	}
	return true
}

func (s *fakeSource) Read() (Frame, error) {
	if s.readErr != nil && len(s.frames) == s.errAt {
		return nil, s.readErr
	}
	if s.total >= 0 && len(s.frames) >= s.total {
		return nil, io.EOF
	}
	f := &fakeFrame{index: len(s.frames)}
	s.frames = append(s.frames, f)
	if s.clock != nil {
		s.clock.reads++
	}
	return f, nil
}

type fakePrep struct {
	err      error
	prepared []*fakeFrame
}

func (p *fakePrep) Prepare(frame Frame) (Frame, error) {
	if p.err != nil {
		return nil, p.err
	}
	f := &fakeFrame{index: frame.(*fakeFrame).index, prepared: true}
	p.prepared = append(p.prepared, f)
	return f, nil
}

type fakeDetector struct {
	err    error
	errAt  int
	calls  int
	seen   []int
	conf   float32
	iou    float32
	onCall func(calls int)
}

func (d *fakeDetector) Detect(frame Frame, conf, iou float32) (model.ImageDetections, error) {
	d.calls++
	if d.err != nil && d.calls > d.errAt {
		return model.ImageDetections{}, d.err
	}
	f := frame.(*fakeFrame)
	if !f.prepared {
		return model.ImageDetections{}, errors.New("detector received an unprepared frame")
	}
	d.seen = append(d.seen, f.index)
	d.conf, d.iou = conf, iou
	if d.onCall != nil {
		d.onCall(d.calls)
	}
	return model.ImageDetections{
		ImageWidth:  640,
		ImageHeight: 640,
		Detections:  []model.Detection{{ClassIndex: f.index % 80, Confidence: 0.5}},
	}, nil
}

func (d *fakeDetector) Close() error { return nil }

func frameIndexes(seq *model.ResultSequence) []int {
	var out []int
	for _, r := range seq.Items() {
		out = append(out, r.Frame)
	}
	return out
}

func TestFramerSamplesEveryStrideFrame(t *testing.T) {
	src := &fakeSource{total: 100}
	prep := &fakePrep{}
	det := &fakeDetector{}

	results, stats, err := Framer(context.Background(), FramerParameters{Source: "clip.mp4", ConfidenceThreshold: 0.1, IoUThreshold: 0.45}, src, inference.NewStrided(30), prep, det)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 30, 60, 90}, frameIndexes(results))
	assert.Equal(t, []int{0, 30, 60, 90}, det.seen)
	assert.Equal(t, StopExhausted, stats.StopReason)
	assert.Equal(t, 100, stats.Frames)
	assert.Equal(t, 4, stats.SampledFrames)
	assert.Equal(t, 96, stats.SkippedFrames)
	assert.Equal(t, 4, stats.Detections)
	assert.Equal(t, 30, stats.Stride)

	// every captured and every prepared frame is released
	assert.True(t, src.allClosed())
	for _, f := range prep.prepared {
		assert.True(t, f.closed)
	}

	for _, r := range results.Items() {
		assert.Equal(t, "clip.mp4", r.File)
	}
}

func TestFramerCountsEveryRead(t *testing.T) {
	for _, total := range []int{0, 1, 29, 31, 61} {
		src := &fakeSource{total: total}
		results, stats, err := Framer(context.Background(), FramerParameters{}, src, inference.NewStrided(30), &fakePrep{}, &fakeDetector{})
		require.NoError(t, err)

		assert.Equal(t, total, stats.Frames)
		assert.Equal(t, total, src.read())
		assert.Equal(t, (total+29)/30, results.Len(), "total %d", total)
	}
}

func TestFramerStrideOneProcessesAll(t *testing.T) {
	src := &fakeSource{total: 5}
	results, _, err := Framer(context.Background(), FramerParameters{}, src, inference.NewStrided(1), &fakePrep{}, &fakeDetector{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, frameIndexes(results))
}

func TestFramerPassesThresholds(t *testing.T) {
	det := &fakeDetector{}
	_, _, err := Framer(context.Background(), FramerParameters{ConfidenceThreshold: 0.1, IoUThreshold: 0.45}, &fakeSource{total: 1}, inference.NewStrided(1), &fakePrep{}, det)
	require.NoError(t, err)
	assert.Equal(t, float32(0.1), det.conf)
	assert.Equal(t, float32(0.45), det.iou)
}

func TestFramerStopsOnBudget(t *testing.T) {
	clock := &fakeClock{start: time.Unix(1000, 0), fps: 30}
	src := &fakeSource{total: -1, clock: clock}

	results, stats, err := Framer(context.Background(), FramerParameters{
		MaxDuration: 5 * time.Second,
		Now:         clock.now,
	}, src, inference.NewStrided(inference.StrideFromFPS(30)), &fakePrep{}, &fakeDetector{})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 30, 60, 90, 120}, frameIndexes(results))
	assert.Equal(t, StopBudget, stats.StopReason)
	assert.Equal(t, 150, stats.Frames)
	assert.InDelta(t, 5.0, stats.Uptime, 1e-9)
}

func TestFramerStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{total: -1}
	results, stats, err := Framer(ctx, FramerParameters{}, src, inference.NewStrided(1), &fakePrep{}, &fakeDetector{})
	require.NoError(t, err)
	assert.Equal(t, 0, results.Len())
	assert.Equal(t, 0, src.read())
	assert.Equal(t, StopCancelled, stats.StopReason)
}

func TestFramerStopsWhenCancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	det := &fakeDetector{onCall: func(calls int) {
		if calls == 3 {
			cancel()
		}
	}}
	results, stats, err := Framer(ctx, FramerParameters{}, &fakeSource{total: -1}, inference.NewStrided(10), &fakePrep{}, det)
	require.NoError(t, err)

	// the frame in flight when the quit arrives is still recorded
	assert.Equal(t, []int{0, 10, 20}, frameIndexes(results))
	assert.Equal(t, StopCancelled, stats.StopReason)
	assert.Equal(t, 21, stats.Frames)
}

func TestFramerClosedSource(t *testing.T) {
	src := &fakeSource{total: 10, closed: true}
	results, _, err := Framer(context.Background(), FramerParameters{}, src, inference.NewStrided(1), &fakePrep{}, &fakeDetector{})
	assert.ErrorIs(t, err, ErrSourceClosed)
	assert.Nil(t, results)
	assert.Equal(t, 0, src.read())
}

func TestFramerPropagatesReadError(t *testing.T) {
	boom := errors.New("decoder failure")
	src := &fakeSource{total: -1, readErr: boom, errAt: 45}

	results, stats, err := Framer(context.Background(), FramerParameters{}, src, inference.NewStrided(30), &fakePrep{}, &fakeDetector{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, results)
	assert.Equal(t, "", stats.StopReason)
}

func TestFramerPropagatesPrepareError(t *testing.T) {
	boom := errors.New("resize failed")
	src := &fakeSource{total: 10}

	results, _, err := Framer(context.Background(), FramerParameters{}, src, inference.NewStrided(1), &fakePrep{err: boom}, &fakeDetector{})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, results)
	assert.Equal(t, 1, src.read())
	assert.True(t, src.allClosed())
}

func TestFramerPropagatesDetectorError(t *testing.T) {
	boom := errors.New("forward failed")
	det := &fakeDetector{err: boom, errAt: 2}

	results, _, err := Framer(context.Background(), FramerParameters{}, &fakeSource{total: 100}, inference.NewStrided(10), &fakePrep{}, det)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, results)
	assert.Equal(t, 3, det.calls)
}
