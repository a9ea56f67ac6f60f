package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/mode"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("VS_LOG_FILE", filepath.Join(dir, "vs-yolo.log"))
	t.Setenv("VS_OUTPUT_FILE", filepath.Join(dir, "output.json"))
	t.Setenv("VS_INPUT_FOLDER", filepath.Join(dir, "settings"))
	return dir
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(mode.ErrSourceNotOpened))
	assert.Equal(t, 0, exitCode(xerrors.Errorf("camera: %w", mode.ErrSourceNotOpened)))
	assert.Equal(t, 1, exitCode(errors.New("forward failed")))
	assert.Equal(t, 1, exitCode(mode.ErrNoSourcePath))
}

func TestRunRequiresModel(t *testing.T) {
	isolate(t)
	assert.Equal(t, 1, run([]string{"vs-yolo"}))
}

func TestRunInvalidModeWritesNothing(t *testing.T) {
	dir := isolate(t)

	assert.Equal(t, 0, run([]string{"vs-yolo", "--mode", "7", "yolov5s.onnx", "clip.mp4"}))
	assert.NoFileExists(t, filepath.Join(dir, "output.json"))
}

func TestRunMissingVideoFails(t *testing.T) {
	dir := isolate(t)
	modelPath := filepath.Join(dir, "yolov5s.onnx")
	require.NoError(t, os.WriteFile(modelPath, []byte("onnx"), 0644))

	assert.Equal(t, 1, run([]string{"vs-yolo", modelPath, filepath.Join(dir, "missing.mp4")}))
	assert.NoFileExists(t, filepath.Join(dir, "output.json"))
}
