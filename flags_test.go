package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v2"
	"go.viam.com/test"

	"github.com/Tutortoise/live-spotter/engine"
)

func parseArgs(args ...string) (appConfig, error) {
	var cfg appConfig
	app := &cli.App{
		Name:      "live-spotter",
		Flags:     appFlags,
		Writer:    io.Discard,
		ErrWriter: io.Discard,
		Action: func(c *cli.Context) error {
			var err error
			cfg, err = loadConfig(c)
			return err
		},
	}
	err := app.Run(append([]string{"live-spotter"}, args...))
	return cfg, err
}

func modelFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	prototxt := filepath.Join(dir, "MobileNetSSD_deploy.prototxt")
	weights := filepath.Join(dir, "MobileNetSSD_deploy.caffemodel")
	test.That(t, os.WriteFile(prototxt, []byte("name: \"MobileNet-SSD\""), 0o600), test.ShouldBeNil)
	test.That(t, os.WriteFile(weights, []byte{0}, 0o600), test.ShouldBeNil)
	return prototxt, weights
}

func TestFlagDefaults(t *testing.T) {
	prototxt, weights := modelFiles(t)
	cfg, err := parseArgs("-p", prototxt, "-m", weights)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, cfg.engine.Backend, test.ShouldEqual, engine.BackendOpenCV)
	test.That(t, cfg.engine.Prototxt, test.ShouldEqual, prototxt)
	test.That(t, cfg.engine.Model, test.ShouldEqual, weights)
	test.That(t, cfg.confidence, test.ShouldAlmostEqual, 0.2)
	test.That(t, cfg.video.Source, test.ShouldEqual, "0")
	test.That(t, cfg.video.Width, test.ShouldEqual, 400)
	test.That(t, cfg.video.Warmup, test.ShouldEqual, 2*time.Second)
	test.That(t, cfg.video.FrameTimeout, test.ShouldEqual, time.Second)
	test.That(t, cfg.workers, test.ShouldEqual, 1)
	test.That(t, cfg.maxFrameFailures, test.ShouldEqual, 30)
	test.That(t, cfg.windowTitle, test.ShouldEqual, "Live Detection")
	test.That(t, cfg.headless, test.ShouldBeFalse)
	test.That(t, cfg.statusAddr, test.ShouldBeEmpty)
}

func TestFlagOverrides(t *testing.T) {
	prototxt, weights := modelFiles(t)
	cfg, err := parseArgs(
		"--prototxt", prototxt,
		"--model", weights,
		"--confidence", "0.5",
		"--source", "clip.mp4",
		"--workers", "3",
		"--nms-iou", "0.45",
		"--headless",
		"--seed", "42",
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.confidence, test.ShouldAlmostEqual, 0.5)
	test.That(t, cfg.video.Source, test.ShouldEqual, "clip.mp4")
	test.That(t, cfg.workers, test.ShouldEqual, 3)
	test.That(t, cfg.engine.Workers, test.ShouldEqual, 3)
	test.That(t, cfg.nmsIoU, test.ShouldAlmostEqual, 0.45)
	test.That(t, cfg.headless, test.ShouldBeTrue)
	test.That(t, cfg.seed, test.ShouldEqual, uint64(42))
}

func TestFlagValidation(t *testing.T) {
	prototxt, weights := modelFiles(t)

	for _, tc := range []struct {
		name string
		args []string
		err  string
	}{
		{"confidence above one", []string{"-c", "1.5"}, "confidence"},
		{"negative confidence", []string{"-c", "-0.1"}, "confidence"},
		{"no workers", []string{"--workers", "0"}, "workers"},
		{"no frame failures", []string{"--max-frame-failures", "0"}, "max-frame-failures"},
		{"negative width", []string{"--width", "-1"}, "width"},
		{"zero frame timeout", []string{"--frame-timeout", "0s"}, "frame-timeout"},
		{"bad iou", []string{"--nms-iou", "2"}, "nms-iou"},
		{"unknown backend", []string{"--backend", "tflite"}, "unknown backend"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"-p", prototxt, "-m", weights}, tc.args...)
			_, err := parseArgs(args...)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.err)
		})
	}

	_, err := parseArgs("-p", prototxt, "-m", filepath.Join(t.TempDir(), "missing.caffemodel"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "model file")
}
