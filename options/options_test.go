package options

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/richinsley/dancecurve/audio"
	"github.com/richinsley/dancecurve/envelope"
	"github.com/richinsley/dancecurve/playback"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	opts, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if opts.SampleCount != 512 || opts.Width != 1280 || opts.Height != 720 {
		t.Fatalf("unexpected defaults %+v", opts)
	}
	if opts.FixDelayDuration() != 100*time.Millisecond {
		t.Fatalf("fix delay = %v", opts.FixDelayDuration())
	}
	if opts.Policy() != playback.FinishStop || opts.Encoding() != envelope.EncodingRed {
		t.Fatal("unexpected parsed defaults")
	}
	spec, err := opts.Capture()
	if err != nil || spec.Kind != audio.CaptureEffect {
		t.Fatalf("capture = %+v, %v", spec, err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
sample_count: 256
finish_policy: loop
envelope_encoding: gray
output_buffer: 20ms
capture_source: "ffmpeg:pulse:default"
`)
	opts, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if opts.SampleCount != 256 || opts.Policy() != playback.FinishLoop || opts.Encoding() != envelope.EncodingGray {
		t.Fatalf("file values not applied: %+v", opts)
	}
	if opts.OutputBuffer != 20*time.Millisecond {
		t.Fatalf("output_buffer = %v", opts.OutputBuffer)
	}
	if opts.Width != DefaultWidth {
		t.Fatal("unset fields should keep defaults")
	}
}

func TestLoadFileNotFound(t *testing.T) {
	if _, err := Load("nonexistent.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadUnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		want   string
	}{
		{"smoothing low", func(o *Options) { o.EnvelopeSmoothing = 0.2 }, "envelope_smoothing"},
		{"smoothing high", func(o *Options) { o.EnvelopeSmoothing = 0.6 }, "envelope_smoothing"},
		{"sample count", func(o *Options) { o.SampleCount = 0 }, "sample_count"},
		{"negative delay", func(o *Options) { o.FixDelay = -1 }, "fix_delay"},
		{"policy", func(o *Options) { o.FinishPolicy = "shuffle" }, "finish policy"},
		{"encoding", func(o *Options) { o.EnvelopeEncoding = "hsv" }, "encoding"},
		{"rate", func(o *Options) { o.OutputSampleRate = 100 }, "output_sample_rate"},
		{"log level", func(o *Options) { o.LogLevel = "trace" }, "log_level"},
		{"shader", func(o *Options) { o.DisplayShader = "" }, "display_shader"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Default()
			tt.mutate(o)
			err := o.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestBadCaptureSourceIsNotFatal(t *testing.T) {
	o := Default()
	o.CaptureSource = "speakers"
	if err := o.Validate(); err != nil {
		t.Fatalf("capture source should not fail validation: %v", err)
	}
	if _, err := o.Capture(); err == nil {
		t.Fatal("Capture should still report the parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("DANCECURVE_FINISH_POLICY", "next")
	t.Setenv("DANCECURVE_FIX_DELAY", "0.25")
	opts, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if opts.Policy() != playback.FinishNext || opts.FixDelayDuration() != 250*time.Millisecond {
		t.Fatalf("env not applied: %+v", opts)
	}
}
