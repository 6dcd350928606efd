// Package options holds the visualizer configuration.
package options

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/richinsley/dancecurve/audio"
	"github.com/richinsley/dancecurve/envelope"
	"github.com/richinsley/dancecurve/playback"
	"gopkg.in/yaml.v3"
)

// Defaults and limits.
const (
	DefaultSampleCount       = 512
	DefaultCaptureSource     = "effect"
	DefaultWidth             = 1280
	DefaultHeight            = 720
	DefaultFixDelay          = 0.1 // seconds
	DefaultUpdateInterval    = 10
	DefaultEnvelopeSmoothing = 0.4
	DefaultCompressionK      = 1.0
	DefaultFinishPolicy      = "stop"
	DefaultFeedbackShader    = "shaders/feedback.glsl"
	DefaultDisplayShader     = "shaders/display.glsl"
	DefaultEnvelopeEncoding  = "red"
	DefaultOutputSampleRate  = 44100
	DefaultOutputBuffer      = 50 * time.Millisecond
	DefaultCaptureFrames     = 44100 * 2 // two seconds at the default rate
	DefaultLogLevel          = "info"

	MinEnvelopeSmoothing = 0.3
	MaxEnvelopeSmoothing = 0.5
	MinSampleRate        = 8000
	MaxSampleRate        = 192000
)

// Options is the complete configuration. Zero values are not meaningful;
// start from Default or Load.
type Options struct {
	SampleCount       int           `yaml:"sample_count"`       // Envelope bins (N).
	CaptureSource     string        `yaml:"capture_source"`     // effect, mic, ffmpeg:<format>:<device> or none.
	Width             int           `yaml:"width"`              // Window and feedback target width.
	Height            int           `yaml:"height"`             // Window and feedback target height.
	FixDelay          float64       `yaml:"fix_delay"`          // Seconds the analysis channel leads the audible one.
	UpdateInterval    float64       `yaml:"update_interval"`    // Feedback shader tunable.
	EnvelopeSmoothing float64       `yaml:"envelope_smoothing"` // Feedback shader tunable, [0.3, 0.5].
	CompressionK      float64       `yaml:"compression_k"`      // Feedback shader tunable.
	FinishPolicy      string        `yaml:"finish_policy"`      // stop, loop or next.
	FeedbackShader    string        `yaml:"feedback_shader"`    // Path of the feedback program.
	DisplayShader     string        `yaml:"display_shader"`     // Path of the display program.
	EnvelopeEncoding  string        `yaml:"envelope_encoding"`  // red or gray.
	OutputSampleRate  int           `yaml:"output_sample_rate"` // Playback device rate in Hz.
	OutputBuffer      time.Duration `yaml:"output_buffer"`      // Playback device buffer.
	EffectAudible     bool          `yaml:"effect_audible"`     // Also play the analysis channel.
	CaptureFrames     int           `yaml:"capture_frames"`     // Capture ring capacity in frames.
	WebSocketAddr     string        `yaml:"websocket_addr"`     // Event publisher listen address, empty disables it.
	AudioFile         string        `yaml:"audio_file"`         // Track to ingest at startup.
	LogLevel          string        `yaml:"log_level"`          // info, warning or error.
}

// Default returns the built-in configuration.
func Default() *Options {
	return &Options{
		SampleCount:       DefaultSampleCount,
		CaptureSource:     DefaultCaptureSource,
		Width:             DefaultWidth,
		Height:            DefaultHeight,
		FixDelay:          DefaultFixDelay,
		UpdateInterval:    DefaultUpdateInterval,
		EnvelopeSmoothing: DefaultEnvelopeSmoothing,
		CompressionK:      DefaultCompressionK,
		FinishPolicy:      DefaultFinishPolicy,
		FeedbackShader:    DefaultFeedbackShader,
		DisplayShader:     DefaultDisplayShader,
		EnvelopeEncoding:  DefaultEnvelopeEncoding,
		OutputSampleRate:  DefaultOutputSampleRate,
		OutputBuffer:      DefaultOutputBuffer,
		CaptureFrames:     DefaultCaptureFrames,
		LogLevel:          DefaultLogLevel,
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Options, error) {
	opts := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, opts); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	opts.applyEnvOverrides()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return opts, nil
}

// Validate reports every invalid field. The capture source is not checked
// here: a bad capture source only disables envelope updates.
func (o *Options) Validate() error {
	var errs []error
	if o.SampleCount <= 0 {
		errs = append(errs, fmt.Errorf("sample_count must be positive, got %d", o.SampleCount))
	}
	if o.Width <= 0 || o.Height <= 0 {
		errs = append(errs, fmt.Errorf("width and height must be positive, got %dx%d", o.Width, o.Height))
	}
	if o.FixDelay < 0 {
		errs = append(errs, fmt.Errorf("fix_delay must not be negative, got %v", o.FixDelay))
	}
	if o.UpdateInterval <= 0 {
		errs = append(errs, fmt.Errorf("update_interval must be positive, got %v", o.UpdateInterval))
	}
	if o.EnvelopeSmoothing < MinEnvelopeSmoothing || o.EnvelopeSmoothing > MaxEnvelopeSmoothing {
		errs = append(errs, fmt.Errorf("envelope_smoothing must be in [%v, %v], got %v",
			MinEnvelopeSmoothing, MaxEnvelopeSmoothing, o.EnvelopeSmoothing))
	}
	if o.CompressionK <= 0 {
		errs = append(errs, fmt.Errorf("compression_k must be positive, got %v", o.CompressionK))
	}
	if _, err := playback.ParseFinishPolicy(o.FinishPolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := envelope.ParseEncoding(o.EnvelopeEncoding); err != nil {
		errs = append(errs, err)
	}
	if o.FeedbackShader == "" || o.DisplayShader == "" {
		errs = append(errs, errors.New("feedback_shader and display_shader must be set"))
	}
	if o.OutputSampleRate < MinSampleRate || o.OutputSampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("output_sample_rate must be in [%d, %d], got %d",
			MinSampleRate, MaxSampleRate, o.OutputSampleRate))
	}
	if o.OutputBuffer < 0 {
		errs = append(errs, fmt.Errorf("output_buffer must not be negative, got %v", o.OutputBuffer))
	}
	if o.CaptureFrames <= 0 {
		errs = append(errs, fmt.Errorf("capture_frames must be positive, got %d", o.CaptureFrames))
	}
	switch o.LogLevel {
	case "info", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be info, warning or error, got %q", o.LogLevel))
	}
	return errors.Join(errs...)
}

// FixDelayDuration is FixDelay as a time.Duration.
func (o *Options) FixDelayDuration() time.Duration {
	return time.Duration(o.FixDelay * float64(time.Second))
}

// Policy returns the parsed finish policy. Validate must have passed.
func (o *Options) Policy() playback.FinishPolicy {
	p, _ := playback.ParseFinishPolicy(o.FinishPolicy)
	return p
}

// Encoding returns the parsed envelope encoding. Validate must have passed.
func (o *Options) Encoding() envelope.Encoding {
	e, _ := envelope.ParseEncoding(o.EnvelopeEncoding)
	return e
}

// Capture parses the capture source.
func (o *Options) Capture() (audio.CaptureSpec, error) {
	return audio.ParseCaptureSpec(o.CaptureSource)
}

// applyEnvOverrides lets DANCECURVE_* variables override file values.
func (o *Options) applyEnvOverrides() {
	if val, ok := os.LookupEnv("DANCECURVE_CAPTURE_SOURCE"); ok {
		o.CaptureSource = val
		glog.Infof("configuration: overriding capture_source from env: %s", val)
	}
	if val, ok := os.LookupEnv("DANCECURVE_FINISH_POLICY"); ok {
		o.FinishPolicy = val
		glog.Infof("configuration: overriding finish_policy from env: %s", val)
	}
	if val, ok := os.LookupEnv("DANCECURVE_FIX_DELAY"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			o.FixDelay = f
			glog.Infof("configuration: overriding fix_delay from env: %v", f)
		}
	}
	if val, ok := os.LookupEnv("DANCECURVE_WEBSOCKET_ADDR"); ok {
		o.WebSocketAddr = val
		glog.Infof("configuration: overriding websocket_addr from env: %s", val)
	}
}
