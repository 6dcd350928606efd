// Package session wires capture, envelope, rendering and playback into the
// per-frame pipeline.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/gopxl/beep/v2"
	"github.com/richinsley/dancecurve/audio"
	"github.com/richinsley/dancecurve/envelope"
	"github.com/richinsley/dancecurve/graphics"
	"github.com/richinsley/dancecurve/options"
	"github.com/richinsley/dancecurve/playback"
	"github.com/richinsley/dancecurve/playlist"
	"github.com/richinsley/dancecurve/renderer"
)

// ErrNoPaths is returned by Ingest when given an empty path list.
var ErrNoPaths = errors.New("no paths to ingest")

// Mixer is the audio device side of playback.
type Mixer interface {
	Add(s beep.Streamer, audible bool)
	Clear()
	TimeSinceLastMix() time.Duration
	OutputLatency() time.Duration
}

// CaptureOpener creates the capture source. audio.OpenCapture is the
// production implementation.
type CaptureOpener func(spec audio.CaptureSpec, sampleRate, ringFrames int, effectRing *audio.FrameRing) (audio.CaptureSource, error)

// Config holds the collaborators of a Session.
type Config struct {
	Options        *options.Options
	Device         graphics.Device
	Mixer          Mixer
	FeedbackSource string
	DisplaySource  string

	// Optional.
	Registry    *audio.Registry  // defaults to audio.DefaultRegistry
	Playlist    *playlist.Store  // nil disables playlist tracking
	Now         func() time.Time // defaults to time.Now
	OpenCapture CaptureOpener    // defaults to audio.OpenCapture
}

// Session owns everything bound to the current stream and runs one tick of
// the pipeline at a time. It is not safe for concurrent use: every method
// must be called from the render goroutine.
type Session struct {
	Events Events

	opts     *options.Options
	device   graphics.Device
	mixer    Mixer
	registry *audio.Registry
	playlist *playlist.Store
	renderer *renderer.Renderer
	sched    *playback.Scheduler
	sync     *playback.Synchronizer

	capture    audio.CaptureSource
	captureOn  bool
	effectRing *audio.FrameRing
	envScratch []float32

	scene  *renderer.Scene
	stream *audio.Stream

	displayWidth  int
	displayHeight int
	fps           fpsCounter
	dropped       int64 // capture frames dropped as of the last report
}

// NewSession compiles the programs and builds an idle scene. A program
// failure is returned as an error and is fatal to the caller.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Options == nil || cfg.Device == nil || cfg.Mixer == nil {
		return nil, errors.New("session: options, device and mixer are required")
	}
	opts := cfg.Options
	s := &Session{
		opts:          opts,
		device:        cfg.Device,
		mixer:         cfg.Mixer,
		registry:      cfg.Registry,
		playlist:      cfg.Playlist,
		effectRing:    audio.NewFrameRing(opts.CaptureFrames),
		envScratch:    make([]float32, opts.SampleCount),
		displayWidth:  opts.Width,
		displayHeight: opts.Height,
	}
	if s.registry == nil {
		s.registry = audio.DefaultRegistry()
	}

	var err error
	s.renderer, err = renderer.NewRenderer(cfg.Device, renderer.Config{
		FeedbackSource: cfg.FeedbackSource,
		DisplaySource:  cfg.DisplaySource,
		Width:          opts.Width,
		Height:         opts.Height,
		Params: renderer.Params{
			UpdateInterval:    float32(opts.UpdateInterval),
			EnvelopeSmoothing: float32(opts.EnvelopeSmoothing),
			CompressionK:      float32(opts.CompressionK),
		},
	})
	if err != nil {
		return nil, err
	}

	s.scene, err = s.renderer.LoadScene(s.sceneConfig("idle"))
	if err != nil {
		s.renderer.Shutdown()
		return nil, err
	}

	s.sched = playback.NewScheduler(cfg.Now)
	s.sync = playback.NewSynchronizer(s.sched, cfg.Mixer, opts.FixDelayDuration(), opts.Policy(), playback.Hooks{
		Progress: s.Events.Progress.Publish,
		Finished: s.finished,
		Reload:   s.Reload,
	})

	openCapture := cfg.OpenCapture
	if openCapture == nil {
		openCapture = audio.OpenCapture
	}
	s.openCapture(openCapture)

	if s.playlist != nil {
		s.playlist.OnAdded = s.Events.TrackAdded.Publish
		s.playlist.OnRemoved = s.Events.TrackRemoved.Publish
	}

	glog.Infof("Session ready: %d envelope bins, capture %s, finish policy %s",
		opts.SampleCount, s.capture.Name(), opts.Policy())
	return s, nil
}

func (s *Session) openCapture(open CaptureOpener) {
	spec, err := s.opts.Capture()
	if err != nil {
		s.warn(fmt.Sprintf("capture source disabled: %v", err))
		s.capture = audio.NullSource{}
		return
	}
	if spec.Kind == audio.CaptureNone {
		glog.Info("Capture source is none, envelope updates disabled")
		s.capture = audio.NullSource{}
		return
	}
	src, err := open(spec, s.opts.OutputSampleRate, s.opts.CaptureFrames, s.effectRing)
	if err != nil {
		s.warn(fmt.Sprintf("capture source %s unavailable, envelope updates disabled: %v", spec, err))
		s.capture = audio.NullSource{}
		return
	}
	s.capture = src
	s.captureOn = true
}

func (s *Session) sceneConfig(title string) renderer.SceneConfig {
	return renderer.SceneConfig{
		Title:       title,
		SampleCount: s.opts.SampleCount,
		Encoding:    s.opts.Encoding(),
		Warn:        s.warn,
	}
}

// Tick runs one frame: due callbacks, capture, envelope, feedback,
// composite, playback observation. dt is the time since the previous tick.
func (s *Session) Tick(dt time.Duration) {
	s.sched.Poll()

	if s.captureOn {
		batch := s.capture.Read(s.capture.Available())
		if envelope.Reduce(batch, s.envScratch) {
			s.scene.Envelope.Push(s.envScratch)
			peak, mean := s.scene.Envelope.Buffer().Stats()
			if glog.V(2) {
				glog.Infof("envelope: %d frames, peak %.4f mean %.4f", len(batch), peak, mean)
			}
			s.Events.Level.Publish(Level{Peak: peak, Mean: mean})
		}
	}

	s.renderer.RenderFrame(s.scene, s.displayWidth, s.displayHeight)
	s.sync.Update()

	if rate, ok := s.fps.add(dt); ok {
		s.Events.FrameRate.Publish(rate)
		s.reportDropped()
	}
}

// reportDropped warns when capture frames were discarded since the last
// report. It runs once per frame rate window.
func (s *Session) reportDropped() {
	total := s.capture.Dropped()
	if n := total - s.dropped; n > 0 {
		s.warn(fmt.Sprintf("capture %s dropped %d frames", s.capture.Name(), n))
	}
	s.dropped = total
}

// Reload rebuilds the pipeline around the current stream and starts it from
// the beginning.
func (s *Session) Reload() error {
	if s.stream == nil {
		return errors.New("no stream loaded")
	}
	return s.load(s.stream)
}

// load builds a complete new scene and channel pair for stream and swaps it
// in. On error nothing changes.
func (s *Session) load(stream *audio.Stream) error {
	scene, err := s.renderer.LoadScene(s.sceneConfig(stream.Path))
	if err != nil {
		return fmt.Errorf("reload %s: %w", stream.Path, err)
	}

	effect := audio.NewChannel("effect", stream)
	real := audio.NewChannel("real", stream)
	if s.captureOn && s.capture.Name() == "effect" {
		effect.SetTap(s.effectRing)
	}

	s.mixer.Clear()
	s.sync.Bind(effect, real, stream.Duration())
	s.mixer.Add(effect, s.opts.EffectAudible)
	s.mixer.Add(real, true)
	s.effectRing.Reset()

	old := s.scene
	s.scene = scene
	s.stream = stream
	old.Destroy()

	s.sync.Start()
	glog.Infof("Loaded %s (%v, %d Hz)", stream.Path, stream.Duration(), stream.SampleRate)
	return nil
}

func (s *Session) finished() {
	path := ""
	if s.stream != nil {
		path = s.stream.Path
	}
	s.Events.Finished.Publish(path)

	if s.sync.Policy() == playback.FinishNext && s.playlist != nil {
		// Deferred to the next tick so the synchronizer finishes its
		// completion handling before the pair is replaced.
		s.sched.AfterFunc(0, s.playNext)
	}
}

func (s *Session) playNext() {
	if _, err := s.playlist.Advance(s.ingestOne); err != nil {
		s.fail(fmt.Sprintf("next track: %v", err))
	}
}

// SetPaused pauses or resumes playback.
func (s *Session) SetPaused(paused bool) { s.sync.SetPaused(paused) }

// TogglePause flips between playing and paused.
func (s *Session) TogglePause() { s.sync.SetPaused(s.sync.State() == playback.Playing) }

// SetDisplaySize sets the window framebuffer size used by the compositor.
func (s *Session) SetDisplaySize(width, height int) {
	s.displayWidth, s.displayHeight = width, height
}

// FrameIndex is the feedback tick of the current scene.
func (s *Session) FrameIndex() uint64 { return s.scene.Feedback.Tick() }

// Position is the playback position.
func (s *Session) Position() time.Duration { return s.sync.Position() }

// Duration is the length of the current stream, 0 before the first ingest.
func (s *Session) Duration() time.Duration { return s.sync.Duration() }

// State is the playback state.
func (s *Session) State() playback.State { return s.sync.State() }

// Stream is the current stream, nil before the first ingest.
func (s *Session) Stream() *audio.Stream { return s.stream }

// CaptureSource names the active capture source.
func (s *Session) CaptureSource() string { return s.capture.Name() }

// Envelope returns the current envelope values.
func (s *Session) Envelope() []float32 { return s.scene.Envelope.Values() }

func (s *Session) warn(msg string) {
	glog.Warning(msg)
	s.Events.Diagnostic.Publish(Diagnostic{Severity: SeverityWarning, Message: msg})
}

func (s *Session) fail(msg string) {
	glog.Error(msg)
	s.Events.Diagnostic.Publish(Diagnostic{Severity: SeverityError, Message: msg})
}

// Close stops playback and frees every resource.
func (s *Session) Close() {
	s.sched.Invalidate()
	s.mixer.Clear()
	if err := s.capture.Close(); err != nil {
		glog.Warningf("closing capture source: %v", err)
	}
	s.scene.Destroy()
	s.renderer.Shutdown()
}

// fpsCounter averages frame times over one second windows.
type fpsCounter struct {
	frames  int
	elapsed time.Duration
}

func (f *fpsCounter) add(dt time.Duration) (float64, bool) {
	f.frames++
	f.elapsed += dt
	if f.elapsed < time.Second {
		return 0, false
	}
	rate := float64(f.frames) / f.elapsed.Seconds()
	f.frames, f.elapsed = 0, 0
	return rate, true
}
