package session

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/richinsley/dancecurve/audio"
	"github.com/richinsley/dancecurve/internal/gputest"
	"github.com/richinsley/dancecurve/options"
	"github.com/richinsley/dancecurve/playback"
	"github.com/richinsley/dancecurve/playlist"
)

const (
	testRate   = 8000
	testFrames = 800 // 100ms
	testShader = "void mainImage(out vec4 c, in vec2 p) { c = vec4(0.0); }\n"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	s     *Session
	dev   *gputest.Device
	mixer *audio.Mixer
	clk   *clock
	list  *playlist.Store
	dir   string

	diags    []Diagnostic
	progress []float64
	finished []string
}

func newHarness(t *testing.T, policy string, tweaks ...func(*options.Options)) *harness {
	t.Helper()
	opts := options.Default()
	opts.SampleCount = 8
	opts.OutputSampleRate = testRate
	opts.CaptureFrames = testRate
	opts.FixDelay = 0.05
	opts.FinishPolicy = policy
	for _, tweak := range tweaks {
		tweak(opts)
	}

	h := &harness{
		dev:   gputest.New(),
		mixer: audio.NewMixer(),
		clk:   &clock{t: time.Unix(1000, 0)},
		list:  playlist.New(),
		dir:   t.TempDir(),
	}
	s, err := NewSession(Config{
		Options:        opts,
		Device:         h.dev,
		Mixer:          h.mixer,
		FeedbackSource: testShader,
		DisplaySource:  testShader,
		Playlist:       h.list,
		Now:            h.clk.Now,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	h.s = s
	s.Events.Diagnostic.Subscribe(func(d Diagnostic) { h.diags = append(h.diags, d) })
	s.Events.Progress.Subscribe(func(p float64) { h.progress = append(h.progress, p) })
	s.Events.Finished.Subscribe(func(p string) { h.finished = append(h.finished, p) })
	return h
}

// track writes a stereo wav of testFrames frames holding the constant value
// level on both channels.
func (h *harness) track(t *testing.T, name string, level int) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]int, 2*testFrames)
	for i := range data {
		data[i] = level
	}
	enc := wav.NewEncoder(f, testRate, 16, 2, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: testRate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// pull has the mixer produce frames, as the audio device would.
func (h *harness) pull(frames int) {
	buf := make([]byte, frames*8)
	h.mixer.Read(buf)
}

// playToEnd starts the real channel and runs both channels past the end.
func (h *harness) playToEnd() {
	h.clk.Advance(50 * time.Millisecond)
	h.s.Tick(time.Millisecond)
	h.pull(2 * testFrames)
}

func TestIngestEmptyPaths(t *testing.T) {
	h := newHarness(t, "stop")
	if err := h.s.Ingest(nil); !errors.Is(err, ErrNoPaths) {
		t.Fatalf("err = %v, want ErrNoPaths", err)
	}
}

func TestIngestUnsupportedKeepsCurrentStream(t *testing.T) {
	h := newHarness(t, "stop")
	good := h.track(t, "good.wav", 8192)
	if err := h.s.Ingest([]string{good}); err != nil {
		t.Fatal(err)
	}
	before := h.s.Duration()

	err := h.s.Ingest([]string{filepath.Join(h.dir, "clip.flac")})
	if !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if h.s.Duration() != before || h.s.Stream().Path != good {
		t.Fatalf("stream changed to %s (%v)", h.s.Stream().Path, h.s.Duration())
	}
	if h.s.State() != playback.Playing {
		t.Fatalf("state = %s, want playing", h.s.State())
	}
	if len(h.diags) != 1 || h.diags[0].Severity != SeverityError {
		t.Fatalf("diagnostics = %+v", h.diags)
	}
	if got := h.list.Tracks(); len(got) != 1 {
		t.Fatalf("playlist = %v", got)
	}
}

func TestIngestMultiplePathsLoadsFirst(t *testing.T) {
	h := newHarness(t, "stop")
	a := h.track(t, "a.wav", 8192)
	b := h.track(t, "b.wav", 8192)

	if err := h.s.Ingest([]string{a, b}); err != nil {
		t.Fatal(err)
	}
	if h.s.Stream().Path != a {
		t.Fatalf("loaded %s, want %s", h.s.Stream().Path, a)
	}
	if len(h.diags) != 1 || h.diags[0].Severity != SeverityWarning || !strings.Contains(h.diags[0].Message, "2 paths") {
		t.Fatalf("diagnostics = %+v", h.diags)
	}
	if got := h.list.Tracks(); len(got) != 1 || got[0] != a {
		t.Fatalf("playlist = %v", got)
	}
	if want := testFrames * time.Second / testRate; h.s.Duration() != want {
		t.Fatalf("duration = %v, want %v", h.s.Duration(), want)
	}
}

func TestTickPushesCapturedEnvelope(t *testing.T) {
	h := newHarness(t, "stop")
	if h.s.CaptureSource() != "effect" {
		t.Fatalf("capture = %s", h.s.CaptureSource())
	}
	if err := h.s.Ingest([]string{h.track(t, "half.wav", 16384)}); err != nil {
		t.Fatal(err)
	}

	var levels []Level
	h.s.Events.Level.Subscribe(func(l Level) { levels = append(levels, l) })

	// Only the effect channel is playing yet; it feeds the tap.
	h.pull(400)
	h.s.Tick(16 * time.Millisecond)
	for i, v := range h.s.Envelope() {
		if math.Abs(float64(v)-0.5) > 1e-3 {
			t.Fatalf("bin %d = %v, want 0.5", i, v)
		}
	}
	if len(levels) != 1 {
		t.Fatalf("levels = %v, want one", levels)
	}
	if math.Abs(levels[0].Peak-0.5) > 1e-3 || math.Abs(levels[0].Mean-0.5) > 1e-3 {
		t.Fatalf("level = %+v, want peak and mean 0.5", levels[0])
	}

	uploads := len(h.dev.Uploads)
	h.s.Tick(16 * time.Millisecond)
	if len(h.dev.Uploads) != uploads {
		t.Fatal("empty capture batch should not upload")
	}
	if len(levels) != 1 {
		t.Fatal("empty capture batch should not publish a level")
	}
	if v := h.s.Envelope()[0]; math.Abs(float64(v)-0.5) > 1e-3 {
		t.Fatalf("envelope not retained: %v", v)
	}
}

func TestProgressAfterRealStarts(t *testing.T) {
	h := newHarness(t, "stop")
	if err := h.s.Ingest([]string{h.track(t, "a.wav", 8192)}); err != nil {
		t.Fatal(err)
	}
	h.s.Tick(time.Millisecond)
	if len(h.progress) != 0 {
		t.Fatalf("progress before real started: %v", h.progress)
	}

	h.clk.Advance(50 * time.Millisecond)
	h.s.Tick(time.Millisecond) // starts real, then reports 0
	h.pull(testFrames / 2)
	h.s.Tick(time.Millisecond)

	if len(h.progress) != 2 {
		t.Fatalf("progress = %v", h.progress)
	}
	if p := h.progress[1]; p < 0.5 || p > 0.75 {
		t.Fatalf("progress = %v, want about 0.5", p)
	}
}

func TestPauseStopsProgress(t *testing.T) {
	h := newHarness(t, "stop")
	if err := h.s.Ingest([]string{h.track(t, "a.wav", 8192)}); err != nil {
		t.Fatal(err)
	}
	h.clk.Advance(50 * time.Millisecond)
	h.s.Tick(time.Millisecond)

	h.s.TogglePause()
	if h.s.State() != playback.Paused {
		t.Fatalf("state = %s", h.s.State())
	}
	n := len(h.progress)
	h.s.Tick(time.Millisecond)
	if len(h.progress) != n {
		t.Fatal("progress while paused")
	}
	h.s.TogglePause()
	if h.s.State() != playback.Playing {
		t.Fatalf("state = %s", h.s.State())
	}
}

func TestLoopRestartsFromZero(t *testing.T) {
	h := newHarness(t, "loop")
	path := h.track(t, "a.wav", 8192)
	if err := h.s.Ingest([]string{path}); err != nil {
		t.Fatal(err)
	}
	programs, targets, textures := h.dev.Live()

	h.playToEnd()
	if h.s.FrameIndex() == 0 {
		t.Fatal("frames should have been rendered")
	}
	h.s.Tick(time.Millisecond)

	if h.s.FrameIndex() != 0 {
		t.Fatalf("tick = %d after loop, want 0", h.s.FrameIndex())
	}
	if h.s.State() != playback.Playing || h.s.Position() != 0 {
		t.Fatalf("state %s position %v", h.s.State(), h.s.Position())
	}
	if len(h.finished) != 1 || h.finished[0] != path {
		t.Fatalf("finished = %v", h.finished)
	}
	p, tg, tx := h.dev.Live()
	if p != programs || tg != targets || tx != textures {
		t.Fatalf("live resources %d/%d/%d, want %d/%d/%d", p, tg, tx, programs, targets, textures)
	}
}

func TestStopPolicyStaysStopped(t *testing.T) {
	h := newHarness(t, "stop")
	if err := h.s.Ingest([]string{h.track(t, "a.wav", 8192)}); err != nil {
		t.Fatal(err)
	}
	h.playToEnd()
	h.s.Tick(time.Millisecond)
	if h.s.State() != playback.Stopped || len(h.finished) != 1 {
		t.Fatalf("state %s, finished %v", h.s.State(), h.finished)
	}
	if h.s.Position() != h.s.Duration() {
		t.Fatalf("position %v, want %v", h.s.Position(), h.s.Duration())
	}

	n := len(h.progress)
	h.s.Tick(time.Millisecond)
	if len(h.progress) != n || len(h.finished) != 1 {
		t.Fatal("events after stop")
	}
}

func TestNextPolicyAdvancesPlaylist(t *testing.T) {
	h := newHarness(t, "next")
	a := h.track(t, "a.wav", 8192)
	b := h.track(t, "b.wav", 8192)
	for _, p := range []string{a, b} {
		if err := h.s.Ingest([]string{p}); err != nil {
			t.Fatal(err)
		}
	}

	h.playToEnd()
	h.s.Tick(time.Millisecond) // finishes b
	h.s.Tick(time.Millisecond) // loads the next track

	if h.s.Stream().Path != a {
		t.Fatalf("playing %s, want %s", h.s.Stream().Path, a)
	}
	if cur, _ := h.list.Current(); cur != a {
		t.Fatalf("current = %s", cur)
	}
	if h.s.State() != playback.Playing {
		t.Fatalf("state = %s", h.s.State())
	}
}

func TestNextPolicyDropsUnplayableTrack(t *testing.T) {
	h := newHarness(t, "next")
	a := h.track(t, "a.wav", 8192)
	b := h.track(t, "b.wav", 8192)
	for _, p := range []string{a, b} {
		if err := h.s.Ingest([]string{p}); err != nil {
			t.Fatal(err)
		}
	}
	var removed []string
	h.s.Events.TrackRemoved.Subscribe(func(p string) { removed = append(removed, p) })
	if err := os.Remove(a); err != nil {
		t.Fatal(err)
	}

	h.playToEnd()
	h.s.Tick(time.Millisecond) // finishes b
	h.s.Tick(time.Millisecond) // a fails, b is loaded again

	if len(removed) != 1 || removed[0] != a {
		t.Fatalf("removed = %v, want [%s]", removed, a)
	}
	if tracks := h.list.Tracks(); len(tracks) != 1 || tracks[0] != b {
		t.Fatalf("playlist = %v", tracks)
	}
	if h.s.Stream().Path != b {
		t.Fatalf("playing %s, want %s", h.s.Stream().Path, b)
	}
	if len(h.diags) == 0 || h.diags[len(h.diags)-1].Severity != SeverityError {
		t.Fatalf("diagnostics = %v", h.diags)
	}
}

func TestFrameRateOncePerSecond(t *testing.T) {
	h := newHarness(t, "stop")
	var rates []float64
	h.s.Events.FrameRate.Subscribe(func(r float64) { rates = append(rates, r) })

	for range 50 {
		h.s.Tick(20 * time.Millisecond)
	}
	if len(rates) != 1 || math.Abs(rates[0]-50) > 1e-9 {
		t.Fatalf("rates = %v", rates)
	}
}

func TestCaptureOverflowIsReported(t *testing.T) {
	h := newHarness(t, "stop", func(o *options.Options) { o.CaptureFrames = 100 })
	if err := h.s.Ingest([]string{h.track(t, "half.wav", 16384)}); err != nil {
		t.Fatal(err)
	}
	dropped := func() []string {
		var msgs []string
		for _, d := range h.diags {
			if strings.Contains(d.Message, "dropped") {
				msgs = append(msgs, d.Message)
			}
		}
		return msgs
	}

	// The tap outruns a ring of 100 frames.
	h.pull(400)
	for range 50 {
		h.s.Tick(20 * time.Millisecond)
	}
	msgs := dropped()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "dropped 300 frames") {
		t.Fatalf("warnings = %q", msgs)
	}

	for range 50 {
		h.s.Tick(20 * time.Millisecond)
	}
	if msgs := dropped(); len(msgs) != 1 {
		t.Fatalf("warned again without new drops: %q", msgs)
	}
}

func TestCaptureFailureFallsBackToNone(t *testing.T) {
	opts := options.Default()
	opts.SampleCount = 8
	opts.CaptureSource = "mic"
	dev := gputest.New()
	s, err := NewSession(Config{
		Options:        opts,
		Device:         dev,
		Mixer:          audio.NewMixer(),
		FeedbackSource: testShader,
		DisplaySource:  testShader,
		OpenCapture: func(audio.CaptureSpec, int, int, *audio.FrameRing) (audio.CaptureSource, error) {
			return nil, errors.New("no input device")
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.CaptureSource() != "none" {
		t.Fatalf("capture = %s", s.CaptureSource())
	}
	uploads := len(dev.Uploads)
	s.Tick(time.Millisecond)
	if len(dev.Uploads) != uploads {
		t.Fatal("null capture uploaded an envelope")
	}
}

func TestProgramFailureIsFatal(t *testing.T) {
	dev := gputest.New()
	dev.FailProgram = map[string]error{"display": errors.New("syntax error")}
	_, err := NewSession(Config{
		Options:        options.Default(),
		Device:         dev,
		Mixer:          audio.NewMixer(),
		FeedbackSource: testShader,
		DisplaySource:  testShader,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if p, tg, tx := dev.Live(); p+tg+tx != 0 {
		t.Fatalf("leaked %d programs %d targets %d textures", p, tg, tx)
	}
}
