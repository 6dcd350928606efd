package renderer

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/richinsley/dancecurve/graphics"
	"github.com/richinsley/dancecurve/shader"
)

// Renderer owns the two programs, which are compiled once and shared by every
// scene, and the compositor that presents the feedback result.
type Renderer struct {
	device          graphics.Device
	feedbackProgram *graphics.Program
	displayProgram  *graphics.Program
	compositor      *Compositor
	width           int
	height          int
	params          Params
}

// Config holds the program sources and render target geometry.
type Config struct {
	FeedbackSource string
	DisplaySource  string
	Width          int
	Height         int
	Params         Params
}

// NewRenderer compiles the feedback and display programs. An error here is
// fatal to the caller: there is no fallback program.
func NewRenderer(device graphics.Device, cfg Config) (*Renderer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid render size %dx%d", cfg.Width, cfg.Height)
	}
	r := &Renderer{
		device: device,
		width:  cfg.Width,
		height: cfg.Height,
		params: cfg.Params,
	}

	var err error
	r.feedbackProgram, err = device.NewProgram("feedback",
		shader.WrapFragment(shader.FeedbackPreamble(), cfg.FeedbackSource), shader.FeedbackUniforms)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback program: %w", err)
	}
	r.displayProgram, err = device.NewProgram("display",
		shader.WrapFragment(shader.DisplayPreamble(), cfg.DisplaySource), shader.DisplayUniforms)
	if err != nil {
		device.DeleteProgram(r.feedbackProgram)
		return nil, fmt.Errorf("failed to load display program: %w", err)
	}
	r.compositor = NewCompositor(device, r.displayProgram)

	glog.Infof("Renderer ready: %dx%d feedback targets", r.width, r.height)
	return r, nil
}

// RenderFrame runs the feedback pass for the scene and composites the
// result to a window of the given size. It returns the written target index.
func (r *Renderer) RenderFrame(scene *Scene, displayWidth, displayHeight int) int {
	w := scene.Feedback.Render(scene.Envelope)
	r.compositor.Composite(scene.Feedback.Latest(), displayWidth, displayHeight)
	return w
}

// Size is the feedback target resolution.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Shutdown deletes both programs. Scenes must be destroyed separately.
func (r *Renderer) Shutdown() {
	r.device.DeleteProgram(r.feedbackProgram)
	r.device.DeleteProgram(r.displayProgram)
}
