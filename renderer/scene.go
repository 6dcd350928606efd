package renderer

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/richinsley/dancecurve/envelope"
	"github.com/richinsley/dancecurve/inputs"
)

// Scene holds the GPU resources bound to one stream: the envelope row and
// the feedback target pair. It is created whole on every reload and torn
// down whole when replaced.
type Scene struct {
	Title    string
	Envelope *inputs.EnvelopeChannel
	Feedback *Feedback
}

// Destroy releases every resource of the scene. It is safe on a partially
// built scene.
func (s *Scene) Destroy() {
	if s == nil {
		return
	}
	glog.Infof("Destroying scene: %s", s.Title)
	if s.Feedback != nil {
		s.Feedback.Destroy()
		s.Feedback = nil
	}
	if s.Envelope != nil {
		s.Envelope.Destroy()
		s.Envelope = nil
	}
}

// SceneConfig describes the per-stream resources.
type SceneConfig struct {
	Title       string
	SampleCount int
	Encoding    envelope.Encoding
	Warn        func(string)
}

// LoadScene allocates a new scene. Either the full scene is returned or
// nothing is left allocated.
func (r *Renderer) LoadScene(cfg SceneConfig) (*Scene, error) {
	scene := &Scene{Title: cfg.Title}

	env, err := inputs.NewEnvelopeChannel(r.device, cfg.SampleCount, cfg.Encoding, cfg.Warn)
	if err != nil {
		scene.Destroy()
		return nil, fmt.Errorf("failed to create envelope channel: %w", err)
	}
	scene.Envelope = env

	buf, err := inputs.NewBuffer(r.device, r.width, r.height)
	if err != nil {
		scene.Destroy()
		return nil, fmt.Errorf("failed to create feedback buffer: %w", err)
	}
	scene.Feedback = NewFeedback(r.device, r.feedbackProgram, buf, r.params)

	glog.Infof("Successfully loaded scene: %s", scene.Title)
	return scene, nil
}
