package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/dancecurve/graphics"
	"github.com/richinsley/dancecurve/inputs"
	"github.com/richinsley/dancecurve/shader"
)

// Params are the per-stream constants of the feedback program.
type Params struct {
	UpdateInterval    float32
	EnvelopeSmoothing float32
	CompressionK      float32
}

// RenderPass pairs a program with the uniforms bound for one draw.
type RenderPass struct {
	Program  *graphics.Program
	Uniforms graphics.Uniforms
}

func resolution(width, height int) mgl32.Vec2 {
	return mgl32.Vec2{float32(width), float32(height)}
}

// feedbackPass builds the invocation that draws into the buffer's current
// write target while sampling the opposite one.
func feedbackPass(p *graphics.Program, buf *inputs.Buffer, env inputs.IChannel, frame uint64, params Params) RenderPass {
	w, h := buf.Resolution()
	u := make(graphics.Uniforms, 0, len(shader.FeedbackUniforms)).
		Vec2(shader.Resolution, resolution(w, h)).
		Int(shader.FrameIndex, int32(frame)).
		Sampler(shader.PriorFeedbackFrame, buf.ReadTarget().Texture).
		Sampler(shader.EnvelopeTexture, env.Texture()).
		Float(shader.UpdateInterval, params.UpdateInterval).
		Float(shader.EnvelopeSmoothing, params.EnvelopeSmoothing).
		Float(shader.CompressionK, params.CompressionK)
	return RenderPass{Program: p, Uniforms: u}
}

func displayPass(p *graphics.Program, latest *graphics.Target, width, height int) RenderPass {
	u := make(graphics.Uniforms, 0, len(shader.DisplayUniforms)).
		Vec2(shader.Resolution, resolution(width, height)).
		Sampler(shader.LatestFeedbackFrame, latest.Texture)
	return RenderPass{Program: p, Uniforms: u}
}
