package shader

import (
	"strings"
)

// Uniform names of the contract shared with externally supplied programs.
const (
	Resolution          = "resolution"
	FrameIndex          = "frameIndex"
	PriorFeedbackFrame  = "priorFeedbackFrame"
	EnvelopeTexture     = "envelopeTexture"
	UpdateInterval      = "updateInterval"
	EnvelopeSmoothing   = "envelopeSmoothing"
	CompressionK        = "compressionK"
	LatestFeedbackFrame = "latestFeedbackFrame"
)

// FeedbackUniforms are the parameters bound to the feedback program.
var FeedbackUniforms = []string{
	Resolution,
	FrameIndex,
	PriorFeedbackFrame,
	EnvelopeTexture,
	UpdateInterval,
	EnvelopeSmoothing,
	CompressionK,
}

// DisplayUniforms are the parameters bound to the display program.
var DisplayUniforms = []string{
	Resolution,
	LatestFeedbackFrame,
}

// ────────────────────────────────── Desktop GL ──────────────────────────────────

const vertexShaderSourceGL = `#version 410 core
layout (location = 0) in vec2 in_vert;
out vec2 frag_uv;
void main() {
    frag_uv = in_vert * 0.5 + 0.5;
    gl_Position = vec4(in_vert, 0.0, 1.0);
}
`

// ──────────────────────────────────── GLES ──────────────────────────────────────

const vertexShaderSourceGLES = `#version 300 es
layout (location = 0) in vec2 in_vert;
out vec2 frag_uv;
void main() {
    frag_uv = in_vert * 0.5 + 0.5;
    gl_Position = vec4(in_vert, 0.0, 1.0);
}
`

// ────────────────────── Dynamic preamble / user code glue ──────────────────────

const preambleHeader = `#version 300 es
precision highp float;
precision highp int;

`

const preambleFooter = `
in vec2 frag_uv;
out vec4 fragColor;
`

// FeedbackPreamble declares the feedback program's uniforms.
func FeedbackPreamble() string {
	return preambleHeader + `uniform vec2      resolution;
uniform int       frameIndex;
uniform sampler2D priorFeedbackFrame;
uniform sampler2D envelopeTexture;
uniform float     updateInterval;
uniform float     envelopeSmoothing;
uniform float     compressionK;
` + preambleFooter
}

// DisplayPreamble declares the display program's uniforms.
func DisplayPreamble() string {
	return preambleHeader + `uniform vec2      resolution;
uniform sampler2D latestFeedbackFrame;
` + preambleFooter
}

func getMain() string {
	return `
void main(void)
{
    mainImage(fragColor, gl_FragCoord.xy);
}
`
}

// WrapFragment turns user code into a complete WebGL2 fragment program.
// Sources that already carry a #version directive are complete programs and
// are returned unchanged; anything else is treated as a mainImage body and
// gets the preamble and entry point.
func WrapFragment(preamble, user string) string {
	if strings.HasPrefix(strings.TrimSpace(user), "#version") {
		return user
	}
	return preamble + user + getMain()
}

// GenerateVertexShader returns the full-screen quad vertex shader.
func GenerateVertexShader(isGLES bool) string {
	if isGLES {
		return vertexShaderSourceGLES
	}
	return vertexShaderSourceGL
}
