package graphics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Texture is a GPU texture handle.
type Texture uint32

// Target is an offscreen render target: a framebuffer with one color texture.
type Target struct {
	FBO     uint32
	Texture Texture
	Width   int
	Height  int
}

// Program is a linked shader program. Locations maps the logical uniform
// names of the contract to their location in the linked program; uniforms
// the shader does not use are absent.
type Program struct {
	ID        uint32
	Name      string
	Locations map[string]int32
}

// Uniform is a single named shader parameter.
type Uniform struct {
	Name  string
	Value any // int32, float32, mgl32.Vec2 or Texture
}

// Uniforms is an ordered parameter set bound before a draw. Texture values
// are assigned texture units in order of appearance.
type Uniforms []Uniform

// Int appends an int uniform.
func (u Uniforms) Int(name string, v int32) Uniforms { return append(u, Uniform{name, v}) }

// Float appends a float uniform.
func (u Uniforms) Float(name string, v float32) Uniforms { return append(u, Uniform{name, v}) }

// Vec2 appends a vec2 uniform.
func (u Uniforms) Vec2(name string, v mgl32.Vec2) Uniforms { return append(u, Uniform{name, v}) }

// Sampler appends a sampler2D uniform bound to tex.
func (u Uniforms) Sampler(name string, tex Texture) Uniforms { return append(u, Uniform{name, tex}) }

// Lookup returns the value bound to name.
func (u Uniforms) Lookup(name string) (any, bool) {
	for _, un := range u {
		if un.Name == name {
			return un.Value, true
		}
	}
	return nil, false
}

// Validate checks that every value has a supported type.
func (u Uniforms) Validate() error {
	for _, un := range u {
		switch un.Value.(type) {
		case int32, float32, mgl32.Vec2, Texture:
		default:
			return fmt.Errorf("uniform %s: unsupported value type %T", un.Name, un.Value)
		}
	}
	return nil
}

// Device is the subset of GPU operations the pipeline needs. All calls are
// made from the render goroutine. Nothing in this interface reads pixel data
// back to the host.
type Device interface {
	// NewProgram compiles and links a fragment program. uniforms lists the
	// logical names whose locations should be resolved.
	NewProgram(name, fragmentSource string, uniforms []string) (*Program, error)
	DeleteProgram(p *Program)

	// NewTarget allocates a float render target cleared to zero.
	NewTarget(width, height int) (*Target, error)
	DeleteTarget(t *Target)

	// NewRowTexture allocates a width x 1 float texture with the given number
	// of components per texel (1 or 4).
	NewRowTexture(width, components int) (Texture, error)
	UploadRow(tex Texture, width, components int, data []float32)
	DeleteTexture(tex Texture)

	// Draw runs p over a full-screen quad into dst, or into the window
	// framebuffer when dst is nil.
	Draw(p *Program, dst *Target, uniforms Uniforms)
}
