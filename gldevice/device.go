// Package gldevice implements graphics.Device on OpenGL 4.1 core (or GLES 3).
package gldevice

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/glog"
	"github.com/richinsley/dancecurve/graphics"
	"github.com/richinsley/dancecurve/shader"
	xlate "github.com/richinsley/dancecurve/translator"
	gst "github.com/richinsley/goshadertranslator"
)

var glInitOnce sync.Once

var quadVertices = []float32{
	-1.0, 1.0, -1.0, -1.0, 1.0, -1.0,
	-1.0, 1.0, 1.0, -1.0, 1.0, 1.0,
}

// Device owns the full-screen quad and issues every GL call of the pipeline.
// The GL context must be current on the calling thread.
type Device struct {
	quadVAO       uint32
	quadVBO       uint32
	isGLES        bool
	displayWidth  int
	displayHeight int
}

// New loads the GL entry points and builds the quad geometry.
func New(isGLES bool) (*Device, error) {
	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}

	d := &Device{isGLES: isGLES}
	gl.GenVertexArrays(1, &d.quadVAO)
	gl.GenBuffers(1, &d.quadVBO)
	gl.BindVertexArray(d.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	glog.Infof("OpenGL initialized: %s", gl.GoStr(gl.GetString(gl.VERSION)))
	return d, nil
}

// SetDisplaySize sets the viewport used when drawing to the window.
func (d *Device) SetDisplaySize(width, height int) {
	d.displayWidth = width
	d.displayHeight = height
}

// Destroy releases the quad geometry.
func (d *Device) Destroy() {
	gl.DeleteBuffers(1, &d.quadVBO)
	gl.DeleteVertexArrays(1, &d.quadVAO)
}

// NewProgram translates a WebGL2 fragment source for this context, links it
// with the quad vertex shader and resolves the requested uniforms.
func (d *Device) NewProgram(name, fragmentSource string, uniforms []string) (*graphics.Program, error) {
	outputFormat := gst.OutputFormatGLSL410
	if d.isGLES {
		outputFormat = gst.OutputFormatESSL
	}
	translator, err := xlate.GetTranslator()
	if err != nil {
		return nil, err
	}
	fsShader, err := translator.TranslateShader(fragmentSource, "fragment", gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return nil, fmt.Errorf("%s: fragment shader translation failed: %w", name, err)
	}

	id, err := newProgram(shader.GenerateVertexShader(d.isGLES), fsShader.Code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create shader program: %w", name, err)
	}

	p := &graphics.Program{
		ID:        id,
		Name:      name,
		Locations: make(map[string]int32, len(uniforms)),
	}
	gl.UseProgram(id)
	for _, u := range uniforms {
		v, ok := fsShader.Variables[u]
		if !ok {
			glog.V(1).Infof("%s: uniform %s is not used by the program", name, u)
			continue
		}
		loc := gl.GetUniformLocation(id, gl.Str(v.MappedName+"\x00"))
		if loc >= 0 {
			p.Locations[u] = loc
		}
	}
	gl.UseProgram(0)
	return p, nil
}

// DeleteProgram frees a linked program.
func (d *Device) DeleteProgram(p *graphics.Program) {
	if p != nil && p.ID != 0 {
		gl.DeleteProgram(p.ID)
		p.ID = 0
	}
}

// NewTarget creates a framebuffer backed by an RGBA32F texture. Floating point
// keeps accumulated feedback from quantizing frame over frame.
func (d *Device) NewTarget(width, height int) (*graphics.Target, error) {
	var fbo, texture uint32
	gl.GenTextures(1, &texture)
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, texture, 0)

	if gl.CheckFramebufferStatus(gl.FRAMEBUFFER) != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.DeleteFramebuffers(1, &fbo)
		gl.DeleteTextures(1, &texture)
		return nil, fmt.Errorf("framebuffer %dx%d is not complete", width, height)
	}

	// Start from the defined all-zero state.
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return &graphics.Target{
		FBO:     fbo,
		Texture: graphics.Texture(texture),
		Width:   width,
		Height:  height,
	}, nil
}

// DeleteTarget frees the framebuffer and its texture.
func (d *Device) DeleteTarget(t *graphics.Target) {
	if t == nil {
		return
	}
	tex := uint32(t.Texture)
	gl.DeleteFramebuffers(1, &t.FBO)
	gl.DeleteTextures(1, &tex)
	t.FBO, t.Texture = 0, 0
}

func rowFormat(components int) (int32, uint32, error) {
	switch components {
	case 1:
		return gl.R32F, gl.RED, nil
	case 4:
		return gl.RGBA32F, gl.RGBA, nil
	default:
		return 0, 0, fmt.Errorf("unsupported row texture components: %d", components)
	}
}

// NewRowTexture allocates a width x 1 float texture sampled with nearest
// filtering so each texel maps to exactly one envelope bin.
func (d *Device) NewRowTexture(width, components int) (graphics.Texture, error) {
	internalFormat, format, err := rowFormat(components)
	if err != nil {
		return 0, err
	}
	var texture uint32
	gl.GenTextures(1, &texture)
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, int32(width), 1, 0, format, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return graphics.Texture(texture), nil
}

// UploadRow replaces the whole row.
func (d *Device) UploadRow(tex graphics.Texture, width, components int, data []float32) {
	_, format, err := rowFormat(components)
	if err != nil || len(data) < width*components {
		glog.Errorf("UploadRow: bad row (%d texels x %d components, %d floats)", width, components, len(data))
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), 1, format, gl.FLOAT, gl.Ptr(data))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// DeleteTexture frees a texture.
func (d *Device) DeleteTexture(tex graphics.Texture) {
	t := uint32(tex)
	gl.DeleteTextures(1, &t)
}

// Draw renders the quad with p into dst (or the window when dst is nil).
func (d *Device) Draw(p *graphics.Program, dst *graphics.Target, uniforms graphics.Uniforms) {
	width, height := d.displayWidth, d.displayHeight
	if dst != nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, dst.FBO)
		width, height = dst.Width, dst.Height
	} else {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	}

	gl.UseProgram(p.ID)
	units := bindUniforms(p, uniforms)
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)

	for unit := uint32(0); unit < units; unit++ {
		gl.ActiveTexture(gl.TEXTURE0 + unit)
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// bindUniforms sets every uniform the program uses and returns the number of
// texture units it bound.
func bindUniforms(p *graphics.Program, uniforms graphics.Uniforms) uint32 {
	var unit uint32
	for _, u := range uniforms {
		loc, ok := p.Locations[u.Name]
		switch v := u.Value.(type) {
		case int32:
			if ok {
				gl.Uniform1i(loc, v)
			}
		case float32:
			if ok {
				gl.Uniform1f(loc, v)
			}
		case mgl32.Vec2:
			if ok {
				gl.Uniform2f(loc, v[0], v[1])
			}
		case graphics.Texture:
			// Textures always consume a unit so unit numbering is stable
			// whether or not the shader samples them.
			gl.ActiveTexture(gl.TEXTURE0 + unit)
			gl.BindTexture(gl.TEXTURE_2D, uint32(v))
			if ok {
				gl.Uniform1i(loc, int32(unit))
			}
			unit++
		default:
			glog.Warningf("%s: uniform %s has unsupported type %T", p.Name, u.Name, u.Value)
		}
	}
	return unit
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", log)
	}

	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile shader: %v", logText)
	}
	return shader, nil
}

var _ graphics.Device = (*Device)(nil)
