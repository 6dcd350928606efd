package renderer

import "github.com/richinsley/dancecurve/graphics"

// Compositor draws the latest feedback frame to the window.
type Compositor struct {
	device  graphics.Device
	program *graphics.Program
}

// NewCompositor uses program as the display program. It is not owned.
func NewCompositor(device graphics.Device, program *graphics.Program) *Compositor {
	return &Compositor{device: device, program: program}
}

// Composite draws latest into the window framebuffer of the given size.
func (c *Compositor) Composite(latest *graphics.Target, width, height int) {
	pass := displayPass(c.program, latest, width, height)
	c.device.Draw(pass.Program, nil, pass.Uniforms)
}
