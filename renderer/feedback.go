package renderer

import (
	"github.com/golang/glog"
	"github.com/richinsley/dancecurve/graphics"
	"github.com/richinsley/dancecurve/inputs"
)

// Feedback drives the double-buffered feedback loop for one stream. On tick
// t it draws into target t%2 while sampling target 1-t%2, so the previous
// result is read on the GPU and never copied back to the host.
type Feedback struct {
	device  graphics.Device
	program *graphics.Program
	buffer  *inputs.Buffer
	params  Params

	tick   uint64
	latest *graphics.Target
}

// NewFeedback wraps buf. The program is shared and not owned; the buffer is.
func NewFeedback(device graphics.Device, program *graphics.Program, buf *inputs.Buffer, params Params) *Feedback {
	return &Feedback{
		device:  device,
		program: program,
		buffer:  buf,
		params:  params,
	}
}

// Render runs one feedback pass with the given envelope texture and returns
// the index of the target that was written.
func (f *Feedback) Render(env inputs.IChannel) int {
	f.buffer.Select(f.tick)
	pass := feedbackPass(f.program, f.buffer, env, f.tick, f.params)
	f.device.Draw(pass.Program, f.buffer.WriteTarget(), pass.Uniforms)

	if glog.V(3) {
		glog.Infof("feedback tick %d: wrote %d, read %d", f.tick, f.buffer.WriteIndex(), f.buffer.ReadIndex())
	}

	f.latest = f.buffer.WriteTarget()
	f.tick++
	return f.buffer.WriteIndex()
}

// Latest is the target written by the most recent Render. Before the first
// render it is target 0, which is still all zero.
func (f *Feedback) Latest() *graphics.Target {
	if f.latest == nil {
		return f.buffer.Target(0)
	}
	return f.latest
}

// Tick is the number of completed renders since the feedback was created.
func (f *Feedback) Tick() uint64 { return f.tick }

// Buffer exposes the target pair.
func (f *Feedback) Buffer() *inputs.Buffer { return f.buffer }

// Destroy frees the target pair.
func (f *Feedback) Destroy() {
	f.buffer.Destroy()
	f.latest = nil
}
