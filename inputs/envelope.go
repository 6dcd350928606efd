package inputs

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/richinsley/dancecurve/envelope"
	"github.com/richinsley/dancecurve/graphics"
)

// EnvelopeChannel owns the envelope row on both sides: the CPU buffer and
// the width x 1 texture it is uploaded to.
type EnvelopeChannel struct {
	device  graphics.Device
	buffer  *envelope.Buffer
	texture graphics.Texture
}

// NewEnvelopeChannel allocates the row texture and uploads the initial
// all-zero row.
func NewEnvelopeChannel(device graphics.Device, width int, encoding envelope.Encoding, warn func(string)) (*EnvelopeChannel, error) {
	if width <= 0 {
		return nil, fmt.Errorf("envelope width must be positive, got %d", width)
	}
	tex, err := device.NewRowTexture(width, encoding.Channels())
	if err != nil {
		return nil, fmt.Errorf("envelope texture: %w", err)
	}
	c := &EnvelopeChannel{
		device:  device,
		buffer:  envelope.NewBuffer(width, encoding, warn),
		texture: tex,
	}
	c.upload()
	glog.Infof("Initialized EnvelopeChannel (%d bins, %s).", width, encoding)
	return c, nil
}

// Push rewrites the row from samples and re-uploads it.
func (c *EnvelopeChannel) Push(samples []float32) {
	c.buffer.Push(samples)
	c.upload()
}

func (c *EnvelopeChannel) upload() {
	c.device.UploadRow(c.texture, c.buffer.Width(), c.buffer.Encoding().Channels(), c.buffer.Pixels())
}

// Values returns the current envelope. Callers must not modify it.
func (c *EnvelopeChannel) Values() []float32 { return c.buffer.Values() }

// Buffer exposes the CPU side of the row.
func (c *EnvelopeChannel) Buffer() *envelope.Buffer { return c.buffer }

// Texture implements IChannel.
func (c *EnvelopeChannel) Texture() graphics.Texture { return c.texture }

// Destroy implements IChannel.
func (c *EnvelopeChannel) Destroy() {
	if c.texture != 0 {
		c.device.DeleteTexture(c.texture)
		c.texture = 0
	}
}

var (
	_ IChannel = (*EnvelopeChannel)(nil)
	_ IChannel = (*Buffer)(nil)
)
