// Package gputest provides an in-memory graphics.Device that records calls.
package gputest

import (
	"fmt"

	"github.com/richinsley/dancecurve/graphics"
)

// DrawCall is one recorded Draw.
type DrawCall struct {
	Program  string
	Dst      *graphics.Target // nil for the window
	Uniforms graphics.Uniforms
}

// Upload is one recorded UploadRow.
type Upload struct {
	Texture    graphics.Texture
	Width      int
	Components int
	Data       []float32
}

// Device records every call. Fail* fields inject errors.
type Device struct {
	FailProgram map[string]error
	FailTarget  error
	FailTexture error

	Draws   []DrawCall
	Uploads []Upload

	next     uint32
	programs map[uint32]bool
	targets  map[uint32]bool
	textures map[graphics.Texture]bool
}

// New returns an empty fake device.
func New() *Device {
	return &Device{
		programs: map[uint32]bool{},
		targets:  map[uint32]bool{},
		textures: map[graphics.Texture]bool{},
	}
}

func (d *Device) id() uint32 {
	d.next++
	return d.next
}

func (d *Device) NewProgram(name, fragmentSource string, uniforms []string) (*graphics.Program, error) {
	if err := d.FailProgram[name]; err != nil {
		return nil, err
	}
	if fragmentSource == "" {
		return nil, fmt.Errorf("%s: empty source", name)
	}
	p := &graphics.Program{ID: d.id(), Name: name, Locations: map[string]int32{}}
	for i, u := range uniforms {
		p.Locations[u] = int32(i)
	}
	d.programs[p.ID] = true
	return p, nil
}

func (d *Device) DeleteProgram(p *graphics.Program) {
	delete(d.programs, p.ID)
}

func (d *Device) NewTarget(width, height int) (*graphics.Target, error) {
	if d.FailTarget != nil {
		return nil, d.FailTarget
	}
	t := &graphics.Target{FBO: d.id(), Width: width, Height: height}
	t.Texture = graphics.Texture(d.id())
	d.targets[t.FBO] = true
	d.textures[t.Texture] = true
	return t, nil
}

func (d *Device) DeleteTarget(t *graphics.Target) {
	delete(d.targets, t.FBO)
	delete(d.textures, t.Texture)
}

func (d *Device) NewRowTexture(width, components int) (graphics.Texture, error) {
	if d.FailTexture != nil {
		return 0, d.FailTexture
	}
	tex := graphics.Texture(d.id())
	d.textures[tex] = true
	return tex, nil
}

func (d *Device) UploadRow(tex graphics.Texture, width, components int, data []float32) {
	d.Uploads = append(d.Uploads, Upload{
		Texture:    tex,
		Width:      width,
		Components: components,
		Data:       append([]float32(nil), data...),
	})
}

func (d *Device) DeleteTexture(tex graphics.Texture) {
	delete(d.textures, tex)
}

func (d *Device) Draw(p *graphics.Program, dst *graphics.Target, uniforms graphics.Uniforms) {
	d.Draws = append(d.Draws, DrawCall{
		Program:  p.Name,
		Dst:      dst,
		Uniforms: append(graphics.Uniforms(nil), uniforms...),
	})
}

// Live reports how many programs, targets and textures are still allocated.
func (d *Device) Live() (programs, targets, textures int) {
	return len(d.programs), len(d.targets), len(d.textures)
}

// LastUpload returns the most recent upload, if any.
func (d *Device) LastUpload() (Upload, bool) {
	if len(d.Uploads) == 0 {
		return Upload{}, false
	}
	return d.Uploads[len(d.Uploads)-1], true
}

var _ graphics.Device = (*Device)(nil)
