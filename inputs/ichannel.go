package inputs

import "github.com/richinsley/dancecurve/graphics"

// IChannel is a texture input bound to a feedback or display program.
type IChannel interface {
	// Texture returns the texture that should be bound this tick.
	Texture() graphics.Texture

	// Destroy releases any GPU resources held by the channel.
	Destroy()
}
