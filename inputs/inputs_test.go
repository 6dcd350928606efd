package inputs

import (
	"errors"
	"testing"

	"github.com/richinsley/dancecurve/envelope"
	"github.com/richinsley/dancecurve/internal/gputest"
)

func TestBufferSelectAlternates(t *testing.T) {
	dev := gputest.New()
	b, err := NewBuffer(dev, 64, 32)
	if err != nil {
		t.Fatal(err)
	}
	for tick := uint64(0); tick < 6; tick++ {
		b.Select(tick)
		if b.WriteIndex() != int(tick%2) {
			t.Fatalf("tick %d: write index %d", tick, b.WriteIndex())
		}
		if b.ReadTarget() == b.WriteTarget() {
			t.Fatalf("tick %d: read and write target are the same", tick)
		}
		if b.Texture() != b.ReadTarget().Texture {
			t.Fatalf("tick %d: Texture() should expose the read target", tick)
		}
	}
	if w, h := b.Resolution(); w != 64 || h != 32 {
		t.Fatalf("resolution = %dx%d", w, h)
	}
	b.Destroy()
	if _, targets, textures := dev.Live(); targets != 0 || textures != 0 {
		t.Fatalf("leaked %d targets, %d textures", targets, textures)
	}
}

func TestBufferFailureReleasesPartialTargets(t *testing.T) {
	dev := gputest.New()
	dev.FailTarget = errors.New("out of memory")
	if _, err := NewBuffer(dev, 8, 8); err == nil {
		t.Fatal("expected error")
	}
	if _, targets, _ := dev.Live(); targets != 0 {
		t.Fatalf("leaked %d targets", targets)
	}
}

func TestEnvelopeChannelUploadsEveryPush(t *testing.T) {
	dev := gputest.New()
	c, err := NewEnvelopeChannel(dev, 4, envelope.EncodingRed, func(string) {})
	if err != nil {
		t.Fatal(err)
	}
	if len(dev.Uploads) != 1 {
		t.Fatalf("initial uploads = %d, want 1", len(dev.Uploads))
	}

	c.Push([]float32{0.1, 0.2, 0.3, 0.4})
	up, _ := dev.LastUpload()
	if up.Texture != c.Texture() || up.Width != 4 || up.Components != 1 {
		t.Fatalf("unexpected upload %+v", up)
	}
	if up.Data[3] != 0.4 {
		t.Fatalf("uploaded data = %v", up.Data)
	}

	c.Push([]float32{0.5})
	up, _ = dev.LastUpload()
	want := []float32{0.5, 0, 0, 0}
	for i := range want {
		if up.Data[i] != want[i] {
			t.Fatalf("padded upload = %v, want %v", up.Data, want)
		}
	}

	c.Destroy()
	if _, _, textures := dev.Live(); textures != 0 {
		t.Fatalf("leaked %d textures", textures)
	}
}

func TestEnvelopeChannelGrayUsesFourComponents(t *testing.T) {
	dev := gputest.New()
	c, err := NewEnvelopeChannel(dev, 2, envelope.EncodingGray, nil)
	if err != nil {
		t.Fatal(err)
	}
	c.Push([]float32{0.25, 0.75})
	up, _ := dev.LastUpload()
	if up.Components != 4 || len(up.Data) != 8 {
		t.Fatalf("gray upload %d components, %d floats", up.Components, len(up.Data))
	}
	if up.Data[4] != 0.75 || up.Data[7] != 1 {
		t.Fatalf("gray texel = %v", up.Data[4:8])
	}
}
