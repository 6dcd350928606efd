package audio

import (
	"fmt"
	"strings"
)

// CaptureKind selects where analyzed audio comes from.
type CaptureKind int

const (
	// CaptureNone disables envelope updates.
	CaptureNone CaptureKind = iota
	// CaptureEffect taps the delayed analysis playback channel.
	CaptureEffect
	// CaptureMic records the default portaudio input device.
	CaptureMic
	// CaptureFFmpeg records a device through an ffmpeg subprocess.
	CaptureFFmpeg
)

func (k CaptureKind) String() string {
	switch k {
	case CaptureEffect:
		return "effect"
	case CaptureMic:
		return "mic"
	case CaptureFFmpeg:
		return "ffmpeg"
	default:
		return "none"
	}
}

// CaptureSpec is a parsed capture_source setting.
type CaptureSpec struct {
	Kind   CaptureKind
	Format string // ffmpeg input format
	Device string // ffmpeg input device
}

// ParseCaptureSpec parses "effect", "mic", "none" or
// "ffmpeg:<format>:<device>". The device part may itself contain colons
// (avfoundation uses ":0").
func ParseCaptureSpec(s string) (CaptureSpec, error) {
	switch s = strings.TrimSpace(s); s {
	case "effect", "":
		return CaptureSpec{Kind: CaptureEffect}, nil
	case "mic":
		return CaptureSpec{Kind: CaptureMic}, nil
	case "none":
		return CaptureSpec{Kind: CaptureNone}, nil
	}
	if rest, ok := strings.CutPrefix(s, "ffmpeg:"); ok {
		format, device, ok := strings.Cut(rest, ":")
		if !ok || device == "" {
			return CaptureSpec{}, fmt.Errorf("capture source %q: want ffmpeg:<format>:<device>", s)
		}
		return CaptureSpec{Kind: CaptureFFmpeg, Format: format, Device: device}, nil
	}
	return CaptureSpec{}, fmt.Errorf("unknown capture source %q", s)
}

func (c CaptureSpec) String() string {
	if c.Kind == CaptureFFmpeg {
		return fmt.Sprintf("ffmpeg:%s:%s", c.Format, c.Device)
	}
	return c.Kind.String()
}

// OpenCapture creates the source described by spec. effectRing is the ring
// the analysis channel taps into and is only used for CaptureEffect.
func OpenCapture(spec CaptureSpec, sampleRate, ringFrames int, effectRing *FrameRing) (CaptureSource, error) {
	switch spec.Kind {
	case CaptureEffect:
		if effectRing == nil {
			return nil, fmt.Errorf("effect capture has no tap")
		}
		return NewRingSource("effect", effectRing), nil
	case CaptureMic:
		return NewMicrophone(sampleRate, ringFrames)
	case CaptureFFmpeg:
		return NewFFmpegCapture(spec.Format, spec.Device, sampleRate, ringFrames)
	default:
		return NullSource{}, nil
	}
}
