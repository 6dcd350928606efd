package session

import (
	"fmt"

	"github.com/richinsley/dancecurve/notify"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Diagnostic is a non-fatal problem reported to observers.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Level summarizes the envelope just pushed.
type Level struct {
	Peak float64 `json:"peak"` // largest absolute bin value
	Mean float64 `json:"mean"`
}

// Events are the session's outbound notifications. All of them are
// published on the render goroutine.
type Events struct {
	Progress     notify.Hub[float64]    // position / duration in [0,1]
	FrameRate    notify.Hub[float64]    // frames per second, once per second
	Level        notify.Hub[Level]      // after every envelope update
	Finished     notify.Hub[string]     // path of the track that finished
	TrackAdded   notify.Hub[string]     // playlist additions
	TrackRemoved notify.Hub[string]     // playlist removals
	Diagnostic   notify.Hub[Diagnostic] // warnings and errors
}
