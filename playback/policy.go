package playback

import (
	"fmt"
	"strings"
)

// FinishPolicy is consulted once when the real channel plays to its end.
type FinishPolicy int

const (
	// FinishStop leaves both channels stopped.
	FinishStop FinishPolicy = iota
	// FinishLoop reloads the pipeline with the same stream and restarts it.
	FinishLoop
	// FinishNext leaves track selection to whoever listens for Finished.
	FinishNext
)

// ParseFinishPolicy parses "stop", "loop" or "next".
func ParseFinishPolicy(s string) (FinishPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stop", "":
		return FinishStop, nil
	case "loop":
		return FinishLoop, nil
	case "next":
		return FinishNext, nil
	default:
		return FinishStop, fmt.Errorf("unknown finish policy %q", s)
	}
}

func (p FinishPolicy) String() string {
	switch p {
	case FinishStop:
		return "stop"
	case FinishLoop:
		return "loop"
	case FinishNext:
		return "next"
	default:
		return fmt.Sprintf("FinishPolicy(%d)", int(p))
	}
}

// State is the synchronizer's playback state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
