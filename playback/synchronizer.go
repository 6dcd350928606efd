// Package playback keeps the analyzed ("effect") and audible ("real")
// channels of a stream in step.
//
// The effect channel feeds the envelope, which reaches the screen a little
// later than the audio it was computed from. Starting effect fixDelay ahead
// of real lines the picture up with what is heard.
package playback

import (
	"time"

	"github.com/golang/glog"
)

// Channel is one playback channel of the pair.
type Channel interface {
	Play(from time.Duration)
	Stop()
	Playing() bool
	Position() time.Duration
	// Ended reports, once, that the channel played to the end.
	Ended() bool
}

// MixClock reports how far the audio device is from the channel positions.
type MixClock interface {
	// TimeSinceLastMix is how long ago the device last pulled samples.
	TimeSinceLastMix() time.Duration
	// OutputLatency is the audio pulled by the device but not yet heard.
	OutputLatency() time.Duration
}

// Hooks are the outbound notifications of a Synchronizer.
type Hooks struct {
	// Progress receives position/duration in [0,1] once per playing tick.
	Progress func(float64)
	// Finished is called after the finish policy has been applied.
	Finished func()
	// Reload rebuilds the whole pipeline with the current stream and starts
	// it. It is used by FinishLoop.
	Reload func() error
}

// Synchronizer is the playback state machine for one channel pair.
type Synchronizer struct {
	sched    *Scheduler
	mix      MixClock
	fixDelay time.Duration
	policy   FinishPolicy
	hooks    Hooks

	effect Channel
	real   Channel

	state     State
	lastKnown time.Duration
	total     time.Duration
	// startGen identifies the latest Start. Pause and Bind bump it so a
	// deferred real start from an earlier Start never fires.
	startGen uint64
}

// NewSynchronizer creates a synchronizer with no channels bound.
func NewSynchronizer(sched *Scheduler, mix MixClock, fixDelay time.Duration, policy FinishPolicy, hooks Hooks) *Synchronizer {
	return &Synchronizer{
		sched:    sched,
		mix:      mix,
		fixDelay: fixDelay,
		policy:   policy,
		hooks:    hooks,
	}
}

// Bind replaces the channel pair. Pending deferred starts for the previous
// pair are invalidated and the state returns to Stopped.
func (s *Synchronizer) Bind(effect, real Channel, total time.Duration) {
	s.sched.Invalidate()
	if s.effect != nil {
		s.effect.Stop()
	}
	if s.real != nil {
		s.real.Stop()
	}
	s.effect, s.real = effect, real
	s.startGen++
	s.state = Stopped
	s.lastKnown = 0
	s.total = total
}

// Start plays effect now and real fixDelay later.
func (s *Synchronizer) Start() {
	if s.effect == nil || s.real == nil {
		return
	}
	s.lastKnown = 0
	s.state = Playing
	s.effect.Play(0)

	s.startGen++
	gen := s.startGen
	real := s.real
	s.sched.AfterFunc(s.fixDelay, func() {
		if s.state != Playing || s.startGen != gen {
			return
		}
		real.Play(0)
		glog.V(1).Infof("real channel started %v after effect", s.fixDelay)
	})
}

// Pause freezes the position and stops both channels.
func (s *Synchronizer) Pause() {
	if s.state != Playing {
		return
	}
	s.lastKnown = s.livePosition()
	s.startGen++
	s.effect.Stop()
	s.real.Stop()
	s.state = Paused
}

// Resume restarts both channels from the frozen position. It is a no-op
// while real is already playing.
func (s *Synchronizer) Resume() {
	if s.state != Paused || s.real == nil || s.real.Playing() {
		return
	}
	s.effect.Play(max(0, s.lastKnown-s.fixDelay))
	s.real.Play(s.lastKnown)
	s.state = Playing
}

// SetPaused pauses or resumes. Resuming a stopped pair starts it.
func (s *Synchronizer) SetPaused(paused bool) {
	switch {
	case paused:
		s.Pause()
	case s.state == Stopped:
		s.Start()
	default:
		s.Resume()
	}
}

// Update runs once per tick: completion is dispatched first, then progress
// is emitted.
func (s *Synchronizer) Update() {
	if s.state != Playing {
		return
	}
	if s.real.Ended() {
		s.finish()
		return
	}
	if s.total == 0 || !s.real.Playing() {
		return
	}
	s.lastKnown = s.livePosition()
	if s.hooks.Progress != nil {
		s.hooks.Progress(min(1, float64(s.lastKnown)/float64(s.total)))
	}
}

func (s *Synchronizer) finish() {
	s.effect.Stop()
	s.real.Stop()
	s.state = Stopped
	s.lastKnown = s.total

	switch s.policy {
	case FinishStop:
	case FinishLoop:
		if s.hooks.Reload != nil {
			if err := s.hooks.Reload(); err != nil {
				glog.Errorf("loop reload failed: %v", err)
			}
		}
	case FinishNext:
	}
	glog.V(1).Infof("playback finished (policy %s)", s.policy)
	if s.hooks.Finished != nil {
		s.hooks.Finished()
	}
}

// livePosition is the heard position of real. Channel positions run ahead
// by the chunk the device is still playing.
func (s *Synchronizer) livePosition() time.Duration {
	return max(0, s.real.Position()+s.mix.TimeSinceLastMix()-s.mix.OutputLatency())
}

// Position is the live position while real is playing and the frozen one
// otherwise.
func (s *Synchronizer) Position() time.Duration {
	if s.state == Playing && s.real != nil && s.real.Playing() {
		return s.livePosition()
	}
	return s.lastKnown
}

// State is the current playback state.
func (s *Synchronizer) State() State { return s.state }

// Duration is the length of the bound stream, 0 when none is bound.
func (s *Synchronizer) Duration() time.Duration { return s.total }

// Policy is the configured finish policy.
func (s *Synchronizer) Policy() FinishPolicy { return s.policy }

// SetPolicy changes the finish policy for the next completion.
func (s *Synchronizer) SetPolicy(p FinishPolicy) { s.policy = p }
