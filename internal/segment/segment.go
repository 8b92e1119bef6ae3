// Package segment tracks trend segments per symbol with a hysteresis state machine.
//
// A segment opens when the reference window is both efficient (ER above the
// entry threshold) and strong (|TS| above the TS threshold). It closes when
// efficiency decays below the exit threshold, or when TS flips sign while
// weaker than the TS threshold. Closed segments feed exponentially smoothed
// baselines of duration and move size, against which the open segment's
// maturity is measured.
package segment

import (
	"math"

	"trendchop/internal/rolling"
)

const ratioEps = 1e-9

// Thresholds configures segment entry and exit.
type Thresholds struct {
	EREnter float64 // ER_ref must exceed this to open
	ERExit  float64 // ER_ref below this closes
	TSEnter float64 // |TS_ref| must exceed this to open; a reversal weaker than this closes
}

// Transition describes what OnStep did.
type Transition int

const (
	TransitionNone  Transition = iota // reference stats absent, nothing evaluated
	TransitionEnter                   // INACTIVE -> ACTIVE
	TransitionExit                    // ACTIVE -> INACTIVE, EMAs updated
	TransitionHold                    // evaluated, state unchanged
)

// String returns a short name for the transition.
func (t Transition) String() string {
	switch t {
	case TransitionEnter:
		return "enter"
	case TransitionExit:
		return "exit"
	case TransitionHold:
		return "hold"
	default:
		return "none"
	}
}

// State is the per-symbol segment tracker. It is not safe for concurrent use;
// each symbol owns its own State and feeds it indices in ascending order.
type State struct {
	alpha float64

	active     bool
	startIdx   int
	startPrice float64
	dir        int

	emaDur  *float64
	emaMove *float64
	closes  int
}

// New creates an inactive State with EMA smoothing factor alpha.
func New(alpha float64) *State {
	return &State{alpha: alpha}
}

// Active reports whether a segment is open.
func (s *State) Active() bool { return s.active }

// Direction returns the open segment's direction (+1/-1), or 0 when inactive.
func (s *State) Direction() int { return s.dir }

// StartIndex returns the index the open segment started at, or -1 when inactive.
func (s *State) StartIndex() int {
	if !s.active {
		return -1
	}
	return s.startIdx
}

// Closes returns the number of segments closed so far.
func (s *State) Closes() int { return s.closes }

// OnStep advances the machine by one index.
// er and ts are the reference-window statistics at idx; if either is nil the
// step is ignored entirely.
func (s *State) OnStep(idx int, price float64, er, ts *float64, th Thresholds) Transition {
	if er == nil || ts == nil {
		return TransitionNone
	}

	dirNow := rolling.Sign(*ts)

	if !s.active {
		if *er > th.EREnter && math.Abs(*ts) > th.TSEnter {
			s.active = true
			s.startIdx = idx
			s.startPrice = price
			s.dir = dirNow
			return TransitionEnter
		}
		return TransitionHold
	}

	if *er < th.ERExit {
		s.close(idx, price)
		return TransitionExit
	}

	if dirNow != 0 && dirNow != s.dir && math.Abs(*ts) < th.TSEnter {
		s.close(idx, price)
		return TransitionExit
	}

	return TransitionHold
}

func (s *State) close(idx int, price float64) {
	dur := float64(max(1, idx-s.startIdx))
	move := math.Abs(price - s.startPrice)

	s.emaDur = s.smooth(s.emaDur, dur)
	s.emaMove = s.smooth(s.emaMove, move)
	s.closes++

	s.active = false
	s.startIdx = 0
	s.startPrice = 0
	s.dir = 0
}

func (s *State) smooth(cur *float64, x float64) *float64 {
	if cur == nil {
		return &x
	}
	v := (1-s.alpha)*(*cur) + s.alpha*x
	return &v
}

// Maturity describes how far the open segment has run relative to the
// symbol's closed-segment baselines.
type Maturity struct {
	Age       float64  // steps since the segment opened
	AgeRatio  float64  // Age / EMA(duration), 0 without a baseline
	MoveRatio float64  // |price - start| / EMA(move), 0 without a baseline
	Value     float64  // max(AgeRatio, MoveRatio)
	EMADur    *float64 // nil before the first close
	EMAMove   *float64 // nil before the first close
}

// Maturity evaluates the open segment at idx without changing state.
func (s *State) Maturity(idx int, price float64) Maturity {
	m := Maturity{
		EMADur:  copyPtr(s.emaDur),
		EMAMove: copyPtr(s.emaMove),
	}
	if !s.active {
		return m
	}

	m.Age = float64(max(0, idx-s.startIdx))
	move := math.Abs(price - s.startPrice)

	if s.emaDur != nil && *s.emaDur > ratioEps {
		m.AgeRatio = m.Age / *s.emaDur
	}
	if s.emaMove != nil && *s.emaMove > ratioEps {
		m.MoveRatio = move / *s.emaMove
	}
	m.Value = math.Max(m.AgeRatio, m.MoveRatio)

	return m
}

func copyPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
