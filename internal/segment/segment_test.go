package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultThresholds = Thresholds{EREnter: 0.35, ERExit: 0.25, TSEnter: 1.0}

func f(v float64) *float64 { return &v }

func TestState_InitiallyInactive(t *testing.T) {
	s := New(0.05)

	assert.False(t, s.Active())
	assert.Equal(t, 0, s.Direction())
	assert.Equal(t, -1, s.StartIndex())

	m := s.Maturity(10, 100)
	assert.Nil(t, m.EMADur)
	assert.Nil(t, m.EMAMove)
	assert.Zero(t, m.Value)
}

func TestState_AbsentStatsNoTransition(t *testing.T) {
	s := New(0.05)

	assert.Equal(t, TransitionNone, s.OnStep(0, 100, nil, f(3), defaultThresholds))
	assert.Equal(t, TransitionNone, s.OnStep(1, 100, f(0.9), nil, defaultThresholds))
	assert.False(t, s.Active())

	// open a segment, then absent stats must not close it even with a "bad" price
	require.Equal(t, TransitionEnter, s.OnStep(2, 100, f(0.9), f(3), defaultThresholds))
	assert.Equal(t, TransitionNone, s.OnStep(3, 50, nil, nil, defaultThresholds))
	assert.True(t, s.Active())
	assert.Equal(t, 0, s.Closes())
}

func TestState_EntryRequiresBothConditions(t *testing.T) {
	tests := []struct {
		name   string
		er, ts float64
		enter  bool
	}{
		{"efficient and strong", 0.5, 2.0, true},
		{"efficient and strong short", 0.5, -2.0, true},
		{"efficient but weak", 0.5, 0.5, false},
		{"strong but noisy", 0.2, 3.0, false},
		{"at ER threshold", 0.35, 3.0, false},
		{"at TS threshold", 0.9, 1.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(0.05)
			tr := s.OnStep(5, 100, f(tt.er), f(tt.ts), defaultThresholds)
			assert.Equal(t, tt.enter, s.Active())
			if tt.enter {
				assert.Equal(t, TransitionEnter, tr)
				assert.NotZero(t, s.Direction())
				assert.Equal(t, 5, s.StartIndex())
			} else {
				assert.Equal(t, TransitionHold, tr)
			}
		})
	}
}

func TestState_DirectionFollowsTS(t *testing.T) {
	up := New(0.05)
	up.OnStep(0, 100, f(0.8), f(2), defaultThresholds)
	assert.Equal(t, 1, up.Direction())

	down := New(0.05)
	down.OnStep(0, 100, f(0.8), f(-2), defaultThresholds)
	assert.Equal(t, -1, down.Direction())
}

func TestState_ExitOnERDecay(t *testing.T) {
	s := New(0.05)
	s.OnStep(10, 100, f(0.8), f(2), defaultThresholds)

	// between exit and enter thresholds: hysteresis keeps it open
	assert.Equal(t, TransitionHold, s.OnStep(11, 101, f(0.3), f(2), defaultThresholds))
	assert.True(t, s.Active())

	assert.Equal(t, TransitionExit, s.OnStep(40, 112, f(0.2), f(2), defaultThresholds))
	assert.False(t, s.Active())
	assert.Equal(t, 0, s.Direction())
	assert.Equal(t, 1, s.Closes())

	m := s.Maturity(41, 112)
	require.NotNil(t, m.EMADur)
	require.NotNil(t, m.EMAMove)
	assert.Equal(t, 30.0, *m.EMADur, "first close initialises the EMA")
	assert.Equal(t, 12.0, *m.EMAMove)
	assert.Zero(t, m.Age)
	assert.Zero(t, m.Value)
}

func TestState_ExitOnWeakReversal(t *testing.T) {
	s := New(0.05)
	s.OnStep(0, 100, f(0.8), f(2), defaultThresholds)

	// reversal but still strong: hold
	assert.Equal(t, TransitionHold, s.OnStep(1, 99, f(0.6), f(-1.5), defaultThresholds))
	// same direction but weak: hold
	assert.Equal(t, TransitionHold, s.OnStep(2, 99, f(0.6), f(0.5), defaultThresholds))
	// zero TS is not a reversal
	assert.Equal(t, TransitionHold, s.OnStep(3, 99, f(0.6), f(0), defaultThresholds))
	assert.True(t, s.Active())

	// reversal and weak: close
	assert.Equal(t, TransitionExit, s.OnStep(4, 97, f(0.6), f(-0.5), defaultThresholds))
	assert.False(t, s.Active())

	m := s.Maturity(4, 97)
	assert.Equal(t, 4.0, *m.EMADur)
	assert.Equal(t, 3.0, *m.EMAMove)
}

func TestState_ZeroLengthSegmentCountsAsOneStep(t *testing.T) {
	s := New(0.5)
	s.OnStep(7, 100, f(0.8), f(2), defaultThresholds)
	s.OnStep(7, 100, f(0.1), f(2), defaultThresholds)

	m := s.Maturity(7, 100)
	require.NotNil(t, m.EMADur)
	assert.Equal(t, 1.0, *m.EMADur)
	assert.Equal(t, 0.0, *m.EMAMove)
}

func TestState_EMASmoothing(t *testing.T) {
	s := New(0.25)

	// segment 1: 10 steps, 4 ticks
	s.OnStep(0, 100, f(0.8), f(2), defaultThresholds)
	s.OnStep(10, 104, f(0.1), f(2), defaultThresholds)
	// segment 2: 20 steps, 12 ticks
	s.OnStep(20, 104, f(0.8), f(-2), defaultThresholds)
	s.OnStep(40, 92, f(0.1), f(-2), defaultThresholds)

	require.Equal(t, 2, s.Closes())
	m := s.Maturity(41, 92)
	assert.InDelta(t, 0.75*10+0.25*20, *m.EMADur, 1e-12)
	assert.InDelta(t, 0.75*4+0.25*12, *m.EMAMove, 1e-12)
}

func TestState_MaturityRatios(t *testing.T) {
	s := New(0.05)
	// baseline: 10 steps, 5 ticks
	s.OnStep(0, 100, f(0.8), f(2), defaultThresholds)
	s.OnStep(10, 105, f(0.1), f(2), defaultThresholds)

	s.OnStep(20, 105, f(0.8), f(2), defaultThresholds)
	require.True(t, s.Active())

	m := s.Maturity(25, 110)
	assert.Equal(t, 5.0, m.Age)
	assert.InDelta(t, 0.5, m.AgeRatio, 1e-12)
	assert.InDelta(t, 1.0, m.MoveRatio, 1e-12)
	assert.InDelta(t, 1.0, m.Value, 1e-12)

	// read-only: repeated queries do not move anything
	again := s.Maturity(25, 110)
	assert.Equal(t, m, again)
	assert.Equal(t, 1, s.Closes())
}

func TestState_MaturityWithoutBaseline(t *testing.T) {
	s := New(0.05)
	s.OnStep(0, 100, f(0.8), f(2), defaultThresholds)

	m := s.Maturity(50, 140)
	assert.Equal(t, 50.0, m.Age)
	assert.Zero(t, m.AgeRatio)
	assert.Zero(t, m.MoveRatio)
	assert.Zero(t, m.Value)
	assert.Nil(t, m.EMADur)
}

func TestState_DirectionNonZeroWhileActive(t *testing.T) {
	s := New(0.1)
	ers := []float64{0.1, 0.5, 0.6, 0.3, 0.2, 0.7, 0.9, 0.4, 0.1, 0.8}
	tss := []float64{0.2, 1.5, -2, 0.5, 3, -1.2, -2.5, 0.3, 0, 4}

	for i := range ers {
		s.OnStep(i, float64(100+i), f(ers[i]), f(tss[i]), defaultThresholds)
		if s.Active() {
			assert.NotZero(t, s.Direction(), "step %d", i)
		} else {
			assert.Zero(t, s.Direction(), "step %d", i)
		}
	}
}

func TestTransition_String(t *testing.T) {
	assert.Equal(t, "none", TransitionNone.String())
	assert.Equal(t, "enter", TransitionEnter.String())
	assert.Equal(t, "exit", TransitionExit.String())
	assert.Equal(t, "hold", TransitionHold.String())
}
