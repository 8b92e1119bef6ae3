package rolling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, step float64) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = 1000 + float64(i)*step
	}
	return p
}

func flat(n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = 25_000
	}
	return p
}

func TestEfficiencyRatio_InsufficientHistory(t *testing.T) {
	p := ramp(10, 1)

	for i := 0; i < 5; i++ {
		assert.Nil(t, EfficiencyRatio(p, i, 5), "index %d", i)
	}
	assert.NotNil(t, EfficiencyRatio(p, 5, 5))
	assert.Nil(t, EfficiencyRatio(p, 10, 5), "index past end")
	assert.Nil(t, EfficiencyRatio(p, 5, 0), "zero window")
}

func TestEfficiencyRatio_Monotone(t *testing.T) {
	for _, step := range []float64{1, -1, 0.5, -3} {
		p := ramp(50, step)
		for i := 10; i < len(p); i++ {
			er := EfficiencyRatio(p, i, 10)
			require.NotNil(t, er)
			assert.InDelta(t, 1.0, *er, 1e-12, "step %v index %d", step, i)
		}
	}
}

func TestEfficiencyRatio_ZeroNetDisplacement(t *testing.T) {
	// up 3, down 3: returns to the starting price
	p := []float64{10, 11, 12, 13, 12, 11, 10}

	er := EfficiencyRatio(p, 6, 6)
	require.NotNil(t, er)
	assert.Equal(t, 0.0, *er)
}

func TestEfficiencyRatio_FlatIsZero(t *testing.T) {
	p := flat(20)

	er := EfficiencyRatio(p, 19, 10)
	require.NotNil(t, er)
	assert.Equal(t, 0.0, *er)
}

func TestEfficiencyRatio_Bounds(t *testing.T) {
	// deterministic zig-zag with drift
	p := make([]float64, 400)
	for i := range p {
		p[i] = float64(i%7) - float64(i%3)*1.5 + float64(i)*0.01
	}

	for _, n := range []int{1, 5, 30, 120} {
		for i := n; i < len(p); i++ {
			er := EfficiencyRatio(p, i, n)
			require.NotNil(t, er)
			assert.GreaterOrEqual(t, *er, 0.0)
			assert.LessOrEqual(t, *er, 1.0)
		}
	}
}

func TestEfficiencyRatio_MonotoneRoundingCapped(t *testing.T) {
	// strictly increasing, but the summed steps round to a ulp below the net move
	p := []float64{
		-0.00010872477595865848,
		0.0006256769159353193,
		0.0014154245533970825,
		0.0017773109353583132,
	}

	er := EfficiencyRatio(p, 3, 3)
	require.NotNil(t, er)
	assert.Equal(t, 1.0, *er)
}

func TestEfficiencyRatio_Partial(t *testing.T) {
	// net 2, path 1+1+1+1 = 4
	p := []float64{0, 1, 2, 1, 2}

	er := EfficiencyRatio(p, 4, 4)
	require.NotNil(t, er)
	assert.InDelta(t, 0.5, *er, 1e-12)
}

func TestTStat_FlatIsZero(t *testing.T) {
	p := flat(500)

	for i := 120; i < len(p); i++ {
		ts := TStat(p, i, 120)
		require.NotNil(t, ts)
		assert.Equal(t, 0.0, *ts)
	}
}

func TestTStat_ConstantStepIsZero(t *testing.T) {
	// every step identical: zero deviation, reported as 0 rather than +Inf
	p := ramp(50, 1)

	ts := TStat(p, 40, 20)
	require.NotNil(t, ts)
	assert.Equal(t, 0.0, *ts)
}

func TestTStat_KnownValue(t *testing.T) {
	// diffs: 1, 2, 3 -> mean 2, sample sd 1, ts = 2*sqrt(3)/1
	p := []float64{0, 1, 3, 6}

	ts := TStat(p, 3, 3)
	require.NotNil(t, ts)
	assert.InDelta(t, 2*math.Sqrt(3), *ts, 1e-12)
}

func TestTStat_SingleStepWindow(t *testing.T) {
	// n=1: denominator floor of 1, single diff has zero deviation
	p := []float64{0, 5}

	ts := TStat(p, 1, 1)
	require.NotNil(t, ts)
	assert.Equal(t, 0.0, *ts)
}

func TestTStat_Sign(t *testing.T) {
	up := []float64{0, 1, 3, 4, 6, 7, 9}
	down := make([]float64, len(up))
	for i, v := range up {
		down[i] = -v
	}

	tsUp := TStat(up, 6, 6)
	tsDown := TStat(down, 6, 6)
	require.NotNil(t, tsUp)
	require.NotNil(t, tsDown)
	assert.Greater(t, *tsUp, 0.0)
	assert.Less(t, *tsDown, 0.0)
	assert.InDelta(t, *tsUp, -*tsDown, 1e-12)
}

func TestTStat_InsufficientHistory(t *testing.T) {
	p := ramp(10, 1)

	assert.Nil(t, TStat(p, 2, 3))
	assert.NotNil(t, TStat(p, 3, 3))
	assert.Nil(t, TStat(p, 3, -1))
}

func TestCompute_OrdersWindows(t *testing.T) {
	p := ramp(200, 1)

	stats := Compute(p, 100, []int{300, 30, 120})
	require.Len(t, stats, 3)
	assert.Equal(t, 30, stats[0].Window)
	assert.Equal(t, 120, stats[1].Window)
	assert.Equal(t, 300, stats[2].Window)

	assert.NotNil(t, stats[0].ER)
	assert.Nil(t, stats[1].ER, "120 needs index >= 120")
	assert.Nil(t, stats[2].TS)
}

func TestSign(t *testing.T) {
	assert.Equal(t, 1, Sign(0.1))
	assert.Equal(t, -1, Sign(-3))
	assert.Equal(t, 0, Sign(0))
}
