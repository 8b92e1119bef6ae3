package domain

// PricePoint is one observation of a symbol's mid price.
type PricePoint struct {
	WriteTS string  // "YYYYMMDD_HHMMSS", sorts lexically
	Mid     float64 // mid price in quote units
}

// PriceSeries is a symbol's price sequence for one date, ordered by WriteTS.
// The slice index is the time axis used by the rolling statistics.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// Len returns the number of points in the series.
func (s *PriceSeries) Len() int {
	return len(s.Points)
}

// Ticks returns the series converted to tick units (mid / tickSize).
func (s *PriceSeries) Ticks(tickSize float64) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Mid / tickSize
	}
	return out
}
