package indicator

import "strconv"

// Default windows used by the crossover strategy.
const (
	ShortWindow = 50
	LongWindow  = 100
)

// SMA calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer and a running sum, so Update is O(1).
type SMA struct {
	period  int
	buf     []float64 // preallocated circular buffer
	idx     int       // current write position
	count   int       // total values received
	sum     float64
	current float64
}

// NewSMA creates a new SMA indicator with the given period.
// period must be positive.
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Name() string { return "SMA_" + strconv.Itoa(s.period) }

func (s *SMA) Update(price float64) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = price
	s.sum += price
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.count >= s.period }

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.idx = 0
	s.count = 0
	s.sum = 0
	s.current = 0
	for i := range s.buf {
		s.buf[i] = 0
	}
}

// ComputeSMA returns the simple moving average of closes over window.
// The result has the same length as closes. Entries 0..window-2 are absent;
// every entry is absent when window <= 0 or len(closes) < window.
func ComputeSMA(closes []float64, window int) Series {
	if window <= 0 || len(closes) < window {
		return absent(len(closes))
	}
	return run(NewSMA(window), closes)
}
