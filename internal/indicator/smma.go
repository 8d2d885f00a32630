package indicator

import "strconv"

// SMMA is Wilder's smoothed moving average. It is seeded with the simple
// average of the first period values, then
// SMMA = (prev*(period-1) + x) / period.
type SMMA struct {
	period  int
	count   int
	sum     float64
	current float64
}

// NewSMMA creates an SMMA over period values.
func NewSMMA(period int) *SMMA {
	return &SMMA{period: period}
}

func (s *SMMA) Name() string { return "SMMA_" + strconv.Itoa(s.period) }

func (s *SMMA) Update(x float64) {
	s.count++
	if s.count <= s.period {
		s.sum += x
		if s.count == s.period {
			s.current = s.sum / float64(s.period)
		}
		return
	}
	p := float64(s.period)
	s.current = (s.current*(p-1) + x) / p
}

func (s *SMMA) Value() float64 { return s.current }
func (s *SMMA) Ready() bool    { return s.period > 0 && s.count >= s.period }

// Reset clears the state for reuse.
func (s *SMMA) Reset() {
	s.count = 0
	s.sum = 0
	s.current = 0
}
