package indicator

import "strconv"

// DefaultRSIPeriod is the conventional Wilder RSI lookback.
const DefaultRSIPeriod = 14

// RSI is the Relative Strength Index with Wilder smoothing of average
// gains and losses. Update is O(1) per close.
type RSI struct {
	period    int
	started   bool
	prevClose float64
	gains     *SMMA
	losses    *SMMA
}

// NewRSI creates an RSI over period price changes (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  NewSMMA(period),
		losses: NewSMMA(period),
	}
}

func (r *RSI) Name() string { return "RSI_" + strconv.Itoa(r.period) }

func (r *RSI) Update(price float64) {
	if !r.started {
		// no delta on the first close
		r.started = true
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.gains.Update(gain)
	r.losses.Update(loss)
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	avgLoss := r.losses.Value()
	if avgLoss == 0 {
		return 100.0
	}
	rs := r.gains.Value() / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Ready() bool { return r.gains.Ready() }

// ComputeRSI returns Wilder's RSI of closes. The first period entries are
// absent; every entry is absent when period <= 0.
func ComputeRSI(closes []float64, period int) Series {
	if period <= 0 {
		return absent(len(closes))
	}
	return run(NewRSI(period), closes)
}
