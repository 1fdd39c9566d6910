package sosso

// Correction calculates drift correction for a channel, relative to another
// channel if required. Usually the playback channel is corrected relative
// to the recording channel, if in use.
//
// It keeps a correction parameter in frames, plus the thresholds that
// determine how correction is applied. Small drift is corrected gradually,
// steering toward a moving average of the observed offset, which typically
// goes unnoticed. A discrepancy beyond the loss limit is corrected in one
// step, since gradual correction is not sufficient for something grave
// like packet loss on a USB audio interface.
//
// Each instance is owned by a single goroutine; Correct must be called
// exactly once per period completion of its channel, otherwise the moving
// average decays at the wrong rate.
type Correction struct {
	lossLimit     int64 // threshold for rigorous correction
	driftLimit    int64 // convergence divisor for gentle correction
	correction    int64 // current correction parameter
	averageOffset int64 // moving average of the balance offset
}

// NewCorrection returns a correction engine with the default limits.
func NewCorrection() *Correction {
	return &Correction{
		lossLimit:  DefaultLossLimit,
		driftLimit: DefaultDriftLimit,
	}
}

// SetDriftLimit sets the convergence rate divisor for gentle correction,
// in frames. Higher means smoother but slower convergence.
func (c *Correction) SetDriftLimit(driftMax uint) {
	c.driftLimit = int64(driftMax)
}

// SetLossLimit sets the hard threshold for rigorous correction, in frames.
func (c *Correction) SetLossLimit(lossMax uint) {
	c.lossLimit = int64(lossMax)
}

// Correction returns the current correction parameter in frames.
func (c *Correction) Correction() int64 {
	return c.correction
}

// Correct calculates a new correction parameter from the channel's balance.
// The target is the reference channel's own correction when synchronizing
// relative to another channel, 0 when synchronizing against the clock.
// Returns the updated correction parameter.
func (c *Correction) Correct(balance, target int64) int64 {
	// Judge balance relative to target balance.
	offset := target - balance
	// Exponentially weighted moving average, for small drift correction.
	c.averageOffset = (c.averageOffset + offset) / 2
	if offset-c.correction < -c.lossLimit || offset-c.correction > c.lossLimit {
		// Large discrepancy, rigorous correction.
		c.correction = offset
	} else {
		// Steer toward the average offset, a few frames per period.
		c.correction += (c.averageOffset - c.correction) / (c.driftLimit + 1)
	}
	return c.correction
}

// Clear resets the correction parameter, leaving the moving average and
// the thresholds untouched.
func (c *Correction) Clear() {
	c.correction = 0
}
