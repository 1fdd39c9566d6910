package sosso

// Correction thresholds, in frames
const (
	// DefaultLossLimit is the hard balance discrepancy threshold above
	// which drift is treated as a discontinuity and corrected in one step.
	DefaultLossLimit = 128

	// DefaultDriftLimit controls the convergence rate of gentle drift
	// correction. Higher means smoother but slower convergence.
	DefaultDriftLimit = 64
)

// Gap recovery constants
const (
	// gapResetLimit is the gap size in frames above which both channels
	// are forcibly resynchronized. Smaller gaps are absorbed.
	gapResetLimit = 1024
)

// Simulated late wakeup parameters (test instrumentation)
const (
	simLateBlock  = 1024            // sync frame block size for the cycle
	simLateStride = 8               // inject on every 8th block
	simLateDelay  = 8 * simLateBlock // extra frames added to the sleep target
)
