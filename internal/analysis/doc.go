// Package analysis extracts per-particle signals from recorded frames and
// characterizes them.
//
//   - [Trace]: one coordinate of one particle across frames
//   - [PowerSpectrum]: magnitude spectrum of a trace, mean removed
//   - [DominantFrequency]: strongest non-DC frequency in Hz
//   - [PhaseTrace]: position against finite-difference velocity
//
// # Oscillation
//
// A hanging rope or cloth released from rest swings at a frequency set by
// its length and the solver stiffness:
//
//	y := analysis.Trace(frames, 0, tip, analysis.AxisY)
//	hz := analysis.DominantFrequency(y, dt*float64(recordEvery))
package analysis
