package loadtest

import "time"

// Defaults used when Config leaves a field zero.
const (
	DefaultPayloads = 1000
	DefaultUsers    = 50
	DefaultTimeout  = 30 * time.Second
)

// WorkerChannelMultiplier sizes the job channel relative to the worker count.
const WorkerChannelMultiplier = 2

// ScoreTolerance is the largest accepted difference between a remote and a
// local score.
const ScoreTolerance = 1e-9

// PercentageMultiplier converts ratios to percentages.
const PercentageMultiplier = 100
