//go:build !profiling

package profiler

// ProfilingEnabled reports at compile time whether the profiling
// runtime is built in. Without the "profiling" build tag the whole
// public surface stays callable but inert.
const ProfilingEnabled = false
