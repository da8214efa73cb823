//go:build profiling

package profiler

// ProfilingEnabled reports at compile time whether the profiling
// runtime is built in. It is exported so consuming code can branch on
// it without mirroring the build tag in its own configuration.
const ProfilingEnabled = true
