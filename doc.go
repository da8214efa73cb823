// Package profiler is an intrusive, folded-stack profiling runtime.
// Developers mark functions and code sections for time and/or memory
// profiling; each invocation is recorded with its cleaned call-stack
// context and appended to folded-stack files that flamechart and
// flamegraph tools consume directly.
//
// Instrumentation is explicit: a function profiles itself with
//
//	defer profiler.Profiled()()
//
// and a narrower region with
//
//	s := profiler.Section("parse")
//	...
//	s.End()
//
// The whole program is bracketed from main:
//
//	defer profiler.Start(profiler.WithProfileType(profiler.ProfileTime)).Stop()
//
// The runtime is compiled in only under the "profiling" build tag; see
// ProfilingEnabled. Without the tag every call site compiles to a no-op
// and no file is ever created.
package profiler

// Version is stamped into the header block of every folded output file.
const Version = "0.1.0"
