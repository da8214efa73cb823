package profiler

import (
	"reflect"
	"runtime"
)

// Profiled instruments the calling function. Call it at function entry
// and defer the returned closure:
//
//	func work() {
//		defer profiler.Profiled()()
//		...
//	}
//
// The closure ends the profile on every return path. By default the
// call site follows the global profile-type selector; see WithType,
// WithImpl and WithGoroutine for per-site overrides.
func Profiled(opts ...InstrumentOption) func() {
	cfg := applyInstrumentOptions(opts)
	return newProfile("", "", resolveType(cfg), cfg.async, cfg.isMethod, cfg.qualifier).End
}

// Wrap returns fn instrumented so every call emits a profile event.
// The identity comes from fn's symbol, so wrapped function literals
// profile under their enclosing function's name.
func Wrap(fn func(), opts ...InstrumentOption) func() {
	return wrap(fn, false, opts)
}

// WrapAsync instruments fn for execution on another goroutine: the
// profile starts when that goroutine runs the body and ends at
// completion, and the display name carries the async:: prefix. The
// emitted path reflects the stack at the point the body runs, which on
// a fresh goroutine is the wrapped function alone.
func WrapAsync(fn func(), opts ...InstrumentOption) func() {
	return wrap(fn, true, opts)
}

// Go runs fn on a new goroutine with an async profile around it.
func Go(fn func(), opts ...InstrumentOption) {
	go WrapAsync(fn, opts...)()
}

func wrap(fn func(), async bool, opts []InstrumentOption) func() {
	if !ProfilingEnabled {
		return fn
	}
	cfg := applyInstrumentOptions(opts)
	if cfg.async {
		async = true
	}
	identity := functionIdentity(fn, cfg.isMethod, cfg.qualifier)
	return func() {
		p := newProfile("", identity, resolveType(cfg), async, cfg.isMethod, cfg.qualifier)
		defer p.End()
		fn()
	}
}

func applyInstrumentOptions(opts []InstrumentOption) instrumentConfig {
	var cfg instrumentConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// resolveType applies the per-site type verbatim when one was given;
// otherwise the call site follows the global selector at call time.
func resolveType(cfg instrumentConfig) ProfileType {
	if cfg.profileType == ProfileTypeUnset {
		return GlobalProfileType()
	}
	return cfg.profileType
}

// functionIdentity derives the registry key from fn's symbol. Method
// values carry a -fm suffix and literals a .funcN suffix; both come out
// in the cleaning.
func functionIdentity(fn func(), isMethod bool, qualifier string) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return ""
	}
	return deriveKey(cleanFunctionName(f.Name()), isMethod, qualifier)
}
