package profiler

import (
	"sync"
	"sync/atomic"
	"time"
)

var (
	// profilingActive is the process-wide runtime enable flag. It is
	// stored last on enable so readers never observe the flag before
	// the files and start time it implies.
	profilingActive atomic.Bool

	// globalProfileType holds the selector as a small integer: 0 unset,
	// 1 time, 2 memory, 3 both. It never changes while profiling is
	// enabled, so readers load it lock-free.
	globalProfileType atomic.Int32

	// startMicros is the enable timestamp in microseconds since the
	// epoch, stamped into file headers.
	startMicros atomic.Int64

	// lifecycleMu serializes enable/disable transitions.
	lifecycleMu sync.Mutex
)

// EnableProfiling flips the process-wide profiling flag. Enabling
// stores the profile type and start timestamp and initializes the
// output files required by pt before the flag becomes visible.
// Disabling only clears the flag; open files are not closed. A later
// enable truncates and re-headers them.
func EnableProfiling(enabled bool, pt ProfileType) error {
	if !ProfilingEnabled {
		return nil
	}
	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()
	if enabled {
		globalProfileType.Store(int32(pt))
		now := time.Now().UnixMicro()
		if now < 0 {
			return generalError("Time value too large")
		}
		startMicros.Store(now)
		if err := initializeProfileFiles(pt); err != nil {
			return err
		}
	}
	profilingActive.Store(enabled)
	return nil
}

// DisableProfiling clears the runtime enable flag without touching the
// output files.
func DisableProfiling() {
	profilingActive.Store(false)
}

// IsProfilingEnabled reports whether the runtime flag is set.
func IsProfilingEnabled() bool {
	return profilingActive.Load()
}

// GlobalProfileType maps the stored selector back to a ProfileType.
func GlobalProfileType() ProfileType {
	switch ProfileType(globalProfileType.Load()) {
	case ProfileMemory:
		return ProfileMemory
	case ProfileBoth:
		return ProfileBoth
	default:
		return ProfileTime
	}
}

func startTimeMicros() int64 {
	return startMicros.Load()
}
