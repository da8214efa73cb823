package profiler

import (
	"os"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

var (
	procOnce sync.Once
	proc     *process.Process
)

// readProcessMemory returns the whole-process resident set size in
// bytes. It is a variable so tests can script deterministic deltas.
// Snapshot failures degrade to "no snapshot"; profile construction
// never fails on their account.
var readProcessMemory = func() (uint64, bool) {
	procOnce.Do(func() {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			logger.Warn().Err(err).Msg("process handle unavailable, memory snapshots disabled")
			return
		}
		proc = p
	})
	if proc == nil {
		return 0, false
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, false
	}
	return info.RSS, true
}
