package profiler

import "sync"

// Hooks for the external test package.

// ResetProfilingState rewinds the package globals between tests: the
// runtime flag, the type selector, the derived paths, open writers and
// the registry.
func ResetProfilingState(dir string) {
	DisableProfiling()
	globalProfileType.Store(0)
	startMicros.Store(0)
	setOutputDir(dir)
	flushWriters()
	writersMu.Lock()
	writers = map[string]*profileWriter{}
	writersMu.Unlock()
	pathsOnce = sync.Once{}
	paths = profileFilePaths{}
	registryMu.Lock()
	registry = map[string]string{}
	registryMu.Unlock()
}

// SwapMemoryReader replaces the process memory reader and returns a
// restore func.
func SwapMemoryReader(fn func() (uint64, bool)) (restore func()) {
	old := readProcessMemory
	readProcessMemory = fn
	return func() { readProcessMemory = old }
}

// OutputPaths exposes the derived folded file paths.
func OutputPaths() (timePath, memoryPath string) {
	p := profilePaths()
	return p.time, p.memory
}

// NewTestProfile builds a Profile with a fixed path, bypassing stack
// capture, so emission can be tested with injected values.
func NewTestProfile(path []string, customName string) *Profile {
	return &Profile{profileType: ProfileTime, path: path, customName: customName}
}

func EmitTime(p *Profile, micros int64) error { return p.emitTimeEvent(micros) }

func EmitMemory(p *Profile, delta uint64) error { return p.emitMemoryEvent(delta) }
