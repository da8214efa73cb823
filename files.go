package profiler

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

const (
	timeProfileLabel   = "Time Profile"
	memoryProfileLabel = "Memory Profile"
)

// profileWriter pairs a lazily opened append-mode file with its
// buffered writer. All event writes to one file serialize on mu.
type profileWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

var (
	writersMu sync.Mutex
	writers   = map[string]*profileWriter{}
)

// initStrategies maps a profile type to the file initialization it
// needs on enable.
var initStrategies = map[ProfileType]func(p profileFilePaths) error{
	ProfileTime: func(p profileFilePaths) error {
		return initializeProfileFile(p.time, timeProfileLabel)
	},
	ProfileMemory: func(p profileFilePaths) error {
		return initializeProfileFile(p.memory, memoryProfileLabel)
	},
	ProfileBoth: func(p profileFilePaths) error {
		if err := initializeProfileFile(p.time, timeProfileLabel); err != nil {
			return err
		}
		return initializeProfileFile(p.memory, memoryProfileLabel)
	},
}

// initializeProfileFiles truncates and re-headers every file the given
// profile type writes to, dropping any writer still open from a
// previous enable.
func initializeProfileFiles(pt ProfileType) error {
	strategy, ok := initStrategies[pt]
	if !ok {
		strategy = initStrategies[ProfileTime]
	}
	return strategy(profilePaths())
}

// initializeProfileFile creates or truncates path and writes the
// header block.
func initializeProfileFile(path, label string) error {
	dropWriter(path)
	f, err := os.Create(path)
	if err != nil {
		return ioError("failed to create profile file", err)
	}
	defer f.Close()
	header := fmt.Sprintf("# %s\n# Script: %s\n# Started: %d\n# Version: %s\n\n",
		label, currentExeDisplay(), startTimeMicros(), Version)
	if _, err := f.WriteString(header); err != nil {
		return ioError("failed to write profile header", err)
	}
	return nil
}

func writerFor(path string) *profileWriter {
	writersMu.Lock()
	defer writersMu.Unlock()
	w, ok := writers[path]
	if !ok {
		w = &profileWriter{}
		writers[path] = w
	}
	return w
}

// dropWriter flushes, closes and forgets the writer for path, if any.
func dropWriter(path string) {
	writersMu.Lock()
	w := writers[path]
	delete(writers, path)
	writersMu.Unlock()
	if w == nil {
		return
	}
	w.mu.Lock()
	closeWriterLocked(w)
	w.mu.Unlock()
}

func closeWriterLocked(w *profileWriter) {
	if w.buf != nil {
		if err := w.buf.Flush(); err != nil {
			logger.Error().Err(err).Msg("failed to flush profile file")
		}
	}
	if w.file != nil {
		w.file.Close()
	}
	w.buf, w.file = nil, nil
}

// writeProfileEvent appends the given lines to path and flushes. The
// lines of one event go through a single call so they land adjacently
// even when other goroutines are emitting to the same file.
func writeProfileEvent(path string, lines ...string) error {
	w := writerFor(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf == nil {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return ioError("failed to open profile file", err)
		}
		w.file = f
		w.buf = bufio.NewWriter(f)
	}
	for _, line := range lines {
		if _, err := w.buf.WriteString(line + "\n"); err != nil {
			return ioError("failed to write profile event", err)
		}
	}
	if err := w.buf.Flush(); err != nil {
		return ioError("failed to flush profile file", err)
	}
	return nil
}

// flushWriters flushes and closes every open event writer. Later
// events reopen their file in append mode.
func flushWriters() {
	writersMu.Lock()
	open := make([]*profileWriter, 0, len(writers))
	for _, w := range writers {
		open = append(open, w)
	}
	writersMu.Unlock()
	for _, w := range open {
		w.mu.Lock()
		closeWriterLocked(w)
		w.mu.Unlock()
	}
}
