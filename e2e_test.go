//go:build profiling

package profiler_test

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	profiler "github.com/durbanlegend/thag-profiler"
)

// readEventLines returns the non-header, non-blank lines of a folded
// file.
func readEventLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var events []string
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" || strings.HasPrefix(line, "# ") {
			continue
		}
		events = append(events, line)
	}
	return events
}

// eventValue splits a folded line into its stack and metric parts.
func eventValue(t *testing.T, line string) (string, string) {
	t.Helper()
	idx := strings.LastIndex(line, " ")
	require.Positive(t, idx, "malformed event line: %q", line)
	return line[:idx], line[idx+1:]
}

func slowWork() {
	defer profiler.Profiled()()
	time.Sleep(5 * time.Millisecond)
}

func TestProfiledFunctionEmitsTimeEvent(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	require.NoError(t, profiler.EnableProfiling(true, profiler.ProfileTime))
	slowWork()
	profiler.DisableProfiling()

	timePath, memoryPath := profiler.OutputPaths()
	events := readEventLines(t, timePath)
	require.Len(t, events, 1)
	assert.Regexp(t, regexp.MustCompile(`^slowWork \d+$`), events[0])

	_, value := eventValue(t, events[0])
	micros, err := strconv.ParseInt(value, 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, micros, int64(5000))

	_, err = os.Stat(memoryPath)
	assert.True(t, os.IsNotExist(err))
}

func outer() {
	defer profiler.Profiled()()
	s := profiler.Section("inner")
	time.Sleep(2 * time.Millisecond)
	s.End()
	time.Sleep(time.Millisecond)
}

func TestSectionNestsUnderEnclosingFunction(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	require.NoError(t, profiler.EnableProfiling(true, profiler.ProfileTime))
	outer()
	profiler.DisableProfiling()

	timePath, _ := profiler.OutputPaths()
	events := readEventLines(t, timePath)
	require.Len(t, events, 2)
	stacks := make([]string, 0, len(events))
	for _, line := range events {
		stack, _ := eventValue(t, line)
		stacks = append(stacks, stack)
	}
	assert.ElementsMatch(t, []string{"outer", "outer;outer:inner"}, stacks)
}

func fetchRecords() {
	time.Sleep(2 * time.Millisecond)
}

func TestAsyncProfileCrossesGoroutines(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	require.NoError(t, profiler.EnableProfiling(true, profiler.ProfileTime))

	wrapped := profiler.WrapAsync(fetchRecords)
	done := make(chan struct{})
	go func() {
		defer close(done)
		wrapped()
	}()
	<-done
	profiler.DisableProfiling()

	assert.True(t, profiler.IsProfiledFunction("fetchRecords"))
	name, _ := profiler.RegisteredName("fetchRecords")
	assert.Equal(t, "async::fetchRecords", name)

	timePath, _ := profiler.OutputPaths()
	events := readEventLines(t, timePath)
	require.Len(t, events, 1)
	assert.Regexp(t, regexp.MustCompile(`^async::fetchRecords \d+$`), events[0])
	_, value := eventValue(t, events[0])
	micros, err := strconv.ParseInt(value, 10, 64)
	require.NoError(t, err)
	assert.Positive(t, micros)
}

func TestMemorySectionEmitsPairedLines(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	calls := 0
	restore := profiler.SwapMemoryReader(func() (uint64, bool) {
		calls++
		if calls == 1 {
			return 1_000, true
		}
		return 1_001_000, true
	})
	defer restore()

	require.NoError(t, profiler.EnableProfiling(true, profiler.ProfileMemory))
	s := profiler.Section("alloc", profiler.WithMemory())
	s.End()
	profiler.DisableProfiling()

	_, memoryPath := profiler.OutputPaths()
	events := readEventLines(t, memoryPath)
	require.Len(t, events, 2)
	stack := "TestMemorySectionEmitsPairedLines;TestMemorySectionEmitsPairedLines:alloc"
	assert.Equal(t, stack+" +1000000", events[0])
	assert.Equal(t, stack+" -1000000", events[1])
}

func TestZeroMemoryDeltaSuppressed(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	restore := profiler.SwapMemoryReader(func() (uint64, bool) {
		return 4_096, true
	})
	defer restore()

	require.NoError(t, profiler.EnableProfiling(true, profiler.ProfileMemory))
	s := profiler.Section("steady", profiler.WithMemory())
	s.End()
	profiler.DisableProfiling()

	_, memoryPath := profiler.OutputPaths()
	assert.Empty(t, readEventLines(t, memoryPath))
}

func TestDisabledRuntimeEmitsNothing(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	require.NoError(t, profiler.EnableProfiling(true, profiler.ProfileTime))
	profiler.DisableProfiling()

	slowWork()
	s := profiler.Section("idle")
	assert.False(t, s.IsActive())
	s.End()

	timePath, _ := profiler.OutputPaths()
	assert.Empty(t, readEventLines(t, timePath))
}

type store struct{}

func (s *store) flush() {
	defer profiler.Profiled(profiler.WithImpl("store"))()
	time.Sleep(time.Millisecond)
}

func TestMethodQualification(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	require.NoError(t, profiler.EnableProfiling(true, profiler.ProfileTime))
	(&store{}).flush()
	profiler.DisableProfiling()

	assert.True(t, profiler.IsProfiledFunction("store.flush"))

	timePath, _ := profiler.OutputPaths()
	events := readEventLines(t, timePath)
	require.Len(t, events, 1)
	assert.Regexp(t, regexp.MustCompile(`^store\.flush \d+$`), events[0])
}

func (s *store) load() {
	defer profiler.Profiled(profiler.WithMethod())()
	time.Sleep(time.Millisecond)
}

func TestMethodQualificationFromReceiver(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	require.NoError(t, profiler.EnableProfiling(true, profiler.ProfileTime))
	(&store{}).load()
	profiler.DisableProfiling()

	assert.True(t, profiler.IsProfiledFunction("store.load"))
}

func TestZeroDurationSuppressed(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	p := profiler.NewTestProfile([]string{"alpha"}, "")
	require.NoError(t, profiler.EmitTime(p, 0))

	timePath, _ := profiler.OutputPaths()
	_, err := os.Stat(timePath)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, profiler.EmitTime(p, 7))
	events := readEventLines(t, timePath)
	require.Len(t, events, 1)
	assert.Equal(t, "alpha 7", events[0])
}

func TestEmptyStackRejectedAtEmission(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	p := profiler.NewTestProfile(nil, "")
	err := profiler.EmitTime(p, 42)
	require.Error(t, err)
	assert.True(t, profiler.IsProfileError(err, profiler.ErrorGeneral))
	assert.Equal(t, "Stack is empty", err.Error())
}

func TestSectionEndedOnAnotherGoroutine(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	require.NoError(t, profiler.EnableProfiling(true, profiler.ProfileTime))

	sections := make(chan *profiler.ProfileSection, 1)
	sections <- profiler.Section("handoff")
	time.Sleep(2 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s := <-sections
		s.End()
	}()
	<-done
	profiler.DisableProfiling()

	timePath, _ := profiler.OutputPaths()
	events := readEventLines(t, timePath)
	require.Len(t, events, 1)
	stack, _ := eventValue(t, events[0])
	assert.Equal(t, "TestSectionEndedOnAnotherGoroutine;TestSectionEndedOnAnotherGoroutine:handoff", stack)
}

func TestEndIsConsuming(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	require.NoError(t, profiler.EnableProfiling(true, profiler.ProfileTime))

	s := profiler.Section("once")
	assert.True(t, s.IsActive())
	time.Sleep(time.Millisecond)
	s.End()
	assert.False(t, s.IsActive())
	s.End()
	profiler.DisableProfiling()

	timePath, _ := profiler.OutputPaths()
	assert.Len(t, readEventLines(t, timePath), 1)
}

func TestPerCallTypeOverridesGlobal(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	restore := profiler.SwapMemoryReader(func() (uint64, bool) {
		return 0, false
	})
	defer restore()

	// Global selector says both; the section asks for time and gets
	// it verbatim.
	require.NoError(t, profiler.EnableProfiling(true, profiler.ProfileBoth))
	assert.Equal(t, profiler.ProfileBoth, profiler.GlobalProfileType())

	s := profiler.Section("timed", profiler.WithTime())
	time.Sleep(time.Millisecond)
	s.End()
	profiler.DisableProfiling()

	timePath, memoryPath := profiler.OutputPaths()
	assert.Len(t, readEventLines(t, timePath), 1)
	assert.Empty(t, readEventLines(t, memoryPath))
}

func TestFoldedFileNaming(t *testing.T) {
	profiler.ResetProfilingState(t.TempDir())
	timePath, memoryPath := profiler.OutputPaths()
	assert.Regexp(t, regexp.MustCompile(`[^/]+-\d{8}-\d{6}\.folded$`), timePath)
	assert.Regexp(t, regexp.MustCompile(`[^/]+-\d{8}-\d{6}-memory\.folded$`), memoryPath)
}
