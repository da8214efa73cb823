package profiler

import (
	"strconv"
	"strings"
	"time"
)

// Profile is the record of one instrumented call or section. It is
// created by the instrumentation layer and emits folded-stack lines
// when ended. A Profile may move between goroutines but must be ended
// by exactly one of them.
type Profile struct {
	start         time.Time
	profileType   ProfileType
	initialMemory uint64
	hasMemory     bool
	path          []string
	customName    string
	ended         bool
}

// newProfile builds the per-invocation record: it reconstructs the
// caller path, registers the current function, snapshots memory when
// the type asks for it, and stamps the start time last. It returns nil
// whenever profiling is compiled out or disabled at run time.
//
// identity, when non-empty, names the instrumented function directly
// instead of reading it off the backtrace; wrapped functions are not on
// the stack at construction time.
func newProfile(name, identity string, pt ProfileType, isAsync, isMethod bool, qualifier string) *Profile {
	if !ProfilingEnabled || !IsProfilingEnabled() {
		return nil
	}
	if pt == ProfileTypeUnset {
		pt = ProfileTime
	}
	key, raw := captureRawStack(isMethod, qualifier)
	selfOnStack := true
	if identity != "" {
		key = identity
		selfOnStack = false
	}
	display := key
	if isAsync && key != "" {
		display = "async::" + key
	}
	if key != "" {
		RegisterProfiledFunction(key, display)
	}

	p := &Profile{profileType: pt, path: buildProfilePath(raw)}
	// A section name that just repeats the function's own name carries
	// no information and is dropped.
	if name != "" && name != key && name != extractFnOnly(key) {
		p.customName = name
	}
	// A named section is a child of its enclosing function; a wrapped
	// function is absent from the backtrace. Both get their own leaf.
	if key != "" && (!selfOnStack || p.customName != "") {
		p.path = append(p.path, display)
	}
	if pt.includesMemory() {
		if mem, ok := readProcessMemory(); ok {
			p.initialMemory = mem
			p.hasMemory = true
		}
	}
	p.start = time.Now()
	return p
}

// End emits the profile's events: elapsed microseconds when the type
// includes time, a paired +delta/-delta when it includes memory and the
// region's net physical-memory delta is non-zero. End is safe on nil
// and a second call does nothing. Emission failures are logged; there
// is nowhere to return them.
func (p *Profile) End() {
	if p == nil || p.ended {
		return
	}
	p.ended = true
	if p.profileType.includesTime() && !p.start.IsZero() {
		if err := p.emitTimeEvent(time.Since(p.start).Microseconds()); err != nil {
			logger.Error().Err(err).Msg("failed to write time profile event")
		}
	}
	if p.profileType.includesMemory() && p.hasMemory {
		if final, ok := readProcessMemory(); ok {
			var delta uint64
			if final > p.initialMemory {
				delta = final - p.initialMemory
			}
			if err := p.emitMemoryEvent(delta); err != nil {
				logger.Error().Err(err).Msg("failed to write memory profile event")
			}
		}
	}
}

// stackLine joins the reconstructed path, suffixing the leaf with the
// section's custom name when one survived folding.
func (p *Profile) stackLine() (string, error) {
	if len(p.path) == 0 {
		return "", generalError("Stack is empty")
	}
	frames := make([]string, len(p.path))
	copy(frames, p.path)
	if p.customName != "" {
		frames[len(frames)-1] += ":" + p.customName
	}
	return strings.Join(frames, ";"), nil
}

// emitTimeEvent writes one folded time line. Zero elapsed microseconds
// is noise below the clock's resolution and is dropped.
func (p *Profile) emitTimeEvent(micros int64) error {
	if micros == 0 {
		return nil
	}
	stack, err := p.stackLine()
	if err != nil {
		return err
	}
	return writeProfileEvent(profilePaths().time, stack+" "+strconv.FormatInt(micros, 10))
}

// emitMemoryEvent writes the +delta/-delta pair downstream tools fold
// as an allocation and matching deallocation at this site. Both lines
// go out under one writer lock so they stay adjacent.
func (p *Profile) emitMemoryEvent(delta uint64) error {
	if delta == 0 {
		return nil
	}
	stack, err := p.stackLine()
	if err != nil {
		return err
	}
	d := strconv.FormatUint(delta, 10)
	return writeProfileEvent(profilePaths().memory, stack+" +"+d, stack+" -"+d)
}
