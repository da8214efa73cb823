package profiler

import (
	"bytes"
	"runtime"
	"strings"

	"github.com/DataDog/gostackparse"
)

// modulePackagePrefix identifies this package's own frames so the walk
// can step over the wrapper layer sitting between newProfile and the
// instrumented caller. The trailing dot keeps sibling packages (and the
// external test package) out of the match.
const modulePackagePrefix = "github.com/durbanlegend/thag-profiler."

// profileBoundary marks the constructor frame. Everything printed before
// it in the captured text belongs to the capture machinery itself.
const profileBoundary = ".newProfile"

// stackTerminators end the useful range of a goroutine stack.
var stackTerminators = []string{
	"runtime.main",
	"runtime.goexit",
	"testing.tRunner",
}

// schedulerPrefix matches frames the goroutine scheduler injects into
// the middle of a stack; they are skipped during collection.
const schedulerPrefix = "runtime."

// scaffoldingPatterns lists substrings of raw frame names that never
// belong to user code: runtime, test-harness and reflection plumbing,
// plus the wrapper glue this package leaves on the stack. The table is
// deliberately a variable; it tracks compiler and runtime internals and
// changes with them.
var scaffoldingPatterns = []string{
	"runtime.",
	"runtime/",
	"testing.",
	"reflect.",
	"sync.(*",
	profileBoundary,
}

// SetScaffoldingPatterns replaces the deny-list used by stack cleaning.
// Call it before profiling is enabled; programs built against unusual
// runtimes or code generators can extend the table without forking the
// runtime.
func SetScaffoldingPatterns(patterns []string) {
	scaffoldingPatterns = patterns
}

// captureRawStack walks the current goroutine's stack. It returns the
// registry key of the frame that invoked the instrumentation plus the
// raw names of that frame and everything beneath it, innermost first.
func captureRawStack(isMethod bool, qualifier string) (string, []string) {
	buf := make([]byte, 64*1024)
	n := runtime.Stack(buf, false)
	goroutines, _ := gostackparse.Parse(bytes.NewReader(buf[:n]))
	if len(goroutines) == 0 {
		return "", nil
	}
	frames := goroutines[0].Stack

	// Enter the target range: skip down to the constructor, then past
	// this package's wrapper frames above it.
	i := 0
	for i < len(frames) && !strings.Contains(frames[i].Func, profileBoundary) {
		i++
	}
	for i < len(frames) && strings.HasPrefix(frames[i].Func, modulePackagePrefix) {
		i++
	}
	if i >= len(frames) || isTerminator(frames[i].Func) {
		return "", nil
	}

	key := deriveKey(cleanFunctionName(frames[i].Func), isMethod, qualifier)

	raw := make([]string, 0, len(frames)-i)
	for ; i < len(frames); i++ {
		name := frames[i].Func
		if isTerminator(name) {
			break
		}
		if strings.HasPrefix(name, schedulerPrefix) {
			continue
		}
		raw = append(raw, name)
	}
	return key, raw
}

func isTerminator(name string) bool {
	for _, t := range stackTerminators {
		if strings.Contains(name, t) {
			return true
		}
	}
	return false
}

// deriveKey turns a cleaned symbol into the registry key for the
// current invocation: Type.method for methods, the bare final segment
// for free functions. An explicit qualifier wins over whatever the
// backtrace shows, which matters for interface dispatch.
func deriveKey(cleaned string, isMethod bool, qualifier string) string {
	if qualifier != "" {
		return qualifier + "." + extractFnOnly(cleaned)
	}
	if isMethod {
		if cm, ok := extractClassMethod(cleaned); ok {
			return cm
		}
	}
	return extractFnOnly(cleaned)
}

// cleanFunctionName normalizes a raw symbol into the dotted form used
// by the registry: package path dropped, generic instantiations and
// receiver decoration removed, compiler-generated closure tiers
// stripped, duplicate dots collapsed.
func cleanFunctionName(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	name = stripGenericBrackets(name)
	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")
	name = stripGeneratedSuffixes(name)
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	return strings.Trim(name, ".")
}

// stripGenericBrackets removes [...] instantiation text, tracking
// nesting so map and slice type arguments come out whole.
func stripGenericBrackets(name string) string {
	var b strings.Builder
	depth := 0
	for _, r := range name {
		switch {
		case r == '[':
			depth++
		case r == ']':
			if depth > 0 {
				depth--
			} else {
				b.WriteRune(r)
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripGeneratedSuffixes removes trailing compiler-generated segments:
// .funcN closures and their .N sub-tiers, .gowrapN goroutine shims and
// .deferwrapN defer shims. The numeric part must be all digits; a name
// that merely starts with "func" is left alone.
func stripGeneratedSuffixes(name string) string {
	for {
		idx := strings.LastIndex(name, ".")
		if idx < 0 {
			return name
		}
		if !isGeneratedSegment(name[idx+1:]) {
			return name
		}
		name = name[:idx]
	}
}

func isGeneratedSegment(seg string) bool {
	for _, prefix := range []string{"func", "gowrap", "deferwrap"} {
		if rest, ok := strings.CutPrefix(seg, prefix); ok && rest != "" && allDigits(rest) {
			return true
		}
	}
	return seg != "" && allDigits(seg)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// extractClassMethod returns the last two dot segments joined, the
// Type.method identity of a cleaned symbol, or false when the symbol
// has fewer than two segments.
func extractClassMethod(name string) (string, bool) {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return "", false
	}
	return parts[len(parts)-2] + "." + parts[len(parts)-1], true
}

// extractFnOnly returns the last dot segment of a cleaned symbol.
func extractFnOnly(name string) string {
	parts := strings.Split(name, ".")
	return parts[len(parts)-1]
}

// cleanStack filters scaffolding out of the raw frame list and cleans
// what remains. First-occurrence order is preserved, duplicates are
// dropped, and at most one canonical "main" entry survives.
func cleanStack(raw []string) []string {
	cleaned := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	sawMain := false
	for _, frame := range raw {
		if isScaffolding(frame) {
			continue
		}
		name := cleanFunctionName(frame)
		if name == "" {
			continue
		}
		if name == "main" || strings.HasSuffix(name, ".main") {
			if sawMain {
				continue
			}
			sawMain = true
			name = "main"
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		cleaned = append(cleaned, name)
	}
	return cleaned
}

func isScaffolding(frame string) bool {
	if strings.HasPrefix(frame, modulePackagePrefix) {
		return true
	}
	for _, pattern := range scaffoldingPatterns {
		if strings.Contains(frame, pattern) {
			return true
		}
	}
	return false
}

// buildProfilePath projects the cleaned stack onto the registry and
// reverses it so index 0 is the outermost profiled caller. Frames whose
// identity is not registered are dropped.
func buildProfilePath(raw []string) []string {
	cleaned := cleanStack(raw)
	path := make([]string, 0, len(cleaned))
	for _, name := range cleaned {
		if cm, ok := extractClassMethod(name); ok {
			if display, reg := RegisteredName(cm); reg {
				path = append(path, display)
				continue
			}
		}
		if display, reg := RegisteredName(extractFnOnly(name)); reg {
			path = append(path, display)
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
